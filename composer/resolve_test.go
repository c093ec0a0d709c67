package composer

import (
	"context"
	"testing"

	"fleetdata/apperr"
	"fleetdata/dao/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestParseResolveMode(t *testing.T) {
	for raw, want := range map[string]ResolveMode{
		"":       ResolveDirect,
		"direct": ResolveDirect,
		"leaf":   ResolveLeaf,
		"all":    ResolveAll,
	} {
		mode, ok := ParseResolveMode(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, mode)
	}
	_, ok := ParseResolveMode("deep")
	assert.False(t, ok)
}

func itemIDs(items []Item) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ItemID)
	}
	return ids
}

// nestedFixture builds outer -> {inner, ds1} and inner -> {ds2, scene1}.
type nestedFixture struct {
	outer, inner uuid.UUID
	ds1, ds2     uuid.UUID
	scene1       uuid.UUID
}

func buildNested(t *testing.T, db *gorm.DB, c *Composer) nestedFixture {
	t.Helper()
	ctx := context.Background()

	f := nestedFixture{
		ds1:    newDatastream(t, db),
		ds2:    newDatastream(t, db),
		scene1: newScene(t, db),
	}

	inner, err := c.Create(ctx, CreateSpec{
		Name: "inner",
		Items: []Item{
			{ItemType: model.ItemKindDatastream, ItemID: f.ds2},
			{ItemType: model.ItemKindScene, ItemID: f.scene1},
		},
	})
	require.NoError(t, err)
	f.inner = inner.ID

	outer, err := c.Create(ctx, CreateSpec{
		Name: "outer",
		Items: []Item{
			{ItemType: model.ItemKindDataset, ItemID: inner.ID},
			{ItemType: model.ItemKindDatastream, ItemID: f.ds1},
		},
	})
	require.NoError(t, err)
	f.outer = outer.ID
	return f
}

func TestResolveModes(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()
	f := buildNested(t, db, c)

	direct, err := c.ResolveItems(ctx, f.outer, ResolveDirect, nil, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.inner, f.ds1}, itemIDs(direct))

	leaf, err := c.ResolveItems(ctx, f.outer, ResolveLeaf, nil, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.ds1, f.ds2, f.scene1}, itemIDs(leaf))
	for _, it := range leaf {
		assert.NotEqual(t, model.ItemKindDataset, it.ItemType)
	}

	all, err := c.ResolveItems(ctx, f.outer, ResolveAll, nil, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.inner, f.ds1, f.ds2, f.scene1}, itemIDs(all))
}

func TestResolveKindFilter(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()
	f := buildNested(t, db, c)

	scenes := model.ItemKindScene
	items, err := c.ResolveItems(ctx, f.outer, ResolveLeaf, &scenes, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, f.scene1, items[0].ItemID)

	datasets := model.ItemKindDataset
	items, err = c.ResolveItems(ctx, f.outer, ResolveLeaf, &datasets, false)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestResolveDedupe(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	shared := newDatastream(t, db)
	inner, err := c.Create(ctx, CreateSpec{
		Name:  "inner",
		Items: []Item{{ItemType: model.ItemKindDatastream, ItemID: shared}},
	})
	require.NoError(t, err)
	outer, err := c.Create(ctx, CreateSpec{
		Name: "outer",
		Items: []Item{
			{ItemType: model.ItemKindDatastream, ItemID: shared},
			{ItemType: model.ItemKindDataset, ItemID: inner.ID},
		},
	})
	require.NoError(t, err)

	// The shared stream is reachable both directly and through the
	// nested dataset.
	items, err := c.ResolveItems(ctx, outer.ID, ResolveLeaf, nil, false)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = c.ResolveItems(ctx, outer.ID, ResolveLeaf, nil, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, shared, items[0].ItemID)
}

func TestResolveMissingRoot(t *testing.T) {
	db := newTestDB(t)
	c := New(db)

	_, err := c.ResolveItems(context.Background(), uuid.New(), ResolveDirect, nil, false)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestResolveSkipsDanglingNestedDataset(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	f := buildNested(t, db, c)

	// Delete the nested dataset out from under the membership edge.
	require.NoError(t, db.Where("dataset_id = ?", f.inner).Delete(&model.DatasetMember{}).Error)
	require.NoError(t, db.Delete(&model.Dataset{}, "id = ?", f.inner).Error)

	leaf, err := c.ResolveItems(ctx, f.outer, ResolveLeaf, nil, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.ds1}, itemIDs(leaf))
}
