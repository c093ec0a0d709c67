package composer

import (
	"context"
	"testing"

	"fleetdata/apperr"
	"fleetdata/dao/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Dataset{},
		&model.DatasetMember{},
		&model.Datastream{},
		&model.Scene{},
	))
	return db
}

func newDatastream(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	ds := &model.Datastream{Type: 1, MeasurementID: uuid.New()}
	require.NoError(t, db.Create(ds).Error)
	return ds.ID
}

func newScene(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	sc := &model.Scene{StartIdx: 0, EndIdx: 100}
	require.NoError(t, db.Create(sc).Error)
	return sc.ID
}

func strptr(s string) *string { return &s }

func TestCreateComposedDataset(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	dsID := newDatastream(t, db)
	scID := newScene(t, db)

	ds, err := c.Create(ctx, CreateSpec{
		Name:    "  training-set  ",
		Purpose: strptr("training"),
		Items: []Item{
			{ItemType: model.ItemKindDatastream, ItemID: dsID},
			{ItemType: model.ItemKindScene, ItemID: scID},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "training-set", ds.Name)
	assert.Equal(t, model.DatasetReady, ds.Status)
	assert.Equal(t, model.SourceComposed, ds.SourceType)
	assert.Equal(t, 1, ds.DatastreamCount)
	assert.Equal(t, 1, ds.SceneCount)
	assert.Equal(t, 0, ds.DatasetCount)

	var members int64
	require.NoError(t, db.Model(&model.DatasetMember{}).
		Where("dataset_id = ?", ds.ID).Count(&members).Error)
	assert.EqualValues(t, 2, members)
}

func TestCreateValidation(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	_, err := c.Create(ctx, CreateSpec{Name: "   "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// External-file datasets need a file path.
	_, err = c.Create(ctx, CreateSpec{Name: "ext", SourceType: model.SourceExternalFile})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// External-file datasets cannot carry members.
	_, err = c.Create(ctx, CreateSpec{
		Name:       "ext",
		SourceType: model.SourceExternalFile,
		FilePath:   strptr("/data/export.parquet"),
		Items:      []Item{{ItemType: model.ItemKindScene, ItemID: uuid.New()}},
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Composed datasets cannot carry a file reference.
	_, err = c.Create(ctx, CreateSpec{Name: "comp", FilePath: strptr("/data/x")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = c.Create(ctx, CreateSpec{Name: "bad", SourceType: 42})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateExternalFileDataset(t *testing.T) {
	db := newTestDB(t)
	c := New(db)

	ds, err := c.Create(context.Background(), CreateSpec{
		Name:       "export",
		SourceType: model.SourceExternalFile,
		FilePath:   strptr("/data/export.parquet"),
		FileFormat: strptr("parquet"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.DatasetReady, ds.Status)
	assert.True(t, ds.ReadOnly())
}

func TestGetMissingDataset(t *testing.T) {
	db := newTestDB(t)
	c := New(db)

	ds, items, err := c.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, ds)
	assert.Nil(t, items)
}

func TestAddRemoveItemsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	ds, err := c.Create(ctx, CreateSpec{Name: "rt"})
	require.NoError(t, err)

	dsID := newDatastream(t, db)
	scID := newScene(t, db)
	items := []Item{
		{ItemType: model.ItemKindDatastream, ItemID: dsID},
		{ItemType: model.ItemKindScene, ItemID: scID},
	}

	updated, err := c.AddItems(ctx, ds.ID, items)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.DatastreamCount)
	assert.Equal(t, 1, updated.SceneCount)

	updated, err = c.RemoveItems(ctx, ds.ID, items)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.DatastreamCount)
	assert.Equal(t, 0, updated.SceneCount)

	// Removal is idempotent.
	updated, err = c.RemoveItems(ctx, ds.ID, items)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.DatastreamCount)
	assert.Equal(t, 0, updated.SceneCount)
}

func TestAddItemsDuplicateConflict(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	scID := newScene(t, db)
	ds, err := c.Create(ctx, CreateSpec{
		Name:  "dup",
		Items: []Item{{ItemType: model.ItemKindScene, ItemID: scID}},
	})
	require.NoError(t, err)

	// Same pair twice inside one request.
	other := newScene(t, db)
	_, err = c.AddItems(ctx, ds.ID, []Item{
		{ItemType: model.ItemKindScene, ItemID: other},
		{ItemType: model.ItemKindScene, ItemID: other},
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Pair already stored.
	_, err = c.AddItems(ctx, ds.ID, []Item{{ItemType: model.ItemKindScene, ItemID: scID}})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Counters unchanged after the rejected mutations.
	got, _, err := c.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SceneCount)
	assert.Equal(t, 0, got.DatastreamCount)
}

func TestAddItemsValidation(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	ds, err := c.Create(ctx, CreateSpec{Name: "v"})
	require.NoError(t, err)

	_, err = c.AddItems(ctx, ds.ID, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = c.AddItems(ctx, ds.ID, []Item{{ItemType: 0, ItemID: uuid.New()}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = c.AddItems(ctx, uuid.New(), []Item{{ItemType: model.ItemKindScene, ItemID: uuid.New()}})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	ext, err := c.Create(ctx, CreateSpec{
		Name:       "ro",
		SourceType: model.SourceExternalFile,
		FilePath:   strptr("/data/x.pickle"),
	})
	require.NoError(t, err)
	_, err = c.AddItems(ctx, ext.ID, []Item{{ItemType: model.ItemKindScene, ItemID: uuid.New()}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestMissingReferenceHandling(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	ds, err := c.Create(ctx, CreateSpec{Name: "refs"})
	require.NoError(t, err)

	// Missing datastreams and scenes are tolerated.
	updated, err := c.AddItems(ctx, ds.ID, []Item{
		{ItemType: model.ItemKindDatastream, ItemID: uuid.New()},
		{ItemType: model.ItemKindScene, ItemID: uuid.New()},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.DatastreamCount)
	assert.Equal(t, 1, updated.SceneCount)

	// A missing nested dataset is a hard failure.
	_, err = c.AddItems(ctx, ds.ID, []Item{
		{ItemType: model.ItemKindDataset, ItemID: uuid.New()},
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCycleDetection(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	x, err := c.Create(ctx, CreateSpec{Name: "x"})
	require.NoError(t, err)
	y, err := c.Create(ctx, CreateSpec{Name: "y"})
	require.NoError(t, err)

	// Self containment.
	_, err = c.AddItems(ctx, x.ID, []Item{{ItemType: model.ItemKindDataset, ItemID: x.ID}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// x contains y; y may not then contain x.
	_, err = c.AddItems(ctx, x.ID, []Item{{ItemType: model.ItemKindDataset, ItemID: y.ID}})
	require.NoError(t, err)
	_, err = c.AddItems(ctx, y.ID, []Item{{ItemType: model.ItemKindDataset, ItemID: x.ID}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Transitive: x -> y -> z, so z may not contain x.
	z, err := c.Create(ctx, CreateSpec{Name: "z"})
	require.NoError(t, err)
	_, err = c.AddItems(ctx, y.ID, []Item{{ItemType: model.ItemKindDataset, ItemID: z.ID}})
	require.NoError(t, err)
	_, err = c.AddItems(ctx, z.ID, []Item{{ItemType: model.ItemKindDataset, ItemID: x.ID}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdatePatchAndReplaceItems(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	scID := newScene(t, db)
	ds, err := c.Create(ctx, CreateSpec{
		Name:  "before",
		Items: []Item{{ItemType: model.ItemKindScene, ItemID: scID}},
	})
	require.NoError(t, err)

	processing := model.DatasetProcessing
	updated, err := c.Update(ctx, ds.ID, UpdateSpec{
		Name:        strptr("after"),
		Description: strptr("patched"),
		Status:      &processing,
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, "patched", *updated.Description)
	assert.Equal(t, model.DatasetProcessing, updated.Status)
	assert.Equal(t, 1, updated.SceneCount)

	// Replace the member set wholesale.
	dsID := newDatastream(t, db)
	replacement := []Item{{ItemType: model.ItemKindDatastream, ItemID: dsID}}
	updated, err = c.Update(ctx, ds.ID, UpdateSpec{ReplaceItems: &replacement})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.SceneCount)
	assert.Equal(t, 1, updated.DatastreamCount)

	// A replacement containing an invalid nested reference fails whole;
	// the committed member set survives.
	bad := []Item{{ItemType: model.ItemKindDataset, ItemID: uuid.New()}}
	_, err = c.Update(ctx, ds.ID, UpdateSpec{ReplaceItems: &bad})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, items, err := c.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DatastreamCount)
	require.Len(t, items, 1)
	assert.Equal(t, dsID, items[0].ItemID)

	// File reference patches are rejected for composed datasets.
	_, err = c.Update(ctx, ds.ID, UpdateSpec{FilePath: strptr("/data/x")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// A status outside the declared range is rejected and nothing sticks.
	bogus := model.DatasetStatus(42)
	_, err = c.Update(ctx, ds.ID, UpdateSpec{Status: &bogus})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	got, _, err = c.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DatasetProcessing, got.Status)

	_, err = c.Update(ctx, uuid.New(), UpdateSpec{Name: strptr("nope")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListAndCount(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	for _, name := range []string{"highway-night", "highway-day", "urban-rain"} {
		_, err := c.Create(ctx, CreateSpec{Name: name, Purpose: strptr("training")})
		require.NoError(t, err)
	}

	rows, total, err := c.List(ctx, Filter{Search: "HIGHWAY"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	// Count agrees with List's total under the same predicate.
	n, err := c.Count(ctx, Filter{Search: "HIGHWAY"})
	require.NoError(t, err)
	assert.Equal(t, total, n)

	// The total is independent of page truncation.
	rows, total, err = c.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 1)

	rows, total, err = c.List(ctx, Filter{Purpose: strptr("validation")})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, rows)
}

func TestDeleteDataset(t *testing.T) {
	db := newTestDB(t)
	c := New(db)
	ctx := context.Background()

	scID := newScene(t, db)
	ds, err := c.Create(ctx, CreateSpec{
		Name:  "gone",
		Items: []Item{{ItemType: model.ItemKindScene, ItemID: scID}},
	})
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, ds.ID))

	got, _, err := c.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var members int64
	require.NoError(t, db.Model(&model.DatasetMember{}).
		Where("dataset_id = ?", ds.ID).Count(&members).Error)
	assert.EqualValues(t, 0, members)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(c.Delete(ctx, ds.ID)))
}
