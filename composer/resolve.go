package composer

import (
	"context"
	"errors"

	"fleetdata/apperr"
	"fleetdata/dao/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResolveMode selects how nested dataset members are expanded.
type ResolveMode string

const (
	// ResolveDirect returns only the dataset's immediate members.
	ResolveDirect ResolveMode = "direct"
	// ResolveLeaf recursively expands nested datasets and emits only
	// datastream/scene leaves; dataset nodes themselves are not emitted.
	ResolveLeaf ResolveMode = "leaf"
	// ResolveAll recursively expands and emits nested dataset nodes as
	// well as their resolved leaves.
	ResolveAll ResolveMode = "all"
)

func ParseResolveMode(s string) (ResolveMode, bool) {
	switch ResolveMode(s) {
	case ResolveDirect, ResolveLeaf, ResolveAll:
		return ResolveMode(s), true
	case "":
		return ResolveDirect, true
	default:
		return "", false
	}
}

// ResolveItems returns the dataset's items under the given resolution
// mode, then applies the optional kind filter and optional first-wins
// (kind, id) deduplication.
//
// Recursive traversal is depth-first with a visited set: a dataset id is
// expanded at most once, so the walk terminates even if out-of-band
// mutation has already put a cycle in the stored graph.
func (c *Composer) ResolveItems(ctx context.Context, id uuid.UUID, mode ResolveMode, kindFilter *model.ItemKind, dedupe bool) ([]Item, error) {
	tx := c.db.WithContext(ctx)

	var ds model.Dataset
	if err := tx.First(&ds, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("dataset %s not found", id)
		}
		return nil, apperr.Internal("failed to fetch dataset", err)
	}

	var out []Item
	if mode == ResolveDirect {
		items, err := c.directItems(tx, id)
		if err != nil {
			return nil, err
		}
		out = items
	} else {
		visited := make(map[uuid.UUID]struct{})
		var err error
		out, err = c.expand(tx, id, mode, visited, nil)
		if err != nil {
			return nil, err
		}
	}

	if kindFilter != nil {
		filtered := out[:0]
		for _, it := range out {
			if it.ItemType == *kindFilter {
				filtered = append(filtered, it)
			}
		}
		out = filtered
	}
	if dedupe {
		seen := make(map[itemKey]struct{}, len(out))
		uniq := out[:0]
		for _, it := range out {
			key := itemKey{kind: it.ItemType, id: it.ItemID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			uniq = append(uniq, it)
		}
		out = uniq
	}
	if out == nil {
		out = []Item{}
	}
	return out, nil
}

// expand walks the membership tree below id depth-first, appending to acc.
// Datasets deleted out from under a still-referencing member are skipped.
func (c *Composer) expand(tx *gorm.DB, id uuid.UUID, mode ResolveMode, visited map[uuid.UUID]struct{}, acc []Item) ([]Item, error) {
	if _, ok := visited[id]; ok {
		return acc, nil
	}
	visited[id] = struct{}{}

	items, err := c.directItems(tx, id)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.ItemType == model.ItemKindDataset {
			if mode == ResolveAll {
				acc = append(acc, it)
			}
			acc, err = c.expand(tx, it.ItemID, mode, visited, acc)
			if err != nil {
				return nil, err
			}
			continue
		}
		acc = append(acc, it)
	}
	return acc, nil
}
