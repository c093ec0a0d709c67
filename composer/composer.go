// Package composer maintains the Dataset/DatasetMember relationship:
// member attachment and removal, existence validation, cycle detection
// among nested datasets, and derived counter recomputation. Every mutation
// runs in a single transaction so partial membership is never observable.
package composer

import (
	"context"
	"errors"
	"strings"
	"time"

	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/logutils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 200
)

type Composer struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Composer {
	return &Composer{db: db}
}

// Item is a single member reference: a tagged (kind, id) pair with
// optional opaque metadata.
type Item struct {
	ItemType model.ItemKind `json:"item_type"`
	ItemID   uuid.UUID      `json:"item_id"`
	Meta     datatypes.JSON `json:"meta,omitempty"`
}

type itemKey struct {
	kind model.ItemKind
	id   uuid.UUID
}

// CreateSpec carries the fields of a dataset creation request.
type CreateSpec struct {
	Name            string
	Description     *string
	Purpose         *string
	SourceType      model.DatasetSourceType
	FilePath        *string
	FileFormat      *string
	AlgorithmConfig datatypes.JSON
	CreatedBy       *string
	Items           []Item
}

// UpdateSpec carries a partial update. Nil fields are left untouched.
// ReplaceItems, when non-nil, atomically replaces the full member set.
type UpdateSpec struct {
	Name            *string
	Description     *string
	Purpose         *string
	Status          *model.DatasetStatus
	AlgorithmConfig datatypes.JSON
	FilePath        *string
	FileFormat      *string
	ReplaceItems    *[]Item
}

// Filter is the list/count predicate.
type Filter struct {
	Search      string
	Purpose     *string
	Status      *model.DatasetStatus
	SourceType  *model.DatasetSourceType
	CreatedBy   *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Offset      int
	Limit       int
}

// Create validates the spec and persists the dataset together with its
// initial members, all in one transaction. Composed datasets start in
// CREATING and land in READY once members are attached.
func (c *Composer) Create(ctx context.Context, spec CreateSpec) (*model.Dataset, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, apperr.Validation("name must not be empty")
	}

	switch spec.SourceType {
	case model.SourceExternalFile:
		if spec.FilePath == nil || strings.TrimSpace(*spec.FilePath) == "" {
			return nil, apperr.Validation("file_path is required for an external-file dataset")
		}
		if len(spec.Items) > 0 {
			return nil, apperr.Validation("items cannot be attached to an external-file dataset")
		}
	case model.SourceComposed:
		if spec.FilePath != nil || spec.FileFormat != nil {
			return nil, apperr.Validation("file reference is only valid for an external-file dataset")
		}
	default:
		return nil, apperr.Validation("unknown source_type %d", spec.SourceType)
	}

	status := model.DatasetCreating
	if spec.SourceType == model.SourceExternalFile {
		status = model.DatasetReady
	}

	ds := &model.Dataset{
		Name:            name,
		Description:     spec.Description,
		Purpose:         spec.Purpose,
		Status:          status,
		SourceType:      spec.SourceType,
		FilePath:        spec.FilePath,
		FileFormat:      spec.FileFormat,
		CreatedBy:       spec.CreatedBy,
		AlgorithmConfig: spec.AlgorithmConfig,
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ds).Error; err != nil {
			return apperr.Internal("failed to create dataset", err)
		}
		if ds.SourceType == model.SourceComposed {
			if len(spec.Items) > 0 {
				if err := c.attachItems(tx, ds, spec.Items, nil); err != nil {
					return err
				}
			}
			ds.Status = model.DatasetReady
			if err := tx.Model(ds).Update("status", model.DatasetReady).Error; err != nil {
				return apperr.Internal("failed to mark dataset ready", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutils.Log.WithFields(logutils.Fields{"dataset": ds.ID, "members": len(spec.Items)}).
		Info("created dataset")
	return ds, nil
}

// Get returns the dataset and its direct members in creation order.
// A missing id yields (nil, nil, nil): absence is a signal, not an error.
func (c *Composer) Get(ctx context.Context, id uuid.UUID) (*model.Dataset, []Item, error) {
	var ds model.Dataset
	err := c.db.WithContext(ctx).First(&ds, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Internal("failed to fetch dataset", err)
	}
	items, err := c.directItems(c.db.WithContext(ctx), id)
	if err != nil {
		return nil, nil, err
	}
	return &ds, items, nil
}

// List returns one page of datasets and the exact total matching the same
// predicate, independent of page truncation.
func (c *Composer) List(ctx context.Context, f Filter) ([]model.Dataset, int64, error) {
	total, err := c.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []model.Dataset
	err = applyFilter(c.db.WithContext(ctx).Model(&model.Dataset{}), f).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, apperr.Internal("failed to list datasets", err)
	}
	return rows, total, nil
}

// Count returns the exact number of datasets matching the filter.
func (c *Composer) Count(ctx context.Context, f Filter) (int64, error) {
	var total int64
	err := applyFilter(c.db.WithContext(ctx).Model(&model.Dataset{}), f).Count(&total).Error
	if err != nil {
		return 0, apperr.Internal("failed to count datasets", err)
	}
	return total, nil
}

// Update applies a partial update. A non-nil ReplaceItems replaces the
// whole member set all-or-nothing: the new set is validated before any
// current member is removed from the committed state.
func (c *Composer) Update(ctx context.Context, id uuid.UUID, patch UpdateSpec) (*model.Dataset, error) {
	var ds model.Dataset
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ds, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("dataset %s not found", id)
			}
			return apperr.Internal("failed to fetch dataset", err)
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apperr.Validation("name must not be empty")
			}
			ds.Name = name
		}
		if patch.Description != nil {
			ds.Description = patch.Description
		}
		if patch.Purpose != nil {
			ds.Purpose = patch.Purpose
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return apperr.Validation("unknown status %d", *patch.Status)
			}
			ds.Status = *patch.Status
		}
		if patch.AlgorithmConfig != nil {
			ds.AlgorithmConfig = patch.AlgorithmConfig
		}
		if patch.FilePath != nil || patch.FileFormat != nil {
			if !ds.ReadOnly() {
				return apperr.Validation("file reference is only valid for an external-file dataset")
			}
			if patch.FilePath != nil {
				if strings.TrimSpace(*patch.FilePath) == "" {
					return apperr.Validation("file_path must not be empty")
				}
				ds.FilePath = patch.FilePath
			}
			if patch.FileFormat != nil {
				ds.FileFormat = patch.FileFormat
			}
		}

		if err := tx.Save(&ds).Error; err != nil {
			return apperr.Internal("failed to update dataset", err)
		}

		if patch.ReplaceItems != nil {
			if ds.ReadOnly() {
				return apperr.Validation("cannot modify items of an external-file dataset")
			}
			if err := tx.Where("dataset_id = ?", ds.ID).
				Delete(&model.DatasetMember{}).Error; err != nil {
				return apperr.Internal("failed to clear dataset members", err)
			}
			if err := c.attachItems(tx, &ds, *patch.ReplaceItems, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// AddItems attaches new members to a composed dataset. A (kind, id) pair
// already present, in the request or in storage, is a conflict.
func (c *Composer) AddItems(ctx context.Context, id uuid.UUID, items []Item) (*model.Dataset, error) {
	if len(items) == 0 {
		return nil, apperr.Validation("items must not be empty")
	}
	var ds model.Dataset
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ds, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("dataset %s not found", id)
			}
			return apperr.Internal("failed to fetch dataset", err)
		}
		if ds.ReadOnly() {
			return apperr.Validation("cannot add items to an external-file dataset")
		}

		existing, err := c.memberKeys(tx, ds.ID)
		if err != nil {
			return err
		}
		return c.attachItems(tx, &ds, items, existing)
	})
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// RemoveItems detaches the given (kind, id) pairs if present. Removal is
// idempotent: pairs that are not members are skipped without error.
func (c *Composer) RemoveItems(ctx context.Context, id uuid.UUID, items []Item) (*model.Dataset, error) {
	var ds model.Dataset
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ds, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("dataset %s not found", id)
			}
			return apperr.Internal("failed to fetch dataset", err)
		}
		if ds.ReadOnly() {
			return apperr.Validation("cannot remove items from an external-file dataset")
		}

		for _, it := range items {
			if err := tx.Where("dataset_id = ? AND item_type = ? AND item_id = ?",
				ds.ID, it.ItemType, it.ItemID).
				Delete(&model.DatasetMember{}).Error; err != nil {
				return apperr.Internal("failed to remove dataset member", err)
			}
		}
		return c.recount(tx, &ds)
	})
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// Delete removes the dataset together with its member rows.
func (c *Composer) Delete(ctx context.Context, id uuid.UUID) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ds model.Dataset
		if err := tx.First(&ds, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("dataset %s not found", id)
			}
			return apperr.Internal("failed to fetch dataset", err)
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&model.DatasetMember{}).Error; err != nil {
			return apperr.Internal("failed to delete dataset members", err)
		}
		if err := tx.Delete(&ds).Error; err != nil {
			return apperr.Internal("failed to delete dataset", err)
		}
		return nil
	})
}

// attachItems validates and inserts new member rows for ds, then recounts.
// existing, when non-nil, is the committed membership used for duplicate
// detection; duplicates inside items themselves are always rejected.
func (c *Composer) attachItems(tx *gorm.DB, ds *model.Dataset, items []Item, existing map[itemKey]struct{}) error {
	if len(items) == 0 {
		return c.recount(tx, ds)
	}

	seen := make(map[itemKey]struct{}, len(items))
	for _, it := range items {
		if !it.ItemType.Valid() {
			return apperr.Validation("invalid item_type %d", it.ItemType)
		}
		key := itemKey{kind: it.ItemType, id: it.ItemID}
		if _, dup := seen[key]; dup {
			return apperr.Conflict("duplicate item (%d, %s) in request", it.ItemType, it.ItemID)
		}
		if _, dup := existing[key]; dup {
			return apperr.Conflict("item (%d, %s) is already a member", it.ItemType, it.ItemID)
		}
		seen[key] = struct{}{}
	}

	if err := c.validateExistence(tx, items); err != nil {
		return err
	}
	if err := c.detectCycle(tx, ds.ID, items); err != nil {
		return err
	}

	members := make([]model.DatasetMember, 0, len(items))
	for _, it := range items {
		members = append(members, model.DatasetMember{
			DatasetID: ds.ID,
			ItemType:  it.ItemType,
			ItemID:    it.ItemID,
			Meta:      it.Meta,
		})
	}
	if err := tx.Create(&members).Error; err != nil {
		// Storage-level backstop for the uniqueness invariant.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("duplicate dataset membership")
		}
		return apperr.Internal("failed to insert dataset members", err)
	}
	return c.recount(tx, ds)
}

// memberKeys loads the committed (kind, id) membership set of a dataset.
func (c *Composer) memberKeys(tx *gorm.DB, datasetID uuid.UUID) (map[itemKey]struct{}, error) {
	var members []model.DatasetMember
	if err := tx.Select("item_type", "item_id").
		Where("dataset_id = ?", datasetID).
		Find(&members).Error; err != nil {
		return nil, apperr.Internal("failed to load dataset members", err)
	}
	keys := make(map[itemKey]struct{}, len(members))
	for _, m := range members {
		keys[itemKey{kind: m.ItemType, id: m.ItemID}] = struct{}{}
	}
	return keys, nil
}

// existenceChecker counts how many of the referenced ids exist.
type existenceChecker func(tx *gorm.DB, ids []uuid.UUID) (int64, error)

func countByID[T any](tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	var n int64
	var zero T
	err := tx.Model(&zero).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

// validateExistence checks referenced items against their tables via a
// dispatch table keyed by kind. Missing datastreams and scenes are logged
// as warnings only (their authoritative store cannot always be confirmed
// at request time); missing nested datasets are a hard failure.
func (c *Composer) validateExistence(tx *gorm.DB, items []Item) error {
	byKind := make(map[model.ItemKind][]uuid.UUID)
	for _, it := range items {
		byKind[it.ItemType] = append(byKind[it.ItemType], it.ItemID)
	}

	checkers := map[model.ItemKind]existenceChecker{
		model.ItemKindDatastream: countByID[model.Datastream],
		model.ItemKindScene:      countByID[model.Scene],
		model.ItemKindDataset:    countByID[model.Dataset],
	}

	for kind, ids := range byKind {
		found, err := checkers[kind](tx, ids)
		if err != nil {
			return apperr.Internal("failed to validate member existence", err)
		}
		if found >= int64(len(ids)) {
			continue
		}
		if kind == model.ItemKindDataset {
			return apperr.Validation("some referenced datasets do not exist")
		}
		logutils.Log.WithFields(logutils.Fields{
			"kind": kind, "referenced": len(ids), "found": found,
		}).Warn("some referenced items do not exist")
	}
	return nil
}

// detectCycle refuses nested dataset references that would close a cycle
// in the containment graph: a candidate equal to the parent, or appearing
// among the parent's ancestors (datasets containing the parent,
// transitively), is rejected. Ancestors are computed from persisted
// reverse-membership edges with a visited set, so traversal terminates
// even if corrupt data already contains a cycle.
func (c *Composer) detectCycle(tx *gorm.DB, parentID uuid.UUID, items []Item) error {
	var nested []uuid.UUID
	for _, it := range items {
		if it.ItemType == model.ItemKindDataset {
			nested = append(nested, it.ItemID)
		}
	}
	if len(nested) == 0 {
		return nil
	}

	ancestors := make(map[uuid.UUID]struct{})
	stack := []uuid.UUID{parentID}
	for len(stack) > 0 {
		target := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var parents []uuid.UUID
		if err := tx.Model(&model.DatasetMember{}).
			Where("item_type = ? AND item_id = ?", model.ItemKindDataset, target).
			Pluck("dataset_id", &parents).Error; err != nil {
			return apperr.Internal("failed to walk dataset ancestors", err)
		}
		for _, pid := range parents {
			if _, ok := ancestors[pid]; !ok {
				ancestors[pid] = struct{}{}
				stack = append(stack, pid)
			}
		}
	}

	for _, nid := range nested {
		if nid == parentID {
			return apperr.Validation("a dataset cannot contain itself")
		}
		if _, ok := ancestors[nid]; ok {
			return apperr.Validation("adding dataset %s would create a cycle", nid)
		}
	}
	return nil
}

// recount recomputes the per-kind member counters from the membership
// table. Counters are always derived by aggregation, never adjusted
// incrementally, so they cannot drift.
func (c *Composer) recount(tx *gorm.DB, ds *model.Dataset) error {
	type kindCount struct {
		ItemType model.ItemKind
		N        int
	}
	var rows []kindCount
	if err := tx.Model(&model.DatasetMember{}).
		Select("item_type, COUNT(*) AS n").
		Where("dataset_id = ?", ds.ID).
		Group("item_type").
		Scan(&rows).Error; err != nil {
		return apperr.Internal("failed to aggregate member counts", err)
	}

	ds.DatastreamCount, ds.SceneCount, ds.DatasetCount = 0, 0, 0
	for _, r := range rows {
		switch r.ItemType {
		case model.ItemKindDatastream:
			ds.DatastreamCount = r.N
		case model.ItemKindScene:
			ds.SceneCount = r.N
		case model.ItemKindDataset:
			ds.DatasetCount = r.N
		}
	}
	if err := tx.Model(ds).Updates(map[string]any{
		"datastream_count": ds.DatastreamCount,
		"scene_count":      ds.SceneCount,
		"dataset_count":    ds.DatasetCount,
	}).Error; err != nil {
		return apperr.Internal("failed to persist member counts", err)
	}
	return nil
}

// directItems loads the immediate members of a dataset in creation order.
func (c *Composer) directItems(tx *gorm.DB, datasetID uuid.UUID) ([]Item, error) {
	var members []model.DatasetMember
	if err := tx.Where("dataset_id = ?", datasetID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, apperr.Internal("failed to load dataset members", err)
	}
	items := make([]Item, 0, len(members))
	for _, m := range members {
		items = append(items, Item{ItemType: m.ItemType, ItemID: m.ItemID, Meta: m.Meta})
	}
	return items, nil
}

func applyFilter(tx *gorm.DB, f Filter) *gorm.DB {
	if f.Search != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	if f.Purpose != nil {
		tx = tx.Where("purpose = ?", *f.Purpose)
	}
	if f.Status != nil {
		tx = tx.Where("status = ?", *f.Status)
	}
	if f.SourceType != nil {
		tx = tx.Where("source_type = ?", *f.SourceType)
	}
	if f.CreatedBy != nil {
		tx = tx.Where("created_by = ?", *f.CreatedBy)
	}
	if f.CreatedFrom != nil {
		tx = tx.Where("created_at >= ?", f.CreatedFrom.Unix())
	}
	if f.CreatedTo != nil {
		tx = tx.Where("created_at <= ?", f.CreatedTo.Unix())
	}
	return tx
}
