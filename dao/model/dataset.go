package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Dataset is a composable grouping of datastreams, scenes, and nested
// datasets, or a reference to a prebuilt external file.
//
// The three member counters are derived: they always equal the live count
// of DatasetMember rows of the corresponding kind and are recomputed from
// the membership table on every mutation, never patched incrementally.
type Dataset struct {
	Base
	Name        string            `gorm:"type:varchar(255);not null;index" json:"name"`
	Description *string           `gorm:"type:varchar(2000)" json:"description"`
	Purpose     *string           `gorm:"type:varchar(64);index;comment:training/validation/test/production etc." json:"purpose"`
	Status      DatasetStatus     `gorm:"type:smallint;not null;index" json:"status"`
	SourceType  DatasetSourceType `gorm:"type:smallint;not null" json:"source_type"`

	// Set only for SourceExternalFile datasets.
	FilePath   *string `gorm:"type:varchar(1024)" json:"file_path"`
	FileFormat *string `gorm:"type:varchar(64);comment:pickle, parquet, tfrecord, etc." json:"file_format"`

	CreatedBy *string `gorm:"type:varchar(128)" json:"created_by"`

	DatastreamCount int `gorm:"not null;default:0" json:"datastream_count"`
	SceneCount      int `gorm:"not null;default:0" json:"scene_count"`
	DatasetCount    int `gorm:"not null;default:0" json:"dataset_count"`

	// Opaque configuration document (split ratios, stratification key, ...).
	AlgorithmConfig datatypes.JSON `json:"algorithm_config"`

	Members []DatasetMember `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ReadOnly reports whether membership mutation is forbidden for this
// dataset. External-file datasets never own member rows.
func (d *Dataset) ReadOnly() bool {
	return d.SourceType == SourceExternalFile
}

// DatasetMember is a directed edge from a dataset to a datastream, scene,
// or nested dataset. The (dataset_id, item_type, item_id) triple is unique:
// a dataset cannot contain the same item twice under the same kind.
type DatasetMember struct {
	Base
	DatasetID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_dataset_member" json:"dataset_id"`
	ItemType  ItemKind  `gorm:"type:smallint;not null;index;uniqueIndex:uq_dataset_member" json:"item_type"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_dataset_member" json:"item_id"`

	// Optional per-membership metadata (weighting, notes, etc.).
	Meta datatypes.JSON `json:"meta"`
}
