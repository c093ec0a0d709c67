package model

import (
	"github.com/google/uuid"
)

// Pipeline is a registered processing pipeline definition. Params and
// Options are JSON strings validated at the API boundary.
type Pipeline struct {
	Base
	Name        string  `gorm:"type:varchar(255);not null;index" json:"name"`
	Type        int16   `gorm:"type:smallint;not null" json:"type"`
	Group       int16   `gorm:"type:smallint;not null" json:"group"`
	IsAvailable int16   `gorm:"type:smallint;not null;comment:0=unavailable 1=available" json:"is_available"`
	Version     int16   `gorm:"type:smallint;not null" json:"version"`
	Options     *string `gorm:"type:text" json:"options"`
	Params      string  `gorm:"type:text;not null" json:"params"`
}

// PipelineData is an input or output artifact of a pipeline run.
type PipelineData struct {
	Base
	Name         *string    `gorm:"type:varchar(255)" json:"name"`
	Type         int16      `gorm:"type:smallint;not null" json:"type"`
	DatastreamID *uuid.UUID `gorm:"type:uuid;index" json:"datastream_id"`
	SceneID      *uuid.UUID `gorm:"type:uuid;index" json:"scene_id"`
	Source       *string    `gorm:"type:varchar(255)" json:"source"`
	DataPath     *string    `gorm:"type:varchar(1024)" json:"data_path"`
	Params       *string    `gorm:"type:text" json:"params"`
}

// PipelineState tracks one pipeline's processing of one data artifact.
type PipelineState struct {
	Base
	PipelineDataID uuid.UUID `gorm:"column:pipelinedata_id;type:uuid;not null;index" json:"pipelinedata_id"`
	PipelineID     uuid.UUID `gorm:"type:uuid;not null;index" json:"pipeline_id"`
	Input          string    `gorm:"type:text;not null" json:"input"`
	Output         string    `gorm:"type:text;not null" json:"output"`
	State          int16     `gorm:"type:smallint;not null;index" json:"state"`
}

// PipelineDependency is a parent→child edge between pipelines.
type PipelineDependency struct {
	Base
	ParentID uuid.UUID `gorm:"type:uuid;not null;index" json:"parent_id"`
	ChildID  uuid.UUID `gorm:"type:uuid;not null;index" json:"child_id"`
}
