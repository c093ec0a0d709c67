package model

import (
	"github.com/google/uuid"
)

// Datastream is a single sensor stream extracted from a measurement.
type Datastream struct {
	Base
	Type          int16     `gorm:"type:smallint;not null;index" json:"type"`
	MeasurementID uuid.UUID `gorm:"type:uuid;not null;index" json:"measurement_id"`
	DataPath      *string   `gorm:"type:varchar(1024)" json:"data_path"`
	SrcPath       *string   `gorm:"type:varchar(1024)" json:"src_path"`
}
