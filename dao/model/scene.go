package model

import (
	"github.com/google/uuid"
)

// Scene is a labeled index range within a datastream.
type Scene struct {
	Base
	Name         *string    `gorm:"type:varchar(255);index" json:"name"`
	Type         *int16     `gorm:"type:smallint" json:"type"`
	State        *int16     `gorm:"type:smallint" json:"state"`
	DatastreamID *uuid.UUID `gorm:"type:uuid;index" json:"datastream_id"`
	StartIdx     int        `gorm:"not null" json:"start_idx"`
	EndIdx       int        `gorm:"not null" json:"end_idx"`
	DataPath     *string    `gorm:"type:varchar(1024)" json:"data_path"`
}
