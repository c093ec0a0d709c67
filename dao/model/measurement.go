package model

import (
	"time"

	"github.com/google/uuid"
)

// Measurement is one recorded drive of a vehicle through an area.
type Measurement struct {
	Base
	VehicleID  uuid.UUID `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	AreaID     uuid.UUID `gorm:"type:uuid;not null;index" json:"area_id"`
	LocalTime  time.Time `gorm:"not null" json:"local_time"`
	MeasuredAt int64     `gorm:"not null;index;comment:epoch seconds" json:"measured_at"`
	DataPath   *string   `gorm:"type:varchar(1024)" json:"data_path"`
}
