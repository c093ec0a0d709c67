package model

import (
	"github.com/google/uuid"
)

// Sensor is a sensor-settings record bound to a vehicle. Settings is a JSON
// string validated at the API boundary and stored verbatim.
type Sensor struct {
	Base
	VehicleID uuid.UUID  `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Type      SensorType `gorm:"type:smallint;not null" json:"type"`
	Name      *string    `gorm:"type:varchar(255);comment:logical name, e.g. front-camera" json:"name"`
	Settings  string     `gorm:"type:text;not null" json:"settings"`
}
