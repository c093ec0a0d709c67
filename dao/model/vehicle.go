package model

// Vehicle is a data-collection vehicle of the fleet.
type Vehicle struct {
	Base
	Country  *string `gorm:"type:varchar(64);comment:registration country" json:"country"`
	Name     string  `gorm:"type:varchar(255);not null;index;comment:vehicle name" json:"name"`
	DataPath *string `gorm:"type:varchar(1024);comment:root path of collected data" json:"data_path"`
}
