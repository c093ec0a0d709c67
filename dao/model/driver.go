package model

import (
	"time"

	"github.com/google/uuid"
)

// Driver is a test driver operating collection vehicles.
type Driver struct {
	Base
	Email    *string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Name     string  `gorm:"type:varchar(255);not null;index" json:"name"`
	NameKana *string `gorm:"type:varchar(255)" json:"name_kana"`

	LicenseNumber     *string    `gorm:"type:varchar(64)" json:"license_number"`
	LicenseType       *string    `gorm:"type:varchar(64)" json:"license_type"`
	LicenseExpiryDate *time.Time `gorm:"type:date" json:"license_expiry_date"`

	CertificationLevel    CertificationLevel `gorm:"type:smallint;not null;default:0" json:"certification_level"`
	CertificationDate     *time.Time         `gorm:"type:date" json:"certification_date"`
	TrainingCompletedDate *time.Time         `gorm:"type:date" json:"training_completed_date"`

	Status         DriverStatus   `gorm:"type:smallint;not null;default:1;index" json:"status"`
	EmploymentType EmploymentType `gorm:"type:smallint;not null;default:1" json:"employment_type"`

	Department   *string    `gorm:"type:varchar(128)" json:"department"`
	Team         *string    `gorm:"type:varchar(128)" json:"team"`
	SupervisorID *uuid.UUID `gorm:"type:uuid" json:"supervisor_id"`

	TotalDrives   int        `gorm:"not null;default:0" json:"total_drives"`
	TotalDistance *float64   `gorm:"type:decimal(10,2)" json:"total_distance"`
	TotalDuration int64      `gorm:"not null;default:0;comment:seconds" json:"total_duration"`
	LastDriveDate *time.Time `gorm:"type:date" json:"last_drive_date"`

	SafetyScore      *float64 `gorm:"type:decimal(3,2)" json:"safety_score"`
	EfficiencyScore  *float64 `gorm:"type:decimal(3,2)" json:"efficiency_score"`
	DataQualityScore *float64 `gorm:"type:decimal(3,2)" json:"data_quality_score"`

	PhoneNumber      *string `gorm:"type:varchar(32)" json:"phone_number"`
	EmergencyContact *string `gorm:"type:varchar(255)" json:"emergency_contact"`

	Notes *string `gorm:"type:text" json:"notes"`
	// Free-form JSON string; column named metadata for compatibility.
	ExtraMetadata *string `gorm:"column:metadata;type:text" json:"metadata"`
}
