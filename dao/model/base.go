package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every entity: application-generated UUID primary key
// and epoch-second audit timestamps.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt int64     `gorm:"autoCreateTime;not null;index" json:"created_at"`
	UpdatedAt int64     `gorm:"autoUpdateTime;not null" json:"updated_at"`
}

// GetID returns the primary key.
func (b *Base) GetID() uuid.UUID { return b.ID }

// BeforeCreate assigns the UUID in the application layer so inserts never
// depend on database identity generation.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
