package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schema-less settings and flag storage. One live row per key; opt-out style
// removal soft-deletes the row so the audit history survives, and a later
// re-activation undeletes it instead of inserting a duplicate.
type ConfigEntry struct {
	Model
	DeletedAt gorm.DeletedAt `gorm:"index"`
	Key       string         `gorm:"uniqueIndex"`
	Value     string
	Scope     string
}

func (ConfigEntry) TableName() string {
	return "config_entry"
}

func (e ConfigEntry) GetID() uuid.UUID {
	return e.ID
}
