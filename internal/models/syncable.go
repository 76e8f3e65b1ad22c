package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncFields is embedded by every record type the mobile client syncs.
// IDs are client-assignable UUIDs so records can be created offline.
// UpdatedAt is written by the server only (database NowFunc); the pull
// window index covers the keyset (user_id, updated_at, id).
type SyncFields struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index:,composite:owner_window,priority:1" json:"userId"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `gorm:"index:,composite:owner_window,priority:2" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt"`
}

// Sync exposes the shared fields to the entity adapters.
func (f *SyncFields) Sync() *SyncFields { return f }

// Deleted reports whether the record is a tombstone.
func (f *SyncFields) Deleted() bool { return f.DeletedAt.Valid }

// Synced is implemented by all syncable record types.
type Synced interface {
	Sync() *SyncFields
	TableName() string
}

// EnsureID assigns a server-side UUID when the client did not provide one.
func (f *SyncFields) EnsureID() {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
}
