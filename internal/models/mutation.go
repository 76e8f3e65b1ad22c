package models

import (
	"time"

	"gorm.io/datatypes"
)

// MutationRecord is one row of the idempotency ledger: the outcome of an
// applied (or rejected, or conflicted) push mutation, keyed by the owning
// account plus the client's mutation id so equal ids from different
// accounts never collide. Rows are pruned after the retention window; a
// retry arriving later than that re-executes, which is safe for this data
// model.
type MutationRecord struct {
	UserID       string         `gorm:"primaryKey;type:uuid" json:"userId"`
	MutationID   string         `gorm:"primaryKey;type:uuid" json:"mutationId"`
	EntityType   string         `gorm:"not null" json:"entityType"`
	EntityID     string         `gorm:"type:uuid;index" json:"entityId"`
	Status       string         `gorm:"not null" json:"status"`
	Reason       string         `json:"reason,omitempty"`
	ServerEntity datatypes.JSON `json:"serverEntity,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`
}

func (MutationRecord) TableName() string {
	return "sync_mutations"
}
