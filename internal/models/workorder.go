package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Work order statuses.
const (
	WorkOrderScheduled  = "scheduled"
	WorkOrderInProgress = "in_progress"
	WorkOrderDone       = "done"
	WorkOrderCancelled  = "cancelled"
)

// WorkOrder is a scheduled job at a client site. AssignedTo carries the
// technician's user id and drives the assigned pull scope.
type WorkOrder struct {
	SyncFields

	ClientID    string         `gorm:"type:uuid;not null;index" json:"clientId"`
	QuoteID     *string        `gorm:"type:uuid;index" json:"quoteId"`
	Number      string         `gorm:"index" json:"number"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"default:'scheduled'" json:"status"`
	ScheduledAt *time.Time     `gorm:"index" json:"scheduledAt"`
	CompletedAt *time.Time     `json:"completedAt"`
	AssignedTo  *string        `gorm:"type:uuid;index" json:"assignedTo"`
	Notes       string         `gorm:"type:text" json:"notes"`
	Photos      datatypes.JSON `json:"photos"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

func (w *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	w.EnsureID()
	return nil
}
