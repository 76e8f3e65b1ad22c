package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoice statuses.
const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
	InvoiceVoid  = "void"
)

// Invoice bills a client, optionally for a completed work order.
type Invoice struct {
	SyncFields

	ClientID    string         `gorm:"type:uuid;not null;index" json:"clientId"`
	WorkOrderID *string        `gorm:"type:uuid;index" json:"workOrderId"`
	Number      string         `gorm:"index" json:"number"`
	Status      string         `gorm:"default:'draft'" json:"status"`
	Lines       datatypes.JSON `json:"lines"`
	Subtotal    float64        `gorm:"type:decimal(10,2)" json:"subtotal"`
	TaxRate     float64        `gorm:"type:decimal(5,2)" json:"taxRate"`
	Total       float64        `gorm:"type:decimal(10,2)" json:"total"`
	DueAt       *time.Time     `json:"dueAt"`
	PaidAt      *time.Time     `json:"paidAt"`
	Notes       string         `gorm:"type:text" json:"notes"`
}

func (Invoice) TableName() string {
	return "invoices"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	i.EnsureID()
	return nil
}
