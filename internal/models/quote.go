package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quote statuses.
const (
	QuoteDraft    = "draft"
	QuoteSent     = "sent"
	QuoteAccepted = "accepted"
	QuoteDeclined = "declined"
)

// LineItem is one row of a quote or invoice. Lines travel as a JSON column
// so the mobile client can edit them offline without per-line sync.
type LineItem struct {
	ItemID      *string `json:"itemId,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// Quote is a priced estimate for a client.
type Quote struct {
	SyncFields

	ClientID   string         `gorm:"type:uuid;not null;index" json:"clientId"`
	Number     string         `gorm:"index" json:"number"`
	Status     string         `gorm:"default:'draft'" json:"status"`
	Lines      datatypes.JSON `json:"lines"`
	Subtotal   float64        `gorm:"type:decimal(10,2)" json:"subtotal"`
	TaxRate    float64        `gorm:"type:decimal(5,2)" json:"taxRate"`
	Total      float64        `gorm:"type:decimal(10,2)" json:"total"`
	ValidUntil *time.Time     `json:"validUntil"`
	Notes      string         `gorm:"type:text" json:"notes"`
}

func (Quote) TableName() string {
	return "quotes"
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	q.EnsureID()
	return nil
}
