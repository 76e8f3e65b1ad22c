package models

import "gorm.io/gorm"

// Item is a price-book entry: a product or a service with a unit price.
// ERP imports land here through the same adapter the sync engine uses.
type Item struct {
	SyncFields

	CategoryID  *string `gorm:"type:uuid;index" json:"categoryId"`
	SKU         string  `gorm:"index" json:"sku"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Unit        string  `gorm:"default:'ea'" json:"unit"`
	UnitPrice   float64 `gorm:"type:decimal(10,2)" json:"unitPrice"`
	Taxable     bool    `gorm:"default:true" json:"taxable"`
	Active      bool    `gorm:"default:true" json:"active"`

	// ERP linkage, empty for locally created items.
	ErpID int64 `gorm:"index" json:"erpId,omitempty"`
}

func (Item) TableName() string {
	return "items"
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	i.EnsureID()
	return nil
}
