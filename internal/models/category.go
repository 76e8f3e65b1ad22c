package models

import "gorm.io/gorm"

// Category groups price-book items. Catalog data is tenant-global within a
// user account, so the assigned pull scope treats it like all.
type Category struct {
	SyncFields

	Name     string `gorm:"not null" json:"name"`
	Position int    `gorm:"default:0" json:"position"`

	// ERP linkage, empty for locally created categories.
	ErpID int64 `gorm:"index" json:"erpId,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	c.EnsureID()
	return nil
}
