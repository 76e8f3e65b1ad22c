package models

import "gorm.io/gorm"

// Client is a customer record. Quotes, work orders and invoices all hang
// off a client.
type Client struct {
	SyncFields

	Name    string `gorm:"not null" json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Notes   string `gorm:"type:text" json:"notes"`
}

func (Client) TableName() string {
	return "clients"
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	c.EnsureID()
	return nil
}
