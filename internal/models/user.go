package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. Technicians only see their own tenant's data; the role field
// exists for the web dashboard, not for sync scoping.
const (
	RoleAdmin = "admin"
	RoleTech  = "tech"
)

// User is an account that owns synced records. Users are not themselves
// synced to devices.
type User struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `json:"name"`
	Role         string         `gorm:"default:'tech'" json:"role"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
