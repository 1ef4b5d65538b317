package models

import "time"

// Firm is the tenant boundary. Staff profiles and intake-complete matters belong to exactly one firm.
type Firm struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	Slug         string    `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	ContactEmail string    `gorm:"size:255" json:"contact_email"`
	Phone        string    `gorm:"size:50" json:"phone"`
	Address      string    `gorm:"size:500" json:"address"`
	Timezone     string    `gorm:"size:64;default:UTC" json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Firm) TableName() string { return "firms" }
