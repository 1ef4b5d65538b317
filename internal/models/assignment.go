package models

import "time"

// Assignment binds a matter to the associate performing the work.
// An assignment is active while SupersededAt is nil.
type Assignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	MatterID     uint       `gorm:"index;not null" json:"matter_id"`
	StaffID      uint       `gorm:"index;not null" json:"staff_id"`
	AssignedBy   uint       `gorm:"not null" json:"assigned_by"`
	AssignedAt   time.Time  `gorm:"not null" json:"assigned_at"`
	SupersededAt *time.Time `gorm:"index" json:"superseded_at,omitempty"`
	SupersededBy *uint      `json:"superseded_by,omitempty"`
	Staff        *Profile   `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }
