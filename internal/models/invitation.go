package models

import "time"

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	// InvitationExpired is never stored. It is derived from ExpiresAt.
	InvitationExpired = "expired"
)

type Invitation struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	FirmID          uint       `gorm:"index;not null" json:"firm_id"`
	Email           string     `gorm:"size:255;index;not null" json:"email"`
	Role            string     `gorm:"size:50;not null" json:"role"`
	TokenHash       string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt       time.Time  `gorm:"index;not null" json:"expires_at"`
	Status          string     `gorm:"size:20;index;default:pending" json:"status"`
	InvitedBy       uint       `gorm:"not null" json:"invited_by"`
	AcceptedBy      *uint      `json:"accepted_by,omitempty"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	LapseNotifiedAt *time.Time `json:"lapse_notified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Invitation) TableName() string { return "invitations" }
