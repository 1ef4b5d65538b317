package models

import (
	"strings"
	"time"
)

const (
	RoleAdminManager    = "admin_manager"
	RoleCaseManager     = "case_manager"
	RoleAssociateLawyer = "associate_lawyer"
	RoleClient          = "client"
)

const (
	StatusActive            = "active"
	StatusSuspended         = "suspended"
	StatusDeactivated       = "deactivated"
	StatusLocked            = "locked"
	StatusPendingOnboarding = "pending_onboarding"
)

const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

// Profile is a principal: firm staff or an external client.
type Profile struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	FirmID    *uint      `gorm:"index" json:"firm_id"`
	Email     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string     `gorm:"size:255" json:"-"`                      // empty for LDAP staff
	AuthType  string     `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	Role      string     `gorm:"size:50;index" json:"role"`              // empty until provisioned
	Status    string     `gorm:"size:30;index;default:active" json:"status"`
	FirstName string     `gorm:"size:100" json:"first_name"`
	LastName  string     `gorm:"size:100" json:"last_name"`
	Phone     string     `gorm:"size:50" json:"phone"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsFirmRole reports whether role belongs to firm staff.
func IsFirmRole(role string) bool {
	switch role {
	case RoleAdminManager, RoleCaseManager, RoleAssociateLawyer:
		return true
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusSuspended, StatusDeactivated, StatusLocked, StatusPendingOnboarding:
		return true
	}
	return false
}

// IsRevokingStatus reports whether moving a principal into status must end their sessions.
func IsRevokingStatus(status string) bool {
	switch status {
	case StatusSuspended, StatusDeactivated, StatusLocked:
		return true
	}
	return false
}
