package models

import "time"

const (
	AuditCaseFiled          = "case_filed"
	AuditCaseStatusChanged  = "case_status_changed"
	AuditCaseAssigned       = "case_assigned"
	AuditUserInvited        = "user_invited"
	AuditInvitationAccepted = "invitation_accepted"
	AuditUserStatusChanged  = "user_status_changed"
	AuditFirmUpdated        = "firm_updated"
	AuditDocumentAdded      = "document_added"
	AuditDocumentVisibility = "document_visibility_changed"
	AuditCaseUpdatePosted   = "case_update_posted"
	AuditPaymentRecorded    = "payment_recorded"
	AuditUserRegistered     = "user_registered"
)

// AuditRecord is append-only. There is no update or delete path.
type AuditRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirmID    *uint     `gorm:"index" json:"firm_id"`
	ActorID   uint      `gorm:"index;not null" json:"actor_id"`
	Action    string    `gorm:"size:50;index;not null" json:"action"`
	TargetID  *uint     `gorm:"index" json:"target_id,omitempty"`
	MatterID  *uint     `gorm:"index" json:"matter_id,omitempty"`
	Details   string    `gorm:"type:text" json:"details,omitempty"` // JSON
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditRecord) TableName() string { return "audit_records" }
