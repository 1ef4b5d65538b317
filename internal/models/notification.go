package models

import "time"

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

// Notification event types
const (
	EventMatterStatusChanged = "matter_status_changed"
	EventMatterAssigned      = "matter_assigned"
	EventDocumentShared      = "document_shared"
	EventCaseUpdate          = "case_update"
	EventInvitationLapsed    = "invitation_lapsed"
	EventReviewOverdue       = "review_overdue"
)

type Notification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RecipientID uint       `gorm:"index:idx_notification_recipient_read;not null" json:"recipient_id"`
	FirmID      *uint      `gorm:"index" json:"firm_id,omitempty"`
	MatterID    *uint      `gorm:"index" json:"matter_id,omitempty"`
	EventType   string     `gorm:"size:50;not null" json:"event_type"`
	Channel     string     `gorm:"size:20;default:in_app" json:"channel"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Message     string     `gorm:"type:text" json:"message"`
	Link        string     `gorm:"size:500" json:"link,omitempty"`
	ReadAt      *time.Time `gorm:"index:idx_notification_recipient_read" json:"read_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
