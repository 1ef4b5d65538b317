package models

import "time"

type MatterStatus string

const (
	MatterDraft             MatterStatus = "Draft"
	MatterPendingReview     MatterStatus = "PendingReview"
	MatterInReview          MatterStatus = "InReview"
	MatterAwaitingDocuments MatterStatus = "AwaitingDocuments"
	MatterAssigned          MatterStatus = "Assigned"
	MatterInProgress        MatterStatus = "InProgress"
	MatterOnHold            MatterStatus = "OnHold"
	MatterCompleted         MatterStatus = "Completed"
	MatterClosed            MatterStatus = "Closed"
	MatterRejected          MatterStatus = "Rejected"
)

// AllMatterStatuses lists every state in declaration order.
var AllMatterStatuses = []MatterStatus{
	MatterDraft, MatterPendingReview, MatterInReview, MatterAwaitingDocuments, MatterAssigned,
	MatterInProgress, MatterOnHold, MatterCompleted, MatterClosed, MatterRejected,
}

func (s MatterStatus) Valid() bool {
	for _, st := range AllMatterStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal states have no outbound edges.
func (s MatterStatus) Terminal() bool {
	return s == MatterClosed || s == MatterRejected
}

// Practice areas
const (
	CategoryCorporate            = "corporate"
	CategoryLitigation           = "litigation"
	CategoryFamily               = "family"
	CategoryImmigration          = "immigration"
	CategoryRealEstate           = "real_estate"
	CategoryIntellectualProperty = "intellectual_property"
	CategoryEmployment           = "employment"
	CategoryCriminal             = "criminal"
	CategoryEstatePlanning       = "estate_planning"
	CategoryOther                = "other"
)

var matterCategories = map[string]bool{
	CategoryCorporate: true, CategoryLitigation: true, CategoryFamily: true,
	CategoryImmigration: true, CategoryRealEstate: true, CategoryIntellectualProperty: true,
	CategoryEmployment: true, CategoryCriminal: true, CategoryEstatePlanning: true, CategoryOther: true,
}

func IsValidCategory(category string) bool { return matterCategories[category] }

// Service tiers
const (
	TierStandard = "standard"
	TierPriority = "priority"
	TierUrgent   = "urgent"
)

func IsValidTier(tier string) bool {
	return tier == TierStandard || tier == TierPriority || tier == TierUrgent
}

// Matter is a legal case. It is never deleted; Closed and Rejected are terminal.
type Matter struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	MatterNumber string       `gorm:"uniqueIndex;size:32;not null" json:"matter_number"`
	ClientID     uint         `gorm:"index;not null" json:"client_id"`
	FirmID       *uint        `gorm:"index" json:"firm_id"`
	Title        string       `gorm:"size:255;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Category     string       `gorm:"size:50;index;not null" json:"category"`
	Tier         string       `gorm:"size:20;index;default:standard" json:"tier"`
	Status       MatterStatus `gorm:"size:30;index;not null" json:"status"`
	FiledBy      uint         `gorm:"not null" json:"filed_by"`
	ReviewDueAt  *time.Time   `gorm:"index" json:"review_due_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (Matter) TableName() string { return "matters" }
