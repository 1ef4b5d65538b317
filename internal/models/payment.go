package models

import "time"

// Payment records the external "payment succeeded" fact. Reference is unique per provider charge.
type Payment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClientID    uint      `gorm:"index;not null" json:"client_id"`
	MatterID    uint      `gorm:"index" json:"matter_id"`
	Reference   string    `gorm:"uniqueIndex;size:128;not null" json:"reference"`
	AmountMinor int64     `gorm:"not null" json:"amount_minor"`
	Currency    string    `gorm:"size:3;not null" json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

const InvoicePaid = "paid"

type Invoice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Number      string    `gorm:"uniqueIndex;size:32;not null" json:"number"`
	MatterID    uint      `gorm:"index;not null" json:"matter_id"`
	ClientID    uint      `gorm:"index;not null" json:"client_id"`
	PaymentID   uint      `gorm:"not null" json:"payment_id"`
	AmountMinor int64     `gorm:"not null" json:"amount_minor"`
	Currency    string    `gorm:"size:3;not null" json:"currency"`
	Status      string    `gorm:"size:20;not null" json:"status"`
	IssuedAt    time.Time `json:"issued_at"`
}

func (Invoice) TableName() string { return "invoices" }
