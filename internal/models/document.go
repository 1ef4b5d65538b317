package models

import "time"

// MatterDocument stores an opaque storage reference; the bytes live elsewhere.
type MatterDocument struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MatterID      uint      `gorm:"index;not null" json:"matter_id"`
	UploadedBy    uint      `gorm:"not null" json:"uploaded_by"`
	StorageKey    string    `gorm:"size:500;not null" json:"storage_key"`
	FileName      string    `gorm:"size:255;not null" json:"file_name"`
	ContentType   string    `gorm:"size:100" json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	ClientVisible bool      `gorm:"default:false" json:"client_visible"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (MatterDocument) TableName() string { return "matter_documents" }

type MatterUpdate struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MatterID      uint      `gorm:"index;not null" json:"matter_id"`
	AuthorID      uint      `gorm:"not null" json:"author_id"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	ClientVisible bool      `gorm:"default:false" json:"client_visible"`
	CreatedAt     time.Time `json:"created_at"`
}

func (MatterUpdate) TableName() string { return "matter_updates" }
