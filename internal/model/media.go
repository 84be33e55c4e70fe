package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaFile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID       uuid.UUID `gorm:"type:uuid;not null;index" json:"ticket_id"`
	UploadedBy     uuid.UUID `gorm:"type:uuid;not null;index" json:"uploaded_by"`
	Filename       string    `gorm:"type:varchar(255);not null" json:"filename"`
	StoredFilename string    `gorm:"type:varchar(255);not null" json:"-"`
	MimeType       string    `gorm:"type:varchar(100)" json:"mime_type"`
	Size           int64     `gorm:"not null" json:"size"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MediaFile) TableName() string {
	return "media_files"
}

func (m *MediaFile) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
