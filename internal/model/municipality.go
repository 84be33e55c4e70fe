package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Municipality struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(255);not null;index" json:"name"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	AdminID   *uuid.UUID `gorm:"type:uuid;index" json:"admin_id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Municipality) TableName() string {
	return "municipalities"
}

func (m *Municipality) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MunicipalityBoundary stores the GeoJSON polygon of a municipality, one per municipality.
type MunicipalityBoundary struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MunicipalityID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"municipality_id"`
	Geometry       datatypes.JSON `gorm:"type:jsonb;not null" json:"geometry"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MunicipalityBoundary) TableName() string {
	return "municipality_boundaries"
}

func (b *MunicipalityBoundary) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
