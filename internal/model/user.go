package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash   string     `gorm:"type:text;not null" json:"-"`
	FullName       string     `gorm:"type:varchar(255)" json:"full_name"`
	Role           Role       `gorm:"type:varchar(20);not null;index" json:"role"`
	MunicipalityID *uuid.UUID `gorm:"type:uuid;index" json:"municipality_id"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) Principal() Principal {
	return Principal{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           u.Role,
		MunicipalityID: u.MunicipalityID,
	}
}
