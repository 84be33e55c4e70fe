package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification is an in-app message. Only Read changes after creation.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	TicketID  *uuid.UUID       `gorm:"type:uuid" json:"ticket_id"`
	Read      bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index:,sort:desc" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NotificationChannels is the JSON document stored per user.
type NotificationChannels struct {
	EmailEnabled bool `json:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	PushEnabled  bool `json:"push_enabled"`
	InAppEnabled bool `json:"in_app_enabled"`
}

func DefaultNotificationChannels() NotificationChannels {
	return NotificationChannels{EmailEnabled: true, SMSEnabled: false, PushEnabled: true, InAppEnabled: true}
}

type NotificationPreference struct {
	ID        uuid.UUID                                `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID                                `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Channels  datatypes.JSONType[NotificationChannels] `gorm:"type:jsonb;not null" json:"channels"`
	UpdatedAt time.Time                                `gorm:"autoUpdateTime" json:"updated_at"`
}

func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

func (p *NotificationPreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
