package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketAssignment records who worked a ticket and when. At most one row per
// ticket is active; rejecting an in-progress ticket closes it.
type TicketAssignment struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"ticket_id"`
	OperatorID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"operator_id"`
	AssignedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"assigned_by"`
	AssignedAt   time.Time  `gorm:"not null" json:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
}

func (TicketAssignment) TableName() string {
	return "ticket_assignments"
}

func (ta *TicketAssignment) BeforeCreate(tx *gorm.DB) error {
	if ta.ID == uuid.Nil {
		ta.ID = uuid.New()
	}
	if ta.AssignedAt.IsZero() {
		ta.AssignedAt = time.Now()
	}
	return nil
}
