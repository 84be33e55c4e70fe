package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
	TicketStatusRejected   TicketStatus = "rejected"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusCompleted, TicketStatusRejected:
		return true
	}
	return false
}

// Known categories. The column is open-ended; these are the ones the UI offers.
const (
	CategoryRoads    = "roads"
	CategoryLighting = "lighting"
	CategoryWaste    = "waste"
	CategoryGreenery = "greenery"
	CategoryOther    = "other"
)

var KnownCategories = []string{CategoryRoads, CategoryLighting, CategoryWaste, CategoryGreenery, CategoryOther}

type Ticket struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	MunicipalityID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"municipality_id"`
	CitizenID          *uuid.UUID   `gorm:"type:uuid;index" json:"citizen_id"`
	IsAnonymous        bool         `gorm:"not null;default:false" json:"is_anonymous"`
	AssignedOperatorID *uuid.UUID   `gorm:"type:uuid;index" json:"assigned_operator_id"`
	Status             TicketStatus `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	Category           string       `gorm:"type:varchar(32);not null" json:"category"`
	Title              string       `gorm:"type:varchar(200);not null" json:"title"`
	Description        string       `gorm:"type:text;not null" json:"description"`
	Latitude           float64      `gorm:"not null" json:"latitude"`
	Longitude          float64      `gorm:"not null" json:"longitude"`
	Address            *string      `gorm:"type:text" json:"address"`
	CompletedAt        *time.Time   `json:"completed_at"`
	RejectedAt         *time.Time   `json:"rejected_at"`
	RejectionReason    *string      `gorm:"type:text" json:"rejection_reason"`
	CreatedAt          time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// OwnedBy is false for anonymous tickets.
func (t *Ticket) OwnedBy(userID uuid.UUID) bool {
	return t.CitizenID != nil && *t.CitizenID == userID
}

func (t *Ticket) AssignedTo(userID uuid.UUID) bool {
	return t.AssignedOperatorID != nil && *t.AssignedOperatorID == userID
}

type TicketComment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"ticket_id"`
	AuthorID   *uuid.UUID `gorm:"type:uuid" json:"author_id"`
	AuthorRole Role       `gorm:"type:varchar(20);not null" json:"author_role"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (TicketComment) TableName() string {
	return "ticket_comments"
}

func (c *TicketComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type TicketFeedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"ticket_id"`
	CitizenID uuid.UUID `gorm:"type:uuid;not null;index" json:"citizen_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   *string   `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TicketFeedback) TableName() string {
	return "ticket_feedback"
}

func (f *TicketFeedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// TicketDetails is a ticket with everything attached to it.
type TicketDetails struct {
	Ticket      Ticket             `json:"ticket"`
	Comments    []TicketComment    `json:"comments"`
	Feedback    *TicketFeedback    `json:"feedback"`
	Assignment  *TicketAssignment  `json:"assignment"`
	Assignments []TicketAssignment `json:"assignment_history"`
}
