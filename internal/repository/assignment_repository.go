package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment *model.TicketAssignment) error {
	return dbFrom(ctx, r.db).Create(assignment).Error
}

// DeactivateActive closes the active assignment of a ticket, if any.
// History rows are kept.
func (r *AssignmentRepository) DeactivateActive(ctx context.Context, ticketID uuid.UUID) error {
	now := time.Now().UTC()
	return dbFrom(ctx, r.db).Model(&model.TicketAssignment{}).
		Where("ticket_id = ? AND is_active = ?", ticketID, true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"unassigned_at": now,
		}).Error
}

func (r *AssignmentRepository) FindActiveByTicket(ctx context.Context, ticketID uuid.UUID) (*model.TicketAssignment, error) {
	var assignment model.TicketAssignment
	err := dbFrom(ctx, r.db).
		Where("ticket_id = ? AND is_active = ?", ticketID, true).
		Order("assigned_at DESC").
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

// ListByTicketID returns the assignment history of a ticket, newest first.
func (r *AssignmentRepository) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketAssignment, error) {
	var assignments []model.TicketAssignment
	err := dbFrom(ctx, r.db).
		Where("ticket_id = ?", ticketID).
		Order("assigned_at DESC").
		Find(&assignments).Error
	return assignments, err
}
