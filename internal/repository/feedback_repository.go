package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create fails with gorm.ErrDuplicatedKey when the ticket already has feedback.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *model.TicketFeedback) error {
	return dbFrom(ctx, r.db).Create(feedback).Error
}

func (r *FeedbackRepository) FindByTicketID(ctx context.Context, ticketID uuid.UUID) (*model.TicketFeedback, error) {
	var feedback model.TicketFeedback
	err := dbFrom(ctx, r.db).Where("ticket_id = ?", ticketID).First(&feedback).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feedback, nil
}
