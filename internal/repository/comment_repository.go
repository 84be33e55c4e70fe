package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.TicketComment) error {
	return dbFrom(ctx, r.db).Create(comment).Error
}

func (r *CommentRepository) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketComment, error) {
	var comments []model.TicketComment
	err := dbFrom(ctx, r.db).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}
