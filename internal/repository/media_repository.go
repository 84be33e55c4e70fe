package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type MediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Create(ctx context.Context, media *model.MediaFile) error {
	return dbFrom(ctx, r.db).Create(media).Error
}

func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaFile, error) {
	var media model.MediaFile
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&media).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &media, nil
}

func (r *MediaRepository) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.MediaFile, error) {
	var files []model.MediaFile
	err := dbFrom(ctx, r.db).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}
