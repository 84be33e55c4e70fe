package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create fails with gorm.ErrDuplicatedKey when the email is taken.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return dbFrom(ctx, r.db).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := dbFrom(ctx, r.db).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListByRole lists active users of a role, optionally limited to one municipality.
func (r *UserRepository) ListByRole(ctx context.Context, role model.Role, municipalityID *uuid.UUID) ([]model.User, error) {
	query := dbFrom(ctx, r.db).Where("role = ? AND is_active = ?", role, true)
	if municipalityID != nil {
		query = query.Where("municipality_id = ?", *municipalityID)
	}

	var users []model.User
	err := query.Order("full_name ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&model.User{}).Count(&count).Error
	return count, err
}
