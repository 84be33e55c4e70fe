package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cityfix-service/internal/model"
)

type MunicipalityRepository struct {
	db *gorm.DB
}

func NewMunicipalityRepository(db *gorm.DB) *MunicipalityRepository {
	return &MunicipalityRepository{db: db}
}

func (r *MunicipalityRepository) Create(ctx context.Context, municipality *model.Municipality) error {
	return dbFrom(ctx, r.db).Create(municipality).Error
}

func (r *MunicipalityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Municipality, error) {
	var municipality model.Municipality
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&municipality).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &municipality, nil
}

func (r *MunicipalityRepository) List(ctx context.Context) ([]model.Municipality, error) {
	var municipalities []model.Municipality
	err := dbFrom(ctx, r.db).Order("name ASC").Find(&municipalities).Error
	return municipalities, err
}

func (r *MunicipalityRepository) Update(ctx context.Context, municipality *model.Municipality) error {
	return dbFrom(ctx, r.db).Save(municipality).Error
}

func (r *MunicipalityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFrom(ctx, r.db).Where("id = ?", id).Delete(&model.Municipality{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MunicipalityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&model.Municipality{}).Count(&count).Error
	return count, err
}

type BoundaryRepository struct {
	db *gorm.DB
}

func NewBoundaryRepository(db *gorm.DB) *BoundaryRepository {
	return &BoundaryRepository{db: db}
}

func (r *BoundaryRepository) GetByMunicipalityID(ctx context.Context, municipalityID uuid.UUID) (*model.MunicipalityBoundary, error) {
	var boundary model.MunicipalityBoundary
	err := dbFrom(ctx, r.db).Where("municipality_id = ?", municipalityID).First(&boundary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &boundary, nil
}

// Upsert replaces the geometry of the municipality's boundary.
func (r *BoundaryRepository) Upsert(ctx context.Context, boundary *model.MunicipalityBoundary) error {
	boundary.UpdatedAt = time.Now().UTC()
	return dbFrom(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "municipality_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"geometry", "updated_at"}),
	}).Create(boundary).Error
}
