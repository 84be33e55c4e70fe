package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type MunicipalityService struct {
	municipalities MunicipalityRepository
	boundaries     BoundaryRepository
	cache          *CacheService
	log            zerolog.Logger
}

func NewMunicipalityService(municipalities MunicipalityRepository, boundaries BoundaryRepository, cache *CacheService, log zerolog.Logger) *MunicipalityService {
	return &MunicipalityService{
		municipalities: municipalities,
		boundaries:     boundaries,
		cache:          cache,
		log:            log,
	}
}

type MunicipalityInput struct {
	Name      string     `json:"name" validate:"required,notblank,max=255"`
	Latitude  *float64   `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64   `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	AdminID   *uuid.UUID `json:"admin_id"`
}

func (s *MunicipalityService) List(ctx context.Context) ([]model.Municipality, error) {
	return s.municipalities.List(ctx)
}

func (s *MunicipalityService) Get(ctx context.Context, id uuid.UUID) (*model.Municipality, error) {
	m, err := s.municipalities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MunicipalityService) Create(ctx context.Context, principal model.Principal, input MunicipalityInput) (*model.Municipality, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	m := &model.Municipality{
		Name:      strings.TrimSpace(input.Name),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		AdminID:   input.AdminID,
	}
	if err := s.municipalities.Create(ctx, m); err != nil {
		return nil, err
	}

	s.log.Info().Str("municipality_id", m.ID.String()).Str("name", m.Name).Msg("municipality created")
	s.invalidateStats(ctx)
	return m, nil
}

func (s *MunicipalityService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, input MunicipalityInput) (*model.Municipality, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Name = strings.TrimSpace(input.Name)
	m.Latitude = input.Latitude
	m.Longitude = input.Longitude
	m.AdminID = input.AdminID

	if err := s.municipalities.Update(ctx, m); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return m, nil
}

// Delete fails with ErrConflict while users or tickets still reference the municipality.
func (s *MunicipalityService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.IsAdmin() {
		return ErrPermissionDenied
	}

	if err := s.municipalities.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrNotFound
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return fmt.Errorf("%w: municipality is still referenced", ErrConflict)
		default:
			return err
		}
	}

	s.log.Info().Str("municipality_id", id.String()).Msg("municipality deleted")
	s.invalidateStats(ctx)
	return nil
}

func (s *MunicipalityService) Boundary(ctx context.Context, id uuid.UUID) (*model.MunicipalityBoundary, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	b, err := s.boundaries.GetByMunicipalityID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: municipality has no boundary", ErrNotFound)
	}
	return b, nil
}

// SetBoundary replaces the municipality's polygon.
func (s *MunicipalityService) SetBoundary(ctx context.Context, principal model.Principal, id uuid.UUID, geometry json.RawMessage) (*model.MunicipalityBoundary, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := validatePolygon(geometry); err != nil {
		return nil, err
	}

	b := &model.MunicipalityBoundary{
		MunicipalityID: id,
		Geometry:       datatypes.JSON(geometry),
	}
	if err := s.boundaries.Upsert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *MunicipalityService) invalidateStats(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, statsCachePrefix+"*")
}

type geoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// validatePolygon accepts a GeoJSON Polygon whose rings are closed and have
// at least four positions.
func validatePolygon(raw json.RawMessage) error {
	var p geoJSONPolygon
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: geometry is not valid GeoJSON", ErrValidation)
	}
	if p.Type != "Polygon" {
		return fmt.Errorf("%w: geometry type must be Polygon", ErrValidation)
	}
	if len(p.Coordinates) == 0 {
		return fmt.Errorf("%w: polygon has no rings", ErrValidation)
	}
	for i, ring := range p.Coordinates {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring %d needs at least 4 positions", ErrValidation, i)
		}
		for _, pos := range ring {
			if len(pos) < 2 || pos[0] < -180 || pos[0] > 180 || pos[1] < -90 || pos[1] > 90 {
				return fmt.Errorf("%w: ring %d has an invalid position", ErrValidation, i)
			}
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			return fmt.Errorf("%w: ring %d is not closed", ErrValidation, i)
		}
	}
	return nil
}
