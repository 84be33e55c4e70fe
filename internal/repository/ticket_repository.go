package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

// ErrStaleStatus means the ticket left the expected status before the update ran.
var ErrStaleStatus = errors.New("ticket status changed concurrently")

const metersPerDegreeLat = 111320.0

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return dbFrom(ctx, r.db).Create(ticket).Error
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var ticket model.Ticket
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// TransitionStatus writes the lifecycle columns of ticket only if the stored
// status still equals expected. It returns ErrStaleStatus when no row matched.
func (r *TicketRepository) TransitionStatus(ctx context.Context, ticket *model.Ticket, expected model.TicketStatus) error {
	now := time.Now().UTC()
	result := dbFrom(ctx, r.db).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", ticket.ID, expected).
		Updates(map[string]interface{}{
			"status":               ticket.Status,
			"assigned_operator_id": ticket.AssignedOperatorID,
			"completed_at":         ticket.CompletedAt,
			"rejected_at":          ticket.RejectedAt,
			"rejection_reason":     ticket.RejectionReason,
			"updated_at":           now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	ticket.UpdatedAt = now
	return nil
}

// Touch bumps updated_at.
func (r *TicketRepository) Touch(ctx context.Context, id uuid.UUID) error {
	return dbFrom(ctx, r.db).Model(&model.Ticket{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}

type TicketListFilter struct {
	MunicipalityID     *uuid.UUID
	Status             *model.TicketStatus
	Category           *string
	CitizenID          *uuid.UUID
	AssignedOperatorID *uuid.UUID
	Near               *GeoRadius
	Limit              int
	Offset             int
}

type GeoRadius struct {
	Latitude  float64
	Longitude float64
	RadiusM   float64
}

// List returns a page of tickets newest first and the total number matching the filter.
// A Near filter is applied as a bounding box in SQL and then trimmed by great-circle distance.
func (r *TicketRepository) List(ctx context.Context, filter TicketListFilter) ([]model.Ticket, int64, error) {
	query := dbFrom(ctx, r.db).Model(&model.Ticket{})

	if filter.MunicipalityID != nil {
		query = query.Where("municipality_id = ?", *filter.MunicipalityID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.CitizenID != nil {
		query = query.Where("citizen_id = ?", *filter.CitizenID)
	}
	if filter.AssignedOperatorID != nil {
		query = query.Where("assigned_operator_id = ?", *filter.AssignedOperatorID)
	}
	if filter.Near != nil {
		minLat, maxLat, minLng, maxLng := boundingBox(*filter.Near)
		query = query.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", minLat, maxLat, minLng, maxLng)
	}
	query = query.Session(&gorm.Session{})

	if filter.Near != nil {
		var candidates []model.Ticket
		if err := query.Order("created_at DESC").Find(&candidates).Error; err != nil {
			return nil, 0, err
		}
		within := candidates[:0]
		for _, t := range candidates {
			if HaversineMeters(filter.Near.Latitude, filter.Near.Longitude, t.Latitude, t.Longitude) <= filter.Near.RadiusM {
				within = append(within, t)
			}
		}
		return paginate(within, filter.Offset, filter.Limit), int64(len(within)), nil
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tickets []model.Ticket
	page := query.Order("created_at DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		page = page.Offset(filter.Offset)
	}
	if err := page.Find(&tickets).Error; err != nil {
		return nil, 0, err
	}

	return tickets, total, nil
}

func paginate(tickets []model.Ticket, offset, limit int) []model.Ticket {
	if offset >= len(tickets) {
		return []model.Ticket{}
	}
	tickets = tickets[offset:]
	if limit > 0 && limit < len(tickets) {
		tickets = tickets[:limit]
	}
	return tickets
}

func boundingBox(near GeoRadius) (minLat, maxLat, minLng, maxLng float64) {
	dLat := near.RadiusM / metersPerDegreeLat
	cos := math.Cos(near.Latitude * math.Pi / 180)
	dLng := 180.0
	if cos > 1e-9 {
		dLng = math.Min(180, near.RadiusM/(metersPerDegreeLat*cos))
	}
	return near.Latitude - dLat, near.Latitude + dLat, near.Longitude - dLng, near.Longitude + dLng
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
