package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type groupCount struct {
	Bucket string
	Count  int64
}

// TicketStats computes the dashboard figures. since marks the start of the current month.
func (r *StatsRepository) TicketStats(ctx context.Context, municipalityID *uuid.UUID, since time.Time) (*model.TicketStats, error) {
	scoped := func() *gorm.DB {
		q := dbFrom(ctx, r.db).Model(&model.Ticket{})
		if municipalityID != nil {
			q = q.Where("municipality_id = ?", *municipalityID)
		}
		return q
	}

	stats := &model.TicketStats{
		MunicipalityID: municipalityID,
		ByStatus:       map[model.TicketStatus]int64{},
		ByCategory:     map[string]int64{},
	}

	var byStatus []groupCount
	if err := scoped().Select("status AS bucket, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[model.TicketStatus(row.Bucket)] = row.Count
		stats.Total += row.Count
	}

	var byCategory []groupCount
	if err := scoped().Select("category AS bucket, COUNT(*) AS count").Group("category").Scan(&byCategory).Error; err != nil {
		return nil, err
	}
	for _, row := range byCategory {
		stats.ByCategory[row.Bucket] = row.Count
	}

	var avg sql.NullFloat64
	err := scoped().
		Select("AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 3600)").
		Where("status = ? AND completed_at IS NOT NULL", model.TicketStatusCompleted).
		Row().Scan(&avg)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		hours := avg.Float64
		stats.AvgResolutionHours = &hours
	}

	if err := scoped().Where("created_at >= ?", since).Count(&stats.CreatedThisMonth).Error; err != nil {
		return nil, err
	}
	if err := scoped().Where("completed_at >= ?", since).Count(&stats.CompletedThisMonth).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *StatsRepository) CountTickets(ctx context.Context) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&model.Ticket{}).Count(&count).Error
	return count, err
}
