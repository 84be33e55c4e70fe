package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

const statsCachePrefix = "stats:"

type StatsService struct {
	stats          StatsRepository
	municipalities MunicipalityRepository
	users          UserRepository
	cache          *CacheService
	ttl            time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

func NewStatsService(stats StatsRepository, municipalities MunicipalityRepository, users UserRepository, cache *CacheService, ttl time.Duration, log zerolog.Logger) *StatsService {
	return &StatsService{
		stats:          stats,
		municipalities: municipalities,
		users:          users,
		cache:          cache,
		ttl:            ttl,
		log:            log,
		now:            time.Now,
	}
}

// Dashboard aggregates tickets of one municipality. Operators and managers
// always get their own; admins pick one or, with nil, the whole system.
func (s *StatsService) Dashboard(ctx context.Context, principal model.Principal, municipalityID *uuid.UUID) (*model.TicketStats, error) {
	switch {
	case principal.IsAdmin():
		if municipalityID != nil {
			if _, err := s.municipalities.GetByID(ctx, *municipalityID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrNotFound
				}
				return nil, err
			}
		}
	case principal.IsManager(), principal.IsOperator():
		if principal.MunicipalityID == nil {
			return nil, ErrPermissionDenied
		}
		if municipalityID != nil && !principal.InMunicipality(*municipalityID) {
			return nil, ErrPermissionDenied
		}
		municipalityID = principal.MunicipalityID
	default:
		return nil, ErrPermissionDenied
	}

	return s.ticketStats(ctx, municipalityID)
}

// Consortium returns one dashboard per municipality.
func (s *StatsService) Consortium(ctx context.Context, principal model.Principal) ([]model.MunicipalityStats, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	municipalities, err := s.municipalities.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.MunicipalityStats, 0, len(municipalities))
	for _, m := range municipalities {
		id := m.ID
		stats, err := s.ticketStats(ctx, &id)
		if err != nil {
			return nil, fmt.Errorf("stats for municipality %s: %w", id, err)
		}
		out = append(out, model.MunicipalityStats{Municipality: m, Stats: *stats})
	}
	return out, nil
}

func (s *StatsService) Overview(ctx context.Context, principal model.Principal) (*model.Overview, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	key := statsCachePrefix + "overview"
	var cached model.Overview
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	municipalities, err := s.municipalities.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	tickets, err := s.stats.CountTickets(ctx)
	if err != nil {
		return nil, err
	}

	overview := &model.Overview{
		Municipalities: municipalities,
		Users:          users,
		Tickets:        tickets,
		GeneratedAt:    s.now().UTC(),
	}
	s.toCache(ctx, key, overview)
	return overview, nil
}

func (s *StatsService) ticketStats(ctx context.Context, municipalityID *uuid.UUID) (*model.TicketStats, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	scope := "all"
	if municipalityID != nil {
		scope = municipalityID.String()
	}
	key := fmt.Sprintf("%sdashboard:%s:%s", statsCachePrefix, scope, monthStart.Format("2006-01"))

	var cached model.TicketStats
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.stats.TicketStats(ctx, municipalityID, monthStart)
	if err != nil {
		return nil, err
	}
	stats.MunicipalityID = municipalityID
	stats.GeneratedAt = now
	s.toCache(ctx, key, stats)
	return stats, nil
}

// fromCache treats cache errors as misses.
func (s *StatsService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil || !hit {
		return false
	}
	s.log.Debug().Str("key", key).Msg("stats served from cache")
	return true
}

func (s *StatsService) toCache(ctx context.Context, key string, value interface{}) {
	_ = s.cache.Set(ctx, key, value, s.ttl)
}

