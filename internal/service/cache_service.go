package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"cityfix-service/internal/repository"
)

// CacheService wraps the cache repository with lookup metrics. A nil
// *CacheService or a nil repository disables caching.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	log        zerolog.Logger
}

func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, log zerolog.Logger) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, log: log}
}

func (s *CacheService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Get reports whether key was found and decoded into dest.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	err := s.repo.Get(ctx, key, dest)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup("hit")
		return true, nil
	case errors.Is(err, repository.ErrCacheMiss):
		s.metrics.RecordCacheLookup("miss")
		return false, nil
	default:
		s.metrics.RecordCacheLookup("error")
		s.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false, err
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.repo.Set(ctx, key, value, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		return err
	}
	return nil
}

// Invalidate removes every key matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.log.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidate failed")
		return err
	}
	return nil
}
