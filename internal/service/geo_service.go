package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"cityfix-service/internal/client"
)

// Geocoder resolves addresses and coordinates.
type Geocoder interface {
	ReverseGeocoder
	Geocode(ctx context.Context, address string) (*client.Location, error)
}

type GeoService struct {
	geocoder Geocoder
	log      zerolog.Logger
}

func NewGeoService(geocoder Geocoder, log zerolog.Logger) *GeoService {
	return &GeoService{geocoder: geocoder, log: log}
}

func (s *GeoService) Geocode(ctx context.Context, address string) (*client.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrValidation)
	}
	if !s.enabled() {
		return nil, fmt.Errorf("%w: geocoding is not configured", ErrUnavailable)
	}

	loc, err := s.geocoder.Geocode(ctx, address)
	return loc, s.mapError(err, "geocode")
}

func (s *GeoService) Reverse(ctx context.Context, lat, lng float64) (*client.Location, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	if !s.enabled() {
		return nil, fmt.Errorf("%w: geocoding is not configured", ErrUnavailable)
	}

	loc, err := s.geocoder.Reverse(ctx, lat, lng)
	return loc, s.mapError(err, "reverse")
}

func (s *GeoService) enabled() bool {
	return s.geocoder != nil && s.geocoder.Enabled()
}

func (s *GeoService) mapError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrLocationNotFound):
		return ErrNotFound
	case errors.Is(err, client.ErrGeocoderDisabled):
		return ErrUnavailable
	case errors.Is(err, context.Canceled):
		return err
	default:
		s.log.Warn().Err(err).Str("op", op).Msg("geocoder request failed")
		return fmt.Errorf("%w: geocoder request failed", ErrUnavailable)
	}
}
