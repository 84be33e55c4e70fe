package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cityfix-service/internal/config"
)

var (
	ErrGeocoderDisabled = errors.New("geocoder is not configured")
	ErrLocationNotFound = errors.New("location not found")
)

type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// nominatimPlace is one entry of /search and the body of /reverse.
// Coordinates arrive as strings.
type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error,omitempty"`
}

// GeocodeClient talks to a Nominatim compatible endpoint.
type GeocodeClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewGeocodeClient(cfg config.GeocoderConfig) *GeocodeClient {
	return &GeocodeClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

func (c *GeocodeClient) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Geocode resolves a free-text address to its best match.
func (c *GeocodeClient) Geocode(ctx context.Context, address string) (*Location, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := c.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrLocationNotFound
	}
	return places[0].location()
}

// Reverse resolves coordinates to an address.
func (c *GeocodeClient) Reverse(ctx context.Context, lat, lng float64) (*Location, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "json")

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", q, &place); err != nil {
		return nil, err
	}
	if place.Error != "" || place.DisplayName == "" {
		return nil, ErrLocationNotFound
	}
	return place.location()
}

func (p nominatimPlace) location() (*Location, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", p.Lon, err)
	}
	return &Location{Address: p.DisplayName, Latitude: lat, Longitude: lng}, nil
}

func (c *GeocodeClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if !c.Enabled() {
		return ErrGeocoderDisabled
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid geocoder URL: %w", err)
	}
	u.RawQuery = query.Encode()

	// Network errors and 5xx responses are retried with linear backoff.
	var body []byte
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		var status int
		body, status, lastErr = c.do(ctx, u.String())
		if lastErr != nil {
			continue
		}
		if status >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("geocoder returned status %d: %s", status, string(body))
			continue
		}
		if status != http.StatusOK {
			return fmt.Errorf("geocoder returned status %d: %s", status, string(body))
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return fmt.Errorf("failed to execute request after %d attempts: %w", c.maxRetries, lastErr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *GeocodeClient) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
