package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/domain"
)

// NewLocator builds the locator selected by cfg.Mode.
func NewLocator(cfg config.LocatorConfig) (domain.Locator, error) {
	switch cfg.Mode {
	case "", "none":
		return NoLocator{}, nil
	case "static":
		return &StaticLocator{Latitude: cfg.Latitude, Longitude: cfg.Longitude}, nil
	case "http":
		return NewHTTPLocator(cfg.URL, nil), nil
	default:
		return nil, fmt.Errorf("unknown locator mode %q", cfg.Mode)
	}
}

// NoLocator never obtains a reading.
type NoLocator struct{}

func (NoLocator) CurrentPosition(context.Context) (*domain.Position, error) { return nil, nil }

// StaticLocator always reports the configured position.
type StaticLocator struct {
	Latitude  float64
	Longitude float64
}

func (l *StaticLocator) CurrentPosition(context.Context) (*domain.Position, error) {
	return &domain.Position{
		Coords:    domain.Coords{Longitude: l.Longitude, Latitude: l.Latitude},
		Timestamp: time.Now(),
	}, nil
}

// HTTPLocator asks a geolocation endpoint for the current position. It
// accepts "latitude"/"longitude" or "lat"/"lon" fields, which covers the
// common IP geolocation services, plus an optional "accuracy".
type HTTPLocator struct {
	url    string
	client *http.Client
}

// NewHTTPLocator creates a locator. A nil client uses a 10 second timeout.
func NewHTTPLocator(url string, client *http.Client) *HTTPLocator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPLocator{url: url, client: client}
}

type geoResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Accuracy  *float64 `json:"accuracy"`
}

// CurrentPosition returns nil without error when the response carries no
// coordinates.
func (l *HTTPLocator) CurrentPosition(ctx context.Context) (*domain.Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation returned status %d", resp.StatusCode)
	}

	var geo geoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&geo); err != nil {
		return nil, fmt.Errorf("decoding geolocation: %w", err)
	}

	lat, lon := geo.Latitude, geo.Longitude
	if lat == nil || lon == nil {
		lat, lon = geo.Lat, geo.Lon
	}
	if lat == nil || lon == nil {
		return nil, nil
	}

	return &domain.Position{
		Coords: domain.Coords{
			Longitude: *lon,
			Latitude:  *lat,
			Accuracy:  geo.Accuracy,
		},
		Timestamp: time.Now(),
	}, nil
}
