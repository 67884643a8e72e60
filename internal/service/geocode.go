package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// UnknownRoad is stored on a node when neither geocoding service could
// resolve a name. Node creation must never block on geocoding.
const UnknownRoad = "Unknown road"

// ReverseGeocoder resolves road names through a primary service with a
// secondary fallback. Both are expected to speak the Nominatim
// reverse-geocoding JSON shape.
type ReverseGeocoder struct {
	primaryURL  string
	fallbackURL string
	httpClient  *http.Client
}

// NewReverseGeocoder creates a geocoder. Empty URLs disable the
// corresponding service.
func NewReverseGeocoder(primaryURL, fallbackURL string) *ReverseGeocoder {
	return &ReverseGeocoder{
		primaryURL:  primaryURL,
		fallbackURL: fallbackURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road   string `json:"road"`
		Suburb string `json:"suburb"`
		City   string `json:"city"`
	} `json:"address"`
}

// RoadName resolves a human-readable road name for the coordinate.
// Primary first, fallback second; if both fail the placeholder is
// returned instead of an error.
func (g *ReverseGeocoder) RoadName(ctx context.Context, lat, lng float64) string {
	for _, base := range []string{g.primaryURL, g.fallbackURL} {
		if base == "" {
			continue
		}
		name, err := g.query(ctx, base, lat, lng)
		if err != nil {
			log.Printf("geocode: %s failed: %v", base, err)
			continue
		}
		if name != "" {
			return name
		}
	}
	return UnknownRoad
}

func (g *ReverseGeocoder) query(ctx context.Context, base string, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lng))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("geocode: failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode: service returned status %d", resp.StatusCode)
	}

	var payload nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("geocode: failed to decode response: %w", err)
	}

	if payload.Address.Road != "" {
		return payload.Address.Road, nil
	}
	return payload.DisplayName, nil
}
