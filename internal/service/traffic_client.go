package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/geo"
)

// TrafficClient fetches live segment telemetry from the traffic backend
type TrafficClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewTrafficClient creates a new traffic client. An empty base URL
// switches the client to synthesized demo data.
func NewTrafficClient(baseURL, apiKey string) *TrafficClient {
	return &TrafficClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TrafficFilter narrows a segment query. Zero values mean "no filter".
type TrafficFilter struct {
	MapID     string
	Search    string
	Date      string // DD-MM-YYYY
	StartTime string // HH:mm
	EndTime   string // HH:mm
}

// FetchAll fetches the current reading for every tracked road segment.
// On network or decode failure it returns an empty slice together with
// the error; callers treat the empty result as "no data" and keep
// whatever snapshot they already hold.
func (c *TrafficClient) FetchAll(ctx context.Context) ([]domain.Segment, error) {
	return c.Fetch(ctx, TrafficFilter{})
}

// Fetch fetches segment readings matching the given filter.
func (c *TrafficClient) Fetch(ctx context.Context, filter TrafficFilter) ([]domain.Segment, error) {
	if c.baseURL == "" {
		return c.generateSegments(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(filter), nil)
	if err != nil {
		return []domain.Segment{}, fmt.Errorf("traffic: failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return []domain.Segment{}, &domain.NetworkError{Op: "traffic", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []domain.Segment{}, &domain.NetworkError{
			Op:  "traffic",
			Err: fmt.Errorf("backend returned status %d", resp.StatusCode),
		}
	}

	var payload []domain.Segment
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return []domain.Segment{}, &domain.UpstreamDataError{
			Endpoint: "/traffic/data",
			Reason:   fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	segments, err := validateSegments(payload)
	if err != nil {
		return []domain.Segment{}, err
	}
	return segments, nil
}

func (c *TrafficClient) buildURL(filter TrafficFilter) string {
	q := url.Values{}
	if filter.MapID != "" {
		q.Set("map_id", filter.MapID)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Date != "" {
		q.Set("date", filter.Date)
		q.Set("startTime", filter.StartTime)
		q.Set("endTime", filter.EndTime)
	}
	u := c.baseURL + "/traffic/data"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// validateSegments coerces the decoded payload into well-formed
// segments. A record with no road id or a non-finite coordinate means
// the backend changed shape underneath us.
func validateSegments(payload []domain.Segment) ([]domain.Segment, error) {
	segments := make([]domain.Segment, 0, len(payload))
	for _, s := range payload {
		if s.RoadID == "" {
			return []domain.Segment{}, &domain.UpstreamDataError{
				Endpoint: "/traffic/data",
				Reason:   "segment record missing road_id",
			}
		}
		if !isFinite(s.Coordinate.Lat) || !isFinite(s.Coordinate.Lng) {
			return []domain.Segment{}, &domain.UpstreamDataError{
				Endpoint: "/traffic/data",
				Reason:   fmt.Sprintf("segment %s has malformed coordinates", s.RoadID),
			}
		}
		if s.Incidents == nil {
			s.Incidents = []domain.Incident{}
		}
		segments = append(segments, s)
	}
	return segments, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// generateSegments creates plausible demo telemetry when no backend is
// configured, with congestion following the time of day.
func (c *TrafficClient) generateSegments() []domain.Segment {
	hour := time.Now().Hour()
	base := demoCongestionBase(hour, time.Now().Weekday())

	roads := []struct {
		id, name string
		at       geo.LatLng
		weight   float64
	}{
		{"road_1", "Main Street", geo.LatLng{Lat: 43.2567, Lng: 76.9286}, 1.2},
		{"road_2", "Riverside Avenue", geo.LatLng{Lat: 43.2380, Lng: 76.9450}, 1.1},
		{"road_3", "North Ring", geo.LatLng{Lat: 43.2700, Lng: 76.9500}, 0.9},
		{"road_4", "Market Road", geo.LatLng{Lat: 43.2220, Lng: 76.8510}, 1.3},
		{"road_5", "Central Boulevard", geo.LatLng{Lat: 43.2389, Lng: 76.8897}, 1.0},
		{"road_6", "Hillside Drive", geo.LatLng{Lat: 43.2600, Lng: 76.9100}, 0.8},
		{"road_7", "Airport Road", geo.LatLng{Lat: 43.2150, Lng: 76.9200}, 1.1},
		{"road_8", "Station Street", geo.LatLng{Lat: 43.2800, Lng: 76.8800}, 0.9},
	}

	now := time.Now()
	segments := make([]domain.Segment, 0, len(roads))
	for _, r := range roads {
		congestion := math.Min(base*r.weight*(0.8+rand.Float64()*0.4), 95)
		freeFlow := 60.0
		current := freeFlow * (1 - congestion/100)

		seg := domain.Segment{
			RoadID:          r.id,
			StreetName:      r.name,
			Coordinate:      r.at,
			CurrentSpeed:    math.Round(current*10) / 10,
			FreeFlowSpeed:   freeFlow,
			Intensity:       math.Round(congestion) / 100,
			LastUpdated:     now,
			AccidentCount:   int(congestion / 40),
			CongestionCount: int(congestion / 20),
			Incidents:       []domain.Incident{},
		}
		segments = append(segments, seg)
	}
	return segments
}

func demoCongestionBase(hour int, weekday time.Weekday) float64 {
	if weekday == time.Saturday || weekday == time.Sunday {
		return 25 + rand.Float64()*20
	}
	switch {
	case hour >= 7 && hour <= 9: // Morning rush
		return 70 + rand.Float64()*25
	case hour >= 17 && hour <= 19: // Evening rush
		return 75 + rand.Float64()*20
	case hour >= 12 && hour <= 14: // Lunch
		return 50 + rand.Float64()*15
	case hour >= 22 || hour <= 5: // Night
		return 10 + rand.Float64()*10
	default:
		return 35 + rand.Float64()*20
	}
}
