package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/internal/overlay"
	"github.com/flowx/backend/pkg/geo"
)

// averageSpeedKmh is the assumed speed when the routing backend omits
// a travel time.
const averageSpeedKmh = 40.0

// RouteCalculator delegates path computation to the routing backend,
// keeps the calculated routes in an in-process table keyed by route id
// and renders each route as a polyline on the map surface. It performs
// no pathfinding of its own.
type RouteCalculator struct {
	backendURL string
	httpClient *http.Client
	surface    overlay.Surface

	mu      sync.Mutex
	routes  map[string]domain.Route
	handles map[string]string // route id -> rendered polyline handle
}

// NewRouteCalculator creates a calculator talking to the given routing
// backend and drawing on the given surface.
func NewRouteCalculator(backendURL string, surface overlay.Surface) *RouteCalculator {
	return &RouteCalculator{
		backendURL: backendURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		surface: surface,
		routes:  make(map[string]domain.Route),
		handles: make(map[string]string),
	}
}

type routeRequest struct {
	Origin      [2]float64 `json:"origin"`
	Destination [2]float64 `json:"destination"`
}

type routeResponse struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Distance    float64      `json:"distance"`
	Time        float64      `json:"time"`
	Error       string       `json:"error,omitempty"`
}

// Calculate requests a route between the two points, stores it and
// renders it with the default style. The returned id is unique for the
// process lifetime. On backend failure nothing is stored or rendered.
func (rc *RouteCalculator) Calculate(ctx context.Context, start, end geo.LatLng) (string, domain.Route, error) {
	route, err := rc.requestRoute(ctx, start, end)
	if err != nil {
		return "", domain.Route{}, err
	}

	id := newRouteID()

	rc.mu.Lock()
	rc.routes[id] = route
	rc.handles[id] = id
	rc.mu.Unlock()

	rc.surface.AddPolyline(id, route.Coordinates, domain.DefaultStyle())
	return id, route, nil
}

func (rc *RouteCalculator) requestRoute(ctx context.Context, start, end geo.LatLng) (domain.Route, error) {
	body, err := json.Marshal(routeRequest{
		Origin:      [2]float64{start.Lat, start.Lng},
		Destination: [2]float64{end.Lat, end.Lng},
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("routing: failed to marshal request: %w", err)
	}

	url := rc.backendURL + "/api/route"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Route{}, fmt.Errorf("routing: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		return domain.Route{}, &domain.NetworkError{Op: "routing", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Route{}, &domain.NotFoundError{Kind: "route", ID: "no path between points"}
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Route{}, &domain.NetworkError{
			Op:  "routing",
			Err: fmt.Errorf("backend returned status %d", resp.StatusCode),
		}
	}

	var payload routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Route{}, &domain.UpstreamDataError{
			Endpoint: "/api/route",
			Reason:   fmt.Sprintf("failed to decode response: %v", err),
		}
	}
	if payload.Error != "" {
		return domain.Route{}, &domain.NotFoundError{Kind: "route", ID: payload.Error}
	}
	if len(payload.Coordinates) < 2 {
		return domain.Route{}, &domain.UpstreamDataError{
			Endpoint: "/api/route",
			Reason:   fmt.Sprintf("route has %d coordinates, need at least 2", len(payload.Coordinates)),
		}
	}

	coords := make([]geo.LatLng, 0, len(payload.Coordinates))
	for _, c := range payload.Coordinates {
		coords = append(coords, geo.LatLng{Lat: c[0], Lng: c[1]})
	}

	t := payload.Time
	if t <= 0 {
		t = EstimateTravelTime(payload.Distance)
	}
	return domain.Route{Coordinates: coords, Distance: payload.Distance, Time: t}, nil
}

// EstimateTravelTime returns a travel time in seconds for a distance
// in meters, assuming a 40 km/h average speed rounded up to whole
// minutes.
func EstimateTravelTime(distanceMeters float64) float64 {
	if distanceMeters <= 0 {
		return 0
	}
	minutes := math.Ceil(distanceMeters / 1000 / averageSpeedKmh * 60)
	return minutes * 60
}

// UpdateStyle restyles the rendered polyline. Route data is untouched;
// unknown ids are a no-op.
func (rc *RouteCalculator) UpdateStyle(routeID string, style domain.RouteStyle) {
	rc.mu.Lock()
	handle, ok := rc.handles[routeID]
	rc.mu.Unlock()
	if !ok {
		return
	}
	rc.surface.SetPolylineStyle(handle, style)
}

// Remove deletes the route from the surface and from the table.
// Unknown ids are a no-op.
func (rc *RouteCalculator) Remove(routeID string) {
	rc.mu.Lock()
	handle, ok := rc.handles[routeID]
	delete(rc.routes, routeID)
	delete(rc.handles, routeID)
	rc.mu.Unlock()
	if ok {
		rc.surface.RemovePolyline(handle)
	}
}

// Clear removes every stored route. Safe with zero routes.
func (rc *RouteCalculator) Clear() {
	rc.mu.Lock()
	handles := make([]string, 0, len(rc.handles))
	for _, h := range rc.handles {
		handles = append(handles, h)
	}
	rc.routes = make(map[string]domain.Route)
	rc.handles = make(map[string]string)
	rc.mu.Unlock()

	for _, h := range handles {
		rc.surface.RemovePolyline(h)
	}
}

// Lookup returns the stored route for an id.
func (rc *RouteCalculator) Lookup(routeID string) (domain.Route, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	r, ok := rc.routes[routeID]
	return r, ok
}

// Len returns the number of stored routes.
func (rc *RouteCalculator) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.routes)
}

// newRouteID generates an id unique within the process lifetime:
// a millisecond timestamp plus a random suffix.
func newRouteID() string {
	return fmt.Sprintf("route-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
