package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/geo"
)

// recordingSurface counts render calls so route side effects can be
// asserted without a live map client.
type recordingSurface struct {
	mu        sync.Mutex
	polylines map[string]domain.RouteStyle
	markers   map[string]geo.LatLng
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{
		polylines: make(map[string]domain.RouteStyle),
		markers:   make(map[string]geo.LatLng),
	}
}

func (s *recordingSurface) AddPolyline(id string, _ []geo.LatLng, style domain.RouteStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polylines[id] = style
}

func (s *recordingSurface) SetPolylineStyle(id string, style domain.RouteStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polylines[id]; ok {
		s.polylines[id] = style
	}
}

func (s *recordingSurface) RemovePolyline(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.polylines, id)
}

func (s *recordingSurface) UpsertMarker(id, _ string, at geo.LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[id] = at
}

func (s *recordingSurface) RemoveMarker(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, id)
}

func (s *recordingSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polylines = make(map[string]domain.RouteStyle)
	s.markers = make(map[string]geo.LatLng)
}

func (s *recordingSurface) polylineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polylines)
}

func routingBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouteCalculator_Calculate(t *testing.T) {
	backend := routingBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/route" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req routeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(routeResponse{
			Coordinates: [][2]float64{req.Origin, {43.11, 131.92}, req.Destination},
			Distance:    2500,
			Time:        300,
		})
	})

	surface := newRecordingSurface()
	rc := NewRouteCalculator(backend.URL, surface)

	id, route, err := rc.Calculate(context.Background(),
		geo.LatLng{Lat: 43.10, Lng: 131.90}, geo.LatLng{Lat: 43.12, Lng: 131.94})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !strings.HasPrefix(id, "route-") {
		t.Errorf("route id = %q, want route- prefix", id)
	}
	if len(route.Coordinates) != 3 {
		t.Errorf("coordinates = %d, want 3", len(route.Coordinates))
	}
	if route.Time != 300 {
		t.Errorf("time = %v, want the backend's 300", route.Time)
	}

	stored, ok := rc.Lookup(id)
	if !ok || stored.Distance != 2500 {
		t.Errorf("Lookup(%q) = %+v, %v, want the stored route", id, stored, ok)
	}
	if surface.polylineCount() != 1 {
		t.Errorf("rendered polylines = %d, want 1", surface.polylineCount())
	}
}

func TestRouteCalculator_BackendFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name: "no path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			check: domain.IsNotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			check: func(err error) bool {
				var netErr *domain.NetworkError
				return errors.As(err, &netErr)
			},
		},
		{
			name: "error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(routeResponse{Error: "no road data"})
			},
			check: domain.IsNotFound,
		},
		{
			name: "degenerate route",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(routeResponse{Coordinates: [][2]float64{{43.1, 131.9}}})
			},
			check: func(err error) bool {
				var upErr *domain.UpstreamDataError
				return errors.As(err, &upErr)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := routingBackend(t, tc.handler)
			surface := newRecordingSurface()
			rc := NewRouteCalculator(backend.URL, surface)

			_, _, err := rc.Calculate(context.Background(),
				geo.LatLng{Lat: 43.10, Lng: 131.90}, geo.LatLng{Lat: 43.12, Lng: 131.94})
			if !tc.check(err) {
				t.Errorf("Calculate error = %v, wrong type", err)
			}
			if rc.Len() != 0 {
				t.Errorf("routes stored after failure = %d, want 0", rc.Len())
			}
			if surface.polylineCount() != 0 {
				t.Errorf("polylines rendered after failure = %d, want 0", surface.polylineCount())
			}
		})
	}
}

func TestRouteCalculator_MissingTimeIsEstimated(t *testing.T) {
	backend := routingBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(routeResponse{
			Coordinates: [][2]float64{{43.10, 131.90}, {43.12, 131.94}},
			Distance:    5000,
		})
	})
	rc := NewRouteCalculator(backend.URL, newRecordingSurface())

	_, route, err := rc.Calculate(context.Background(),
		geo.LatLng{Lat: 43.10, Lng: 131.90}, geo.LatLng{Lat: 43.12, Lng: 131.94})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if route.Time != 480 {
		t.Errorf("estimated time = %v seconds, want 480", route.Time)
	}
}

func TestEstimateTravelTime(t *testing.T) {
	cases := []struct {
		meters float64
		want   float64
	}{
		{0, 0},
		{-100, 0},
		{5000, 480},   // 7.5 min at 40 km/h, ceil to 8 min
		{40000, 3600}, // exactly one hour
		{100, 60},     // anything short rounds up to a minute
	}
	for _, tc := range cases {
		if got := EstimateTravelTime(tc.meters); got != tc.want {
			t.Errorf("EstimateTravelTime(%v) = %v, want %v", tc.meters, got, tc.want)
		}
	}
}

func TestRouteCalculator_RemoveAndClear(t *testing.T) {
	backend := routingBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(routeResponse{
			Coordinates: [][2]float64{{43.10, 131.90}, {43.12, 131.94}},
			Distance:    1000,
			Time:        90,
		})
	})
	surface := newRecordingSurface()
	rc := NewRouteCalculator(backend.URL, surface)

	id, _, err := rc.Calculate(context.Background(),
		geo.LatLng{Lat: 43.10, Lng: 131.90}, geo.LatLng{Lat: 43.12, Lng: 131.94})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	// Unknown ids are ignored.
	rc.Remove("route-unknown")
	rc.UpdateStyle("route-unknown", domain.StyleFor(90))
	if rc.Len() != 1 {
		t.Fatalf("routes after no-op operations = %d, want 1", rc.Len())
	}

	rc.Remove(id)
	if _, ok := rc.Lookup(id); ok {
		t.Error("route still stored after Remove")
	}
	if surface.polylineCount() != 0 {
		t.Errorf("polylines after Remove = %d, want 0", surface.polylineCount())
	}

	// Clear with nothing stored must not panic.
	rc.Clear()
}
