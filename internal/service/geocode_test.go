package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func geocodeService(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestReverseGeocoder_PrimaryResolves(t *testing.T) {
	primary := geocodeService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format = %q, want json", r.URL.Query().Get("format"))
		}
		w.Write([]byte(`{"display_name":"somewhere","address":{"road":"Main Street"}}`))
	})

	g := NewReverseGeocoder(primary.URL, "")
	if got := g.RoadName(context.Background(), 43.25, 76.92); got != "Main Street" {
		t.Errorf("RoadName = %q, want Main Street", got)
	}
}

func TestReverseGeocoder_FallsBackToSecondary(t *testing.T) {
	primary := geocodeService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	fallback := geocodeService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":"Riverside Avenue, Downtown","address":{}}`))
	})

	g := NewReverseGeocoder(primary.URL, fallback.URL)
	if got := g.RoadName(context.Background(), 43.25, 76.92); got != "Riverside Avenue, Downtown" {
		t.Errorf("RoadName = %q, want the fallback's display name", got)
	}
}

func TestReverseGeocoder_PlaceholderWhenAllFail(t *testing.T) {
	broken := geocodeService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	g := NewReverseGeocoder(broken.URL, broken.URL)
	if got := g.RoadName(context.Background(), 43.25, 76.92); got != UnknownRoad {
		t.Errorf("RoadName = %q, want %q", got, UnknownRoad)
	}

	// No services configured at all behaves the same way.
	empty := NewReverseGeocoder("", "")
	if got := empty.RoadName(context.Background(), 43.25, 76.92); got != UnknownRoad {
		t.Errorf("RoadName with no services = %q, want %q", got, UnknownRoad)
	}
}

func TestReverseGeocoder_EmptyResultFallsThrough(t *testing.T) {
	primary := geocodeService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":"","address":{}}`))
	})
	fallback := geocodeService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":"","address":{"road":"Station Street"}}`))
	})

	g := NewReverseGeocoder(primary.URL, fallback.URL)
	if got := g.RoadName(context.Background(), 43.25, 76.92); got != "Station Street" {
		t.Errorf("RoadName = %q, want Station Street", got)
	}
}
