package overlay

import (
	"math"
	"testing"
	"time"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/geo"
)

func testRoute() domain.Route {
	return domain.Route{
		Coordinates: []geo.LatLng{
			{Lat: 43.00, Lng: 76.90},
			{Lat: 43.05, Lng: 76.90},
			{Lat: 43.10, Lng: 76.90},
		},
		Distance: 11000,
		Time:     990,
	}
}

func TestAnimator_ProgressWraps(t *testing.T) {
	now := time.Now()
	a := NewAnimator(testRoute(), 0, 0, 1, now)

	// One huge frame: enough to push progress well past 100.
	a.Advance(now, 15*time.Second, 35)
	p := a.Progress()
	if p < 0 || p >= 100 {
		t.Errorf("progress after wrap = %v, want value in [0,100)", p)
	}

	// Many frames: the invariant must hold throughout.
	for i := 0; i < 500; i++ {
		now = now.Add(time.Second)
		a.Advance(now, time.Second, 120)
		if p := a.Progress(); p < 0 || p >= 100 {
			t.Fatalf("progress = %v after frame %d, want [0,100)", p, i)
		}
	}
}

func TestAnimator_StartDelay(t *testing.T) {
	now := time.Now()
	a := NewAnimator(testRoute(), 10, 500*time.Millisecond, 1, now)

	if a.Advance(now.Add(100*time.Millisecond), 100*time.Millisecond, 35) {
		t.Error("animator advanced before its start delay elapsed")
	}
	if a.Progress() != -1 {
		t.Errorf("progress = %v before start, want sentinel -1", a.Progress())
	}

	if !a.Advance(now.Add(600*time.Millisecond), 100*time.Millisecond, 35) {
		t.Error("animator did not start after its delay elapsed")
	}
	if a.Progress() < 10 {
		t.Errorf("progress = %v, want to start from the initial offset 10", a.Progress())
	}
}

func TestAnimator_SpeedFloorAndFallback(t *testing.T) {
	now := time.Now()

	slow := NewAnimator(testRoute(), 0, 0, 1, now)
	slow.Advance(now, time.Second, 1) // below the 5 km/h floor
	floored := slow.Progress()

	ref := NewAnimator(testRoute(), 0, 0, 1, now)
	ref.Advance(now, time.Second, 5)
	if math.Abs(floored-ref.Progress()) > 1e-9 {
		t.Errorf("1 km/h advanced %v, want the 5 km/h floor %v", floored, ref.Progress())
	}

	unknown := NewAnimator(testRoute(), 0, 0, 1, now)
	unknown.Advance(now, time.Second, 0) // no telemetry
	fallback := NewAnimator(testRoute(), 0, 0, 1, now)
	fallback.Advance(now, time.Second, 35)
	if math.Abs(unknown.Progress()-fallback.Progress()) > 1e-9 {
		t.Errorf("unknown speed advanced %v, want the 35 km/h fallback %v", unknown.Progress(), fallback.Progress())
	}
}

func TestAnimator_PositionInterpolates(t *testing.T) {
	now := time.Now()
	route := testRoute()
	a := NewAnimator(route, 50, 0, 1, now)
	a.Advance(now, 0, 35) // starts at offset, zero increment

	pos := a.Position()
	// 50% along a straight north-south line: halfway between the ends.
	if math.Abs(pos.Lat-43.05) > 0.001 {
		t.Errorf("position at 50%% = %+v, want lat ~43.05", pos)
	}
	if math.Abs(pos.Lng-76.90) > 1e-9 {
		t.Errorf("position at 50%% = %+v, want lng 76.90", pos)
	}
}

func TestVehicleCount(t *testing.T) {
	tests := []struct {
		congestion int
		want       int
	}{
		{0, 15},
		{50, 20},
		{100, 25},
		{-5, 15},
		{200, 25},
	}
	for _, tc := range tests {
		if got := VehicleCount(tc.congestion); got != tc.want {
			t.Errorf("VehicleCount(%d) = %d, want %d", tc.congestion, got, tc.want)
		}
	}
}
