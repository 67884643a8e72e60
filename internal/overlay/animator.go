package overlay

import (
	"math"
	"time"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/geo"
)

const (
	// notStarted is the progress sentinel used until the start delay
	// has elapsed.
	notStarted = -1

	// minSpeedKmh floors the animation speed so vehicles keep moving
	// even on fully congested segments.
	minSpeedKmh = 5

	// fallbackSpeedKmh is used when no telemetry exists for the route.
	fallbackSpeedKmh = 35
)

// Animator advances a single vehicle along a route polyline. Progress
// is a percentage of the total route length in [0,100) and wraps at
// the route end, looping the vehicle back to the start.
type Animator struct {
	coords        []geo.LatLng
	totalLength   float64
	progress      float64
	initialOffset float64
	startDelay    time.Duration
	spawnedAt     time.Time
	scale         float64
}

// NewAnimator creates an animator for one vehicle slot on a route.
// initialOffset is in progress units (0..100), scale converts meters
// per second of road speed into progress units per second.
func NewAnimator(route domain.Route, initialOffset float64, startDelay time.Duration, scale float64, now time.Time) *Animator {
	if scale <= 0 {
		scale = 1
	}
	return &Animator{
		coords:        route.Coordinates,
		totalLength:   route.Length(),
		progress:      notStarted,
		initialOffset: math.Mod(initialOffset, 100),
		startDelay:    startDelay,
		spawnedAt:     now,
		scale:         scale,
	}
}

// Advance moves the vehicle by the wall-clock delta since the previous
// frame. speedKmh is the current road speed; zero means unknown.
// Returns false while the start delay has not yet elapsed.
func (a *Animator) Advance(now time.Time, dt time.Duration, speedKmh float64) bool {
	if a.progress == notStarted {
		if now.Sub(a.spawnedAt) < a.startDelay {
			return false
		}
		a.progress = a.initialOffset
	}

	if speedKmh <= 0 {
		speedKmh = fallbackSpeedKmh
	}
	speedKmh = math.Max(minSpeedKmh, speedKmh)

	increment := (speedKmh / 3.6) * a.scale * dt.Seconds()
	a.progress = math.Mod(a.progress+increment, 100)
	return true
}

// Progress returns the current progress percentage, or the sentinel
// while the vehicle has not started.
func (a *Animator) Progress() float64 {
	return a.progress
}

// Position converts the progress percentage to an absolute distance
// along the polyline and interpolates within the containing segment.
func (a *Animator) Position() geo.LatLng {
	p := a.progress
	if p == notStarted {
		p = a.initialOffset
	}
	return geo.PointAlong(a.coords, a.totalLength*p/100)
}
