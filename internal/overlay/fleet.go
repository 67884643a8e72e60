package overlay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/utils"
)

const (
	// Fleet size bounds: busier routes get more vehicles.
	minVehicles = 15
	maxVehicles = 25

	// Spacing between consecutive vehicle slots, so vehicles visibly
	// queue instead of overlapping.
	slotOffsetUnits = 4.0
	slotDelay       = 300 * time.Millisecond

	defaultFrame = 100 * time.Millisecond
	defaultScale = 1.0
)

// VehicleCount derives the fleet size for a congestion value:
// floor(lerp(15, 25, congestion/100)).
func VehicleCount(congestion int) int {
	c := utils.Clamp(float64(congestion), 0, 100)
	return int(utils.Lerp(minVehicles, maxVehicles, c/100))
}

// Fleet animates the vehicle markers of one route. It runs a single
// ticker goroutine (the frame loop); every tick advances each animator
// by the wall-clock delta since the fleet's previous tick and
// repositions its marker on the surface. Stop cancels the loop and
// removes the markers; the surface is never touched afterwards.
type Fleet struct {
	routeID string
	surface Surface

	mu       sync.Mutex
	speedKmh float64

	animators []*Animator
	cancel    context.CancelFunc
	done      chan struct{}
	frame     time.Duration
}

// NewFleet builds the animators for a route given its current
// congestion and road speed.
func NewFleet(routeID string, route domain.Route, congestion int, speedKmh float64, surface Surface) *Fleet {
	now := time.Now()
	count := VehicleCount(congestion)
	animators := make([]*Animator, 0, count)
	for i := 0; i < count; i++ {
		animators = append(animators, NewAnimator(
			route,
			float64(i)*slotOffsetUnits,
			time.Duration(i)*slotDelay,
			defaultScale,
			now,
		))
	}
	return &Fleet{
		routeID:   routeID,
		surface:   surface,
		speedKmh:  speedKmh,
		animators: animators,
		frame:     defaultFrame,
	}
}

// Size returns the number of vehicle slots in the fleet.
func (f *Fleet) Size() int {
	return len(f.animators)
}

// SetSpeed updates the road speed driving the animation.
func (f *Fleet) SetSpeed(speedKmh float64) {
	f.mu.Lock()
	f.speedKmh = speedKmh
	f.mu.Unlock()
}

// Start launches the frame loop. Calling Start on a running fleet is
// a no-op.
func (f *Fleet) Start() {
	if f.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(ctx)
}

func (f *Fleet) run(ctx context.Context) {
	defer close(f.done)
	ticker := time.NewTicker(f.frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			f.step(now, dt)
		}
	}
}

func (f *Fleet) step(now time.Time, dt time.Duration) {
	f.mu.Lock()
	speed := f.speedKmh
	f.mu.Unlock()

	for i, a := range f.animators {
		if !a.Advance(now, dt, speed) {
			continue
		}
		f.surface.UpsertMarker(f.markerID(i), MarkerVehicle, a.Position())
	}
}

// Stop tears the fleet down: the frame loop is cancelled and every
// vehicle marker is removed from the surface. Safe to call twice.
func (f *Fleet) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil

	for i := range f.animators {
		f.surface.RemoveMarker(f.markerID(i))
	}
}

func (f *Fleet) markerID(slot int) string {
	return fmt.Sprintf("%s-veh-%d", f.routeID, slot)
}
