package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/flowx/backend/internal/domain"
)

// overlayRefresher receives each new traffic snapshot to restyle
// routes and resize vehicle fleets.
type overlayRefresher interface {
	Refresh(segments []domain.Segment)
}

// TrafficMonitor is the background flow refresher: on a fixed interval
// it fetches the current snapshot, persists the samples and hands the
// snapshot to the overlay. A failed poll keeps the previous snapshot,
// so the worst case is a stale visualization, never an outage.
//
// Overlapping polls are not coalesced; a late response may overwrite a
// newer one (last-resolved-wins).
type TrafficMonitor struct {
	client   *TrafficClient
	repo     TrafficRepository
	overlay  overlayRefresher
	interval time.Duration

	mu       sync.Mutex
	snapshot []domain.Segment
	polledAt time.Time
}

// NewTrafficMonitor creates the monitor. overlay may be nil for a
// headless deployment.
func NewTrafficMonitor(client *TrafficClient, repo TrafficRepository, overlay overlayRefresher, interval time.Duration) *TrafficMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TrafficMonitor{
		client:   client,
		repo:     repo,
		overlay:  overlay,
		interval: interval,
	}
}

// Run polls immediately and then on every tick until the context is
// cancelled.
func (m *TrafficMonitor) Run(ctx context.Context) {
	m.pollOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("traffic monitor stopped")
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *TrafficMonitor) pollOnce(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	segments, err := m.client.FetchAll(cctx)
	if err != nil {
		log.Printf("traffic poll error: %v", err)
		return
	}

	m.mu.Lock()
	m.snapshot = segments
	m.polledAt = time.Now()
	m.mu.Unlock()

	if err := m.repo.SaveSegmentSamples(cctx, segments); err != nil {
		log.Printf("failed to save traffic samples: %v", err)
	}

	if m.overlay != nil {
		m.overlay.Refresh(segments)
	}
}

// Snapshot returns the latest successful reading and its poll time.
func (m *TrafficMonitor) Snapshot() ([]domain.Segment, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Segment, len(m.snapshot))
	copy(out, m.snapshot)
	return out, m.polledAt
}
