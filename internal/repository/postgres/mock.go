package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/flowx/backend/internal/domain"
)

// MockRepository implements domain.TrafficRepository for testing/demo
// mode. Samples are kept in memory so history browsing still works
// during a session without a database.
type MockRepository struct {
	mu      sync.Mutex
	samples []domain.Segment
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveSegmentSamples keeps the snapshot in memory
func (r *MockRepository) SaveSegmentSamples(ctx context.Context, segments []domain.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, segments...)
	// Bound memory in long demo sessions.
	if len(r.samples) > 10000 {
		r.samples = r.samples[len(r.samples)-10000:]
	}
	return nil
}

// History returns the in-memory samples for one road, newest first
func (r *MockRepository) History(ctx context.Context, roadID string) ([]domain.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []domain.Segment
	for i := len(r.samples) - 1; i >= 0; i-- {
		if r.samples[i].RoadID == roadID {
			results = append(results, r.samples[i])
		}
	}
	if len(results) == 0 {
		return nil, &domain.NotFoundError{Kind: "road", ID: roadID}
	}
	return results, nil
}

// Roads lists the distinct roads seen so far
func (r *MockRepository) Roads(ctx context.Context) ([]domain.RoadInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var roads []domain.RoadInfo
	for _, s := range r.samples {
		if !seen[s.RoadID] {
			seen[s.RoadID] = true
			roads = append(roads, domain.RoadInfo{RoadID: s.RoadID, StreetName: s.StreetName})
		}
	}
	return roads, nil
}

// AvailableRanges reports the window covered by the in-memory samples
func (r *MockRepository) AvailableRanges(ctx context.Context) (domain.AvailableRanges, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.samples) == 0 {
		return domain.AvailableRanges{}, &domain.NotFoundError{Kind: "traffic samples", ID: "any"}
	}

	min, max := r.samples[0].LastUpdated, r.samples[0].LastUpdated
	for _, s := range r.samples[1:] {
		if s.LastUpdated.Before(min) {
			min = s.LastUpdated
		}
		if s.LastUpdated.After(max) {
			max = s.LastUpdated
		}
	}
	if min.IsZero() {
		min = time.Now()
	}
	if max.IsZero() {
		max = time.Now()
	}

	return domain.AvailableRanges{
		DateRange: domain.DateRange{Start: min.Format(dateLayout), End: max.Format(dateLayout)},
		TimeRange: domain.TimeRange{Start: min.Format(timeLayout), End: max.Format(timeLayout)},
	}, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
