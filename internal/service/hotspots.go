package service

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/flowx/backend/internal/domain"
)

// segmentFetcher is the slice of TrafficClient the ranker needs.
type segmentFetcher interface {
	FetchAll(ctx context.Context) ([]domain.Segment, error)
}

// HotspotRanker ranks road segments by current congestion. Ranking is
// a pure function of the latest snapshot; the ranker caches the full
// ordering and re-polls on a fixed interval so handler queries with
// any N are served from the same snapshot.
type HotspotRanker struct {
	fetcher segmentFetcher
	maxAge  time.Duration

	mu       sync.Mutex
	ranked   []domain.Hotspot
	rankedAt time.Time
}

// NewHotspotRanker creates a ranker over the given traffic source.
func NewHotspotRanker(fetcher segmentFetcher, maxAge time.Duration) *HotspotRanker {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &HotspotRanker{fetcher: fetcher, maxAge: maxAge}
}

// Rank fetches a fresh snapshot and returns every segment ordered by
// descending congestion. Equal congestion keeps input order.
func Rank(segments []domain.Segment) []domain.Hotspot {
	hotspots := make([]domain.Hotspot, 0, len(segments))
	for _, s := range segments {
		c := domain.Congestion(s.CurrentSpeed, s.FreeFlowSpeed)
		hotspots = append(hotspots, domain.Hotspot{
			Segment:    s,
			Congestion: c,
			Level:      domain.CongestionLevel(c),
		})
	}
	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].Congestion > hotspots[j].Congestion
	})
	return hotspots
}

// TopN returns the n most congested segments. A stale cache triggers
// a refresh; on upstream failure the previous ranking (possibly
// empty) is served so hotspot display degrades instead of blocking.
func (r *HotspotRanker) TopN(ctx context.Context, n int) []domain.Hotspot {
	r.mu.Lock()
	fresh := time.Since(r.rankedAt) < r.maxAge && r.ranked != nil
	ranked := r.ranked
	r.mu.Unlock()

	if !fresh {
		ranked = r.refresh(ctx)
	}

	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]domain.Hotspot, n)
	copy(out, ranked[:n])
	return out
}

func (r *HotspotRanker) refresh(ctx context.Context) []domain.Hotspot {
	segments, err := r.fetcher.FetchAll(ctx)
	if err != nil {
		log.Printf("hotspots: refresh failed, serving stale ranking: %v", err)
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.ranked
	}

	ranked := Rank(segments)
	r.mu.Lock()
	r.ranked = ranked
	r.rankedAt = time.Now()
	r.mu.Unlock()
	return ranked
}

// Run re-polls the ranking every maxAge until the context is
// cancelled.
func (r *HotspotRanker) Run(ctx context.Context) {
	ticker := time.NewTicker(r.maxAge)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}
