package domain

import (
	"context"
)

// DateRange bounds the stored history, formatted DD-MM-YYYY.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeRange bounds the stored history within a day, formatted HH:mm.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AvailableRanges describes the date and time window covered by the
// persisted traffic samples, used by history filter pickers.
type AvailableRanges struct {
	DateRange DateRange `json:"dateRange"`
	TimeRange TimeRange `json:"timeRange"`
}

// RoadInfo identifies one tracked road for filter metadata.
type RoadInfo struct {
	RoadID     string `json:"road_id"`
	StreetName string `json:"streetName"`
}

// TrafficRepository defines the interface for traffic sample persistence.
// This follows the Dependency Inversion Principle - domain defines the interface
type TrafficRepository interface {
	// SaveSegmentSamples persists one polled snapshot of all segments
	SaveSegmentSamples(ctx context.Context, segments []Segment) error

	// History retrieves stored samples for one road, newest first
	History(ctx context.Context, roadID string) ([]Segment, error)

	// Roads lists the distinct roads present in the stored samples
	Roads(ctx context.Context) ([]RoadInfo, error)

	// AvailableRanges reports the date/time window covered by storage
	AvailableRanges(ctx context.Context) (AvailableRanges, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}
