package domain

import (
	"github.com/flowx/backend/pkg/geo"
)

// ClosestSegment finds the segment whose reference coordinate is
// closest (great-circle) to the midpoint of a and b. Exact ties keep
// the first segment in input order. An empty input yields a
// zero-valued segment, never an error: callers treat it as "no data".
func ClosestSegment(segments []Segment, a, b geo.LatLng) Segment {
	if len(segments) == 0 {
		return Segment{Incidents: []Incident{}}
	}

	mid := geo.Midpoint(a, b)
	best := segments[0]
	bestDist := geo.Distance(best.Coordinate, mid)
	for _, s := range segments[1:] {
		if d := geo.Distance(s.Coordinate, mid); d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}
