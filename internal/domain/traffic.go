package domain

import (
	"math"
	"time"

	"github.com/flowx/backend/pkg/geo"
	"github.com/flowx/backend/pkg/utils"
)

// Incident represents a road event like an accident or roadwork
type Incident struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Type        string  `json:"type"` // "accident", "roadwork", "police"
	Description string  `json:"description"`
}

// Segment is a backend-tracked road stretch with live speed telemetry.
// Field tags match the traffic backend wire format.
type Segment struct {
	RoadID          string     `json:"road_id"`
	StreetName      string     `json:"streetName"`
	Coordinate      geo.LatLng `json:"coordinates"`
	CurrentSpeed    float64    `json:"currentSpeed"`
	FreeFlowSpeed   float64    `json:"freeFlowSpeed"`
	Intensity       float64    `json:"intensity"`
	LastUpdated     time.Time  `json:"lastUpdated"`
	AccidentCount   int        `json:"accidentCount"`
	CongestionCount int        `json:"congestionCount"`
	Incidents       []Incident `json:"incidents"`
}

// TrafficSample is an ephemeral per-poll reading for one route. It is
// recomputed on every refresh and never persisted.
type TrafficSample struct {
	CurrentSpeed  float64    `json:"currentSpeed"`
	FreeFlowSpeed float64    `json:"freeFlowSpeed"`
	Congestion    int        `json:"congestion"`
	Incidents     []Incident `json:"incidents"`
	AccidentCount int        `json:"accidentCount"`
	SampledAt     time.Time  `json:"sampledAt"`
}

// Hotspot is a segment ranked by its current congestion.
type Hotspot struct {
	Segment
	Congestion int    `json:"congestion"`
	Level      string `json:"congestion_level"`
}

// Congestion computes the percentage speed deficit relative to free
// flow: round(clamp(0,100,(1-current/free)*100)). Zero or missing
// speeds yield 0. Pure and total.
func Congestion(currentSpeed, freeFlowSpeed float64) int {
	if currentSpeed <= 0 || freeFlowSpeed <= 0 {
		return 0
	}
	pct := (1 - currentSpeed/freeFlowSpeed) * 100
	return int(math.Round(utils.Clamp(pct, 0, 100)))
}

// CongestionLevel returns a human-readable level for a 0-100 value
func CongestionLevel(congestion int) string {
	switch {
	case congestion >= 80:
		return "Severe"
	case congestion >= 60:
		return "Heavy"
	case congestion >= 40:
		return "Moderate"
	case congestion >= 20:
		return "Light"
	default:
		return "Free Flow"
	}
}

// Sample derives the ephemeral traffic reading for a segment.
func (s Segment) Sample(now time.Time) TrafficSample {
	incidents := s.Incidents
	if incidents == nil {
		incidents = []Incident{}
	}
	return TrafficSample{
		CurrentSpeed:  s.CurrentSpeed,
		FreeFlowSpeed: s.FreeFlowSpeed,
		Congestion:    Congestion(s.CurrentSpeed, s.FreeFlowSpeed),
		Incidents:     incidents,
		AccidentCount: s.AccidentCount,
		SampledAt:     now,
	}
}
