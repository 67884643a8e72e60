package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// LatLng is a WGS84 coordinate as the backend wire format carries it.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Distance returns the haversine distance between two points in meters.
func Distance(a, b LatLng) float64 {
	return orbgeo.DistanceHaversine(a.point(), b.point())
}

// Midpoint returns the geographic midpoint of a and b.
func Midpoint(a, b LatLng) LatLng {
	m := orbgeo.Midpoint(a.point(), b.point())
	return LatLng{Lat: m[1], Lng: m[0]}
}

// Bearing returns the initial bearing from a to b in degrees.
func Bearing(a, b LatLng) float64 {
	return orbgeo.Bearing(a.point(), b.point())
}

// PolylineLength returns the total length of a polyline in meters.
func PolylineLength(coords []LatLng) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// LineString converts a coordinate sequence to an orb line string
// (lng/lat order, as GeoJSON expects).
func LineString(coords []LatLng) orb.LineString {
	ls := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		ls = append(ls, c.point())
	}
	return ls
}

// PointAlong walks the polyline and returns the point at the given
// distance in meters from its start. The distance is clamped to
// [0, total length], so the result is always on the line.
func PointAlong(coords []LatLng, target float64) LatLng {
	switch len(coords) {
	case 0:
		return LatLng{}
	case 1:
		return coords[0]
	}
	if target <= 0 {
		return coords[0]
	}

	var acc float64
	for i := 1; i < len(coords); i++ {
		segLen := Distance(coords[i-1], coords[i])
		if acc+segLen >= target {
			if segLen == 0 {
				return coords[i]
			}
			f := (target - acc) / segLen
			return LatLng{
				Lat: coords[i-1].Lat + (coords[i].Lat-coords[i-1].Lat)*f,
				Lng: coords[i-1].Lng + (coords[i].Lng-coords[i-1].Lng)*f,
			}
		}
		acc += segLen
	}
	return coords[len(coords)-1]
}
