package geo

import (
	"math"
	"testing"
)

func TestDistance_KnownValue(t *testing.T) {
	// Roughly 111km per degree of latitude.
	a := LatLng{Lat: 43.0, Lng: 76.9}
	b := LatLng{Lat: 44.0, Lng: 76.9}
	d := Distance(a, b)
	if d < 110000 || d > 112000 {
		t.Errorf("Distance over one degree of latitude = %v m, want ~111km", d)
	}
}

func TestMidpoint(t *testing.T) {
	a := LatLng{Lat: 43.0, Lng: 76.0}
	b := LatLng{Lat: 43.2, Lng: 76.4}
	m := Midpoint(a, b)
	if math.Abs(m.Lat-43.1) > 0.01 || math.Abs(m.Lng-76.2) > 0.01 {
		t.Errorf("Midpoint = %+v, want ~{43.1 76.2}", m)
	}
}

func TestPolylineLength_Additive(t *testing.T) {
	line := []LatLng{
		{Lat: 43.0, Lng: 76.0},
		{Lat: 43.1, Lng: 76.0},
		{Lat: 43.2, Lng: 76.0},
	}
	full := PolylineLength(line)
	first := Distance(line[0], line[1])
	second := Distance(line[1], line[2])
	if math.Abs(full-(first+second)) > 1 {
		t.Errorf("PolylineLength = %v, want sum of segments %v", full, first+second)
	}
}

func TestPointAlong(t *testing.T) {
	line := []LatLng{
		{Lat: 43.0, Lng: 76.0},
		{Lat: 43.1, Lng: 76.0},
	}
	total := PolylineLength(line)

	t.Run("start", func(t *testing.T) {
		p := PointAlong(line, 0)
		if p != line[0] {
			t.Errorf("PointAlong(0) = %+v, want start point", p)
		}
	})

	t.Run("halfway", func(t *testing.T) {
		p := PointAlong(line, total/2)
		if math.Abs(p.Lat-43.05) > 0.001 {
			t.Errorf("PointAlong(half) = %+v, want lat ~43.05", p)
		}
	})

	t.Run("past the end clamps", func(t *testing.T) {
		p := PointAlong(line, total*2)
		if p != line[1] {
			t.Errorf("PointAlong(2*total) = %+v, want end point", p)
		}
	})

	t.Run("empty line", func(t *testing.T) {
		if p := PointAlong(nil, 100); p != (LatLng{}) {
			t.Errorf("PointAlong on empty line = %+v, want zero value", p)
		}
	})

	t.Run("single point", func(t *testing.T) {
		if p := PointAlong(line[:1], 100); p != line[0] {
			t.Errorf("PointAlong on single point = %+v, want that point", p)
		}
	})
}
