package domain

import "testing"

func TestCongestion_Range(t *testing.T) {
	speeds := []float64{-10, 0, 0.5, 5, 20, 35, 60, 120, 1000}
	for _, cur := range speeds {
		for _, free := range speeds {
			c := Congestion(cur, free)
			if c < 0 || c > 100 {
				t.Errorf("Congestion(%v, %v) = %d, out of [0,100]", cur, free, c)
			}
		}
	}
}

func TestCongestion_ZeroSpeeds(t *testing.T) {
	for _, free := range []float64{0, 10, 60, 130} {
		if c := Congestion(0, free); c != 0 {
			t.Errorf("Congestion(0, %v) = %d, want 0", free, c)
		}
	}
	if c := Congestion(50, 0); c != 0 {
		t.Errorf("Congestion(50, 0) = %d, want 0", c)
	}
}

func TestCongestion_Values(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		freeFlow float64
		want     int
	}{
		{"free flowing", 60, 60, 0},
		{"half speed", 30, 60, 50},
		{"quarter speed", 15, 60, 75},
		{"standstill-ish", 3, 60, 95},
		{"faster than free flow", 70, 60, 0},
		{"third", 20, 60, 67},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Congestion(tc.current, tc.freeFlow); got != tc.want {
				t.Errorf("Congestion(%v, %v) = %d, want %d", tc.current, tc.freeFlow, got, tc.want)
			}
		})
	}
}

func TestCongestion_MonotoneInSpeedDeficit(t *testing.T) {
	// Lower current speed must never produce lower congestion.
	free := 60.0
	prev := -1
	for cur := 60.0; cur >= 1; cur-- {
		c := Congestion(cur, free)
		if c < prev {
			t.Fatalf("congestion decreased from %d to %d at speed %v", prev, c, cur)
		}
		prev = c
	}
}

func TestCongestionLevel(t *testing.T) {
	tests := []struct {
		congestion int
		want       string
	}{
		{0, "Free Flow"},
		{19, "Free Flow"},
		{20, "Light"},
		{45, "Moderate"},
		{60, "Heavy"},
		{80, "Severe"},
		{100, "Severe"},
	}
	for _, tc := range tests {
		if got := CongestionLevel(tc.congestion); got != tc.want {
			t.Errorf("CongestionLevel(%d) = %q, want %q", tc.congestion, got, tc.want)
		}
	}
}
