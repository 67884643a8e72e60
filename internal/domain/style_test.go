package domain

import "testing"

func TestStyleFor_Breakpoints(t *testing.T) {
	low := StyleFor(0)
	mid := StyleFor(45)
	high := StyleFor(90)

	tests := []struct {
		congestion int
		want       RouteStyle
	}{
		{0, low},
		{29, low},
		{30, mid},
		{59, mid},
		{60, high},
		{100, high},
	}

	for _, tc := range tests {
		if got := StyleFor(tc.congestion); got != tc.want {
			t.Errorf("StyleFor(%d) = %+v, want %+v", tc.congestion, got, tc.want)
		}
	}

	if low == mid || mid == high || low == high {
		t.Error("style buckets must be visually distinct")
	}
}

func TestDefaultStyle_IsLowBucket(t *testing.T) {
	if DefaultStyle() != StyleFor(0) {
		t.Error("a fresh route must start in the low-congestion style")
	}
}
