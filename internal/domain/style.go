package domain

// RouteStyle is the visual style applied to a rendered route line.
type RouteStyle struct {
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Weight  int     `json:"weight"`
}

// Congestion thresholds shared by route coloring and hotspot ranking.
// Keeping a single step function guarantees visual consistency.
const (
	congestionAmber = 30
	congestionRed   = 60
)

var (
	styleLow  = RouteStyle{Color: "#4CAF50", Opacity: 0.85, Weight: 5}
	styleMid  = RouteStyle{Color: "#FFC107", Opacity: 0.85, Weight: 6}
	styleHigh = RouteStyle{Color: "#F44336", Opacity: 0.9, Weight: 7}
)

// StyleFor maps a congestion value to a route style: green below 30,
// amber from 30 to 59, red from 60 up.
func StyleFor(congestion int) RouteStyle {
	switch {
	case congestion >= congestionRed:
		return styleHigh
	case congestion >= congestionAmber:
		return styleMid
	default:
		return styleLow
	}
}

// DefaultStyle is the style applied to a freshly rendered route before
// any traffic reading exists for it.
func DefaultStyle() RouteStyle {
	return styleLow
}
