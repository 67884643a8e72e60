package domain

import (
	"github.com/flowx/backend/pkg/geo"
)

// Node is a user-placed point of interest on the live map. IDs come
// from a monotonically increasing counter, formatted as strings.
type Node struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RoadName string  `json:"roadName,omitempty"`
}

// Position returns the node coordinate.
func (n Node) Position() geo.LatLng {
	return geo.LatLng{Lat: n.Lat, Lng: n.Lng}
}

// RouteConnection links two nodes through a calculated route.
// Connections are undirected: (A,B) and (B,A) are the same connection.
type RouteConnection struct {
	Node1   string `json:"node1"`
	Node2   string `json:"node2"`
	RouteID string `json:"routeId"`
}

// Touches reports whether the connection references the given node.
func (c RouteConnection) Touches(nodeID string) bool {
	return c.Node1 == nodeID || c.Node2 == nodeID
}

// SamePair reports whether the connection links the given node pair
// in either order.
func (c RouteConnection) SamePair(a, b string) bool {
	return (c.Node1 == a && c.Node2 == b) || (c.Node1 == b && c.Node2 == a)
}

// Route is an ordered coordinate polyline with aggregate distance and
// travel time, sourced from the routing backend.
type Route struct {
	Coordinates []geo.LatLng `json:"coordinates"`
	Distance    float64      `json:"distance"` // meters
	Time        float64      `json:"time"`     // seconds
}

// Length returns the polyline length in meters.
func (r Route) Length() float64 {
	return geo.PolylineLength(r.Coordinates)
}
