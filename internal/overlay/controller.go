package overlay

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/geo"
)

// RoutePlanner is the route calculation and rendering dependency of
// the controller.
type RoutePlanner interface {
	Calculate(ctx context.Context, start, end geo.LatLng) (string, domain.Route, error)
	UpdateStyle(routeID string, style domain.RouteStyle)
	Remove(routeID string)
	Clear()
	Lookup(routeID string) (domain.Route, bool)
}

// Geocoder resolves a human-readable road name for a coordinate. It
// never fails: implementations return a placeholder when resolution
// is impossible.
type Geocoder interface {
	RoadName(ctx context.Context, lat, lng float64) string
}

// Controller owns node placement, selection pairing and
// route-connection bookkeeping. A single mutex serializes every
// operation, so handlers, pollers and the geocoder goroutines
// interleave without racing.
//
// The selection gesture is a two-state machine: Idle (nothing
// selected) and OneSelected. Clicking the selected node again
// deselects it and drops the connections touching it; clicking a
// different node requests a route and commits the connection only
// after the calculation resolves.
type Controller struct {
	mu       sync.Mutex
	surface  Surface
	planner  RoutePlanner
	geocoder Geocoder

	nextNodeID  int
	nodes       map[string]*domain.Node
	connections []domain.RouteConnection
	selected    string
	flowOn      bool
	fleets      map[string]*Fleet
	segments    []domain.Segment
}

// NewController creates a controller rendering on the given surface.
// geocoder may be nil, in which case nodes keep an empty road name.
func NewController(surface Surface, planner RoutePlanner, geocoder Geocoder) *Controller {
	return &Controller{
		surface:  surface,
		planner:  planner,
		geocoder: geocoder,
		nodes:    make(map[string]*domain.Node),
		fleets:   make(map[string]*Fleet),
	}
}

// PlaceNode creates a node at the clicked position, renders its marker
// and resolves its road name in the background. Node creation never
// waits on geocoding.
func (c *Controller) PlaceNode(ctx context.Context, lat, lng float64) (domain.Node, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.Node{}, &domain.ValidationError{Field: "coordinates", Reason: "latitude/longitude out of range"}
	}

	c.mu.Lock()
	c.nextNodeID++
	node := &domain.Node{
		ID:  strconv.Itoa(c.nextNodeID),
		Lat: lat,
		Lng: lng,
	}
	c.nodes[node.ID] = node
	c.surface.UpsertMarker(nodeMarkerID(node.ID), MarkerNode, node.Position())
	c.mu.Unlock()

	if c.geocoder != nil {
		go c.resolveRoadName(node.ID, lat, lng)
	}
	return *node, nil
}

func (c *Controller) resolveRoadName(nodeID string, lat, lng float64) {
	name := c.geocoder.RoadName(context.Background(), lat, lng)

	c.mu.Lock()
	defer c.mu.Unlock()
	if node, ok := c.nodes[nodeID]; ok {
		node.RoadName = name
	}
}

// ClickNode drives the selection state machine. It returns the newly
// committed connection when the click completed a pair, or nil for
// select/deselect transitions.
func (c *Controller) ClickNode(ctx context.Context, nodeID string) (*domain.RouteConnection, error) {
	c.mu.Lock()

	node, ok := c.nodes[nodeID]
	if !ok {
		c.mu.Unlock()
		return nil, &domain.NotFoundError{Kind: "node", ID: nodeID}
	}

	// Idle -> OneSelected
	if c.selected == "" {
		c.selected = nodeID
		c.surface.UpsertMarker(nodeMarkerID(nodeID), MarkerNodeSelected, node.Position())
		c.mu.Unlock()
		return nil, nil
	}

	// OneSelected, same node -> Idle: deselect and drop connections
	// touching it.
	if c.selected == nodeID {
		c.selected = ""
		c.surface.UpsertMarker(nodeMarkerID(nodeID), MarkerNode, node.Position())
		c.removeConnectionsTouchingLocked(nodeID)
		c.mu.Unlock()
		return nil, nil
	}

	// OneSelected, different node -> Idle, emitting a connection.
	first := c.nodes[c.selected]
	c.resetSelectionLocked()

	if c.duplicateLocked(first, node) {
		c.mu.Unlock()
		return nil, &domain.ValidationError{
			Field:  "connection",
			Reason: "a connection between these roads already exists",
		}
	}

	start, end := first.Position(), node.Position()
	firstID, secondID := first.ID, node.ID
	c.mu.Unlock()

	// Route calculation is a network call; run it without the lock so
	// other interactions stay responsive.
	routeID, _, err := c.planner.Calculate(ctx, start, end)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The world may have moved while the route was calculating.
	a, okA := c.nodes[firstID]
	b, okB := c.nodes[secondID]
	if !okA || !okB {
		c.planner.Remove(routeID)
		return nil, &domain.NotFoundError{Kind: "node", ID: firstID}
	}
	if c.duplicateLocked(a, b) {
		c.planner.Remove(routeID)
		return nil, &domain.ValidationError{
			Field:  "connection",
			Reason: "a connection between these roads already exists",
		}
	}

	conn := domain.RouteConnection{Node1: firstID, Node2: secondID, RouteID: routeID}
	c.connections = append(c.connections, conn)
	if c.flowOn {
		c.spawnFleetLocked(conn)
	}
	return &conn, nil
}

// duplicateLocked applies the undirected uniqueness invariant: a pair
// of nodes, or a pair of resolved road names, may carry at most one
// connection.
func (c *Controller) duplicateLocked(a, b *domain.Node) bool {
	for _, conn := range c.connections {
		if conn.SamePair(a.ID, b.ID) {
			return true
		}
		n1, ok1 := c.nodes[conn.Node1]
		n2, ok2 := c.nodes[conn.Node2]
		if !ok1 || !ok2 {
			continue
		}
		if a.RoadName == "" || b.RoadName == "" {
			continue
		}
		if (n1.RoadName == a.RoadName && n2.RoadName == b.RoadName) ||
			(n1.RoadName == b.RoadName && n2.RoadName == a.RoadName) {
			return true
		}
	}
	return false
}

// RemoveNode deletes a node, its marker, every connection touching it
// and the routes behind those connections.
func (c *Controller) RemoveNode(nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.nodes[nodeID]; !ok {
		return &domain.NotFoundError{Kind: "node", ID: nodeID}
	}

	c.surface.RemoveMarker(nodeMarkerID(nodeID))
	c.removeConnectionsTouchingLocked(nodeID)
	delete(c.nodes, nodeID)
	if c.selected == nodeID {
		c.selected = ""
	}
	return nil
}

func (c *Controller) removeConnectionsTouchingLocked(nodeID string) {
	kept := c.connections[:0]
	for _, conn := range c.connections {
		if conn.Touches(nodeID) {
			c.stopFleetLocked(conn.RouteID)
			c.planner.Remove(conn.RouteID)
			continue
		}
		kept = append(kept, conn)
	}
	c.connections = kept
}

// ClearConnections removes every connection and route but keeps the
// placed nodes. Safe to call with nothing to clear.
func (c *Controller) ClearConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, conn := range c.connections {
		c.stopFleetLocked(conn.RouteID)
	}
	c.planner.Clear()
	c.connections = nil
}

// SetFlowEnabled toggles the vehicle animation. Enabling spawns a
// fleet per connection sized from the latest traffic snapshot;
// disabling tears every fleet down.
func (c *Controller) SetFlowEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flowOn == on {
		return
	}
	c.flowOn = on

	if on {
		for _, conn := range c.connections {
			c.spawnFleetLocked(conn)
		}
		return
	}
	for routeID := range c.fleets {
		c.stopFleetLocked(routeID)
	}
}

// FlowEnabled reports whether the vehicle animation is running.
func (c *Controller) FlowEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flowOn
}

// Refresh applies a new traffic snapshot: every route is restyled from
// its nearest segment's congestion and running fleets are resized or
// retimed to match.
func (c *Controller) Refresh(segments []domain.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.segments = segments
	for _, conn := range c.connections {
		seg, congestion, ok := c.connectionTrafficLocked(conn)
		if !ok {
			continue
		}
		c.planner.UpdateStyle(conn.RouteID, domain.StyleFor(congestion))

		if !c.flowOn {
			continue
		}
		fleet, exists := c.fleets[conn.RouteID]
		if !exists {
			c.spawnFleetLocked(conn)
			continue
		}
		if fleet.Size() != VehicleCount(congestion) {
			c.stopFleetLocked(conn.RouteID)
			c.spawnFleetLocked(conn)
			continue
		}
		fleet.SetSpeed(seg.CurrentSpeed)
	}
}

func (c *Controller) connectionTrafficLocked(conn domain.RouteConnection) (domain.Segment, int, bool) {
	a, okA := c.nodes[conn.Node1]
	b, okB := c.nodes[conn.Node2]
	if !okA || !okB {
		return domain.Segment{}, 0, false
	}
	seg := domain.ClosestSegment(c.segments, a.Position(), b.Position())
	return seg, domain.Congestion(seg.CurrentSpeed, seg.FreeFlowSpeed), true
}

func (c *Controller) spawnFleetLocked(conn domain.RouteConnection) {
	route, ok := c.planner.Lookup(conn.RouteID)
	if !ok || len(route.Coordinates) < 2 {
		return
	}
	seg, congestion, ok := c.connectionTrafficLocked(conn)
	if !ok {
		return
	}
	fleet := NewFleet(conn.RouteID, route, congestion, seg.CurrentSpeed, c.surface)
	fleet.Start()
	c.fleets[conn.RouteID] = fleet
}

func (c *Controller) stopFleetLocked(routeID string) {
	if fleet, ok := c.fleets[routeID]; ok {
		fleet.Stop()
		delete(c.fleets, routeID)
	}
}

func (c *Controller) resetSelectionLocked() {
	if c.selected == "" {
		return
	}
	if node, ok := c.nodes[c.selected]; ok {
		c.surface.UpsertMarker(nodeMarkerID(node.ID), MarkerNode, node.Position())
	}
	c.selected = ""
}

// State is a read-only snapshot of the interaction state.
type State struct {
	Nodes       []domain.Node            `json:"nodes"`
	Connections []domain.RouteConnection `json:"connections"`
	Selected    string                   `json:"selected,omitempty"`
	FlowEnabled bool                     `json:"flowEnabled"`
}

// Snapshot returns the current nodes, connections and toggle state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes := make([]domain.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, _ := strconv.Atoi(nodes[i].ID)
		b, _ := strconv.Atoi(nodes[j].ID)
		return a < b
	})

	conns := make([]domain.RouteConnection, len(c.connections))
	copy(conns, c.connections)

	return State{
		Nodes:       nodes,
		Connections: conns,
		Selected:    c.selected,
		FlowEnabled: c.flowOn,
	}
}

// Shutdown stops every running fleet. Used on process teardown.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for routeID := range c.fleets {
		c.stopFleetLocked(routeID)
	}
}

func nodeMarkerID(nodeID string) string {
	return "node-" + nodeID
}
