package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/geo"
)

// sendBuffer is the per-client queue headroom beyond the replay
// backlog. A client that cannot drain this many ops is dropped.
const sendBuffer = 256

// renderOp is one message on the overlay stream. The frontend replays
// these against its map widget.
type renderOp struct {
	Op       string             `json:"op"`
	ID       string             `json:"id,omitempty"`
	Kind     string             `json:"kind,omitempty"`
	Position *geo.LatLng        `json:"position,omitempty"`
	Feature  *geojson.Feature   `json:"feature,omitempty"`
	Style    *domain.RouteStyle `json:"style,omitempty"`
}

type polylineState struct {
	coords []geo.LatLng
	style  domain.RouteStyle
}

type markerState struct {
	kind string
	at   geo.LatLng
}

// client is one websocket subscriber. All writes to the conn go
// through the send queue, drained by a single writer goroutine, so the
// conn never sees concurrent writers. Closing send stops the writer
// and closes the conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	c.conn.Close()
}

// Hub is the production map surface: every render operation is
// broadcast to the connected websocket clients, and the retained state
// is replayed to each new subscriber so late joiners see the full
// overlay. A destroyed hub ignores all further operations.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	polylines map[string]polylineState
	markers   map[string]markerState
	destroyed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		polylines: make(map[string]polylineState),
		markers:   make(map[string]markerState),
	}
}

// Handle serves one websocket subscriber. The replay backlog is queued
// and the client registered under the same lock, so the subscriber
// sees the retained state followed by every later broadcast, in order
// and with no gap.
func (h *Hub) Handle(conn *websocket.Conn) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	replay := h.replayOpsLocked()
	cl := &client{
		conn: conn,
		send: make(chan []byte, len(replay)+sendBuffer),
	}
	for _, op := range replay {
		data, err := json.Marshal(op)
		if err != nil {
			log.Printf("overlay: failed to marshal replay op: %v", err)
			continue
		}
		cl.send <- data
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go cl.writeLoop()

	// Read loop: we ignore client messages, the read unblocks on close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(cl)
			return
		}
	}
}

func (h *Hub) replayOpsLocked() []renderOp {
	ops := make([]renderOp, 0, len(h.polylines)+len(h.markers))
	for id, p := range h.polylines {
		ops = append(ops, polylineOp("addPolyline", id, p.coords, p.style))
	}
	for id, m := range h.markers {
		at := m.at
		ops = append(ops, renderOp{Op: "upsertMarker", ID: id, Kind: m.kind, Position: &at})
	}
	return ops
}

// remove drops a client. The send channel is closed at most once:
// only while the client is still registered.
func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

// AddPolyline renders a route line.
func (h *Hub) AddPolyline(id string, coords []geo.LatLng, style domain.RouteStyle) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.polylines[id] = polylineState{coords: coords, style: style}
	h.broadcastLocked(polylineOp("addPolyline", id, coords, style))
	h.mu.Unlock()
}

// SetPolylineStyle restyles a rendered line; unknown handles are a no-op.
func (h *Hub) SetPolylineStyle(id string, style domain.RouteStyle) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	p, ok := h.polylines[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	p.style = style
	h.polylines[id] = p
	s := style
	h.broadcastLocked(renderOp{Op: "setPolylineStyle", ID: id, Style: &s})
	h.mu.Unlock()
}

// RemovePolyline removes a rendered line.
func (h *Hub) RemovePolyline(id string) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	delete(h.polylines, id)
	h.broadcastLocked(renderOp{Op: "removePolyline", ID: id})
	h.mu.Unlock()
}

// UpsertMarker places or moves a marker.
func (h *Hub) UpsertMarker(id, kind string, at geo.LatLng) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.markers[id] = markerState{kind: kind, at: at}
	pos := at
	h.broadcastLocked(renderOp{Op: "upsertMarker", ID: id, Kind: kind, Position: &pos})
	h.mu.Unlock()
}

// RemoveMarker removes a marker.
func (h *Hub) RemoveMarker(id string) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	delete(h.markers, id)
	h.broadcastLocked(renderOp{Op: "removeMarker", ID: id})
	h.mu.Unlock()
}

// Clear wipes the whole overlay.
func (h *Hub) Clear() {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.polylines = make(map[string]polylineState)
	h.markers = make(map[string]markerState)
	h.broadcastLocked(renderOp{Op: "clear"})
	h.mu.Unlock()
}

// Destroy tears the surface down. Every later operation is ignored and
// all clients are disconnected.
func (h *Hub) Destroy() {
	h.mu.Lock()
	h.destroyed = true
	for cl := range h.clients {
		close(cl.send)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
}

// broadcastLocked enqueues the op on every client's send queue. A
// client whose queue is full cannot keep up with the frame rate and is
// dropped rather than allowed to stall the hub.
func (h *Hub) broadcastLocked(op renderOp) {
	data, err := json.Marshal(op)
	if err != nil {
		log.Printf("overlay: failed to marshal render op: %v", err)
		return
	}
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

func polylineOp(opName, id string, coords []geo.LatLng, style domain.RouteStyle) renderOp {
	f := geojson.NewFeature(geo.LineString(coords))
	f.Properties["color"] = style.Color
	f.Properties["opacity"] = style.Opacity
	f.Properties["weight"] = style.Weight
	s := style
	return renderOp{Op: opName, ID: id, Feature: f, Style: &s}
}
