package overlay

import (
	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/pkg/geo"
)

// Marker kinds understood by surface implementations.
const (
	MarkerNode         = "node"
	MarkerNodeSelected = "node-selected"
	MarkerVehicle      = "vehicle"
)

// Surface is the rendering sink every overlay component draws on. It
// is owned by the page-level composition for its whole lifetime and
// injected into anything that needs to render; implementations must
// ignore operations after they have been destroyed.
type Surface interface {
	AddPolyline(id string, coords []geo.LatLng, style domain.RouteStyle)
	SetPolylineStyle(id string, style domain.RouteStyle)
	RemovePolyline(id string)
	UpsertMarker(id, kind string, at geo.LatLng)
	RemoveMarker(id string)
	Clear()
}
