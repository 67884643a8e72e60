package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/internal/overlay"
	"github.com/flowx/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	monitor    *service.TrafficMonitor
	client     *service.TrafficClient
	ranker     *service.HotspotRanker
	controller *overlay.Controller
	repo       domain.TrafficRepository
}

// NewHandler creates a new handler
func NewHandler(
	monitor *service.TrafficMonitor,
	client *service.TrafficClient,
	ranker *service.HotspotRanker,
	controller *overlay.Controller,
	repo domain.TrafficRepository,
) *Handler {
	return &Handler{
		monitor:    monitor,
		client:     client,
		ranker:     ranker,
		controller: controller,
		repo:       repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	db := "connected"
	if err := h.repo.Health(c.Context()); err != nil {
		status = "degraded"
		db = "disconnected"
	}
	return c.JSON(fiber.Map{
		"status":   status,
		"service":  "flowx-backend",
		"database": db,
	})
}

// GetTrafficData returns the segment snapshot, optionally re-queried
// with filters. Without filters the cached monitor snapshot is served.
func (h *Handler) GetTrafficData(c *fiber.Ctx) error {
	filter := service.TrafficFilter{
		MapID:     c.Query("map_id"),
		Search:    c.Query("search"),
		Date:      c.Query("date"),
		StartTime: c.Query("startTime"),
		EndTime:   c.Query("endTime"),
	}

	if filter == (service.TrafficFilter{}) {
		segments, polledAt := h.monitor.Snapshot()
		return c.JSON(fiber.Map{
			"success":  true,
			"data":     segments,
			"count":    len(segments),
			"polledAt": polledAt,
		})
	}

	segments, err := h.client.Fetch(c.Context(), filter)
	if err != nil {
		// Read path: degrade to the empty result, the UI shows "no data".
		return c.JSON(fiber.Map{
			"success": true,
			"data":    []domain.Segment{},
			"count":   0,
		})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"data":     segments,
		"count":    len(segments),
		"polledAt": time.Now(),
	})
}

// GetTrafficHistory returns stored samples for one road
func (h *Handler) GetTrafficHistory(c *fiber.Ctx) error {
	roadID := c.Query("road_id")
	if roadID == "" {
		return &domain.ValidationError{Field: "road_id", Reason: "query parameter is required"}
	}

	history, err := h.repo.History(c.Context(), roadID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    history,
		"count":   len(history),
	})
}

// GetRoads returns filter metadata for the history browser
func (h *Handler) GetRoads(c *fiber.Ctx) error {
	roads, err := h.repo.Roads(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    roads,
	})
}

// GetAvailableRanges returns the date/time window covered by storage
func (h *Handler) GetAvailableRanges(c *fiber.Ctx) error {
	ranges, err := h.repo.AvailableRanges(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(ranges)
}

// GetHotspots returns the top-N most congested segments
func (h *Handler) GetHotspots(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 5)
	if limit < 1 || limit > 100 {
		limit = 5
	}
	hotspots := h.ranker.TopN(c.Context(), limit)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    hotspots,
		"count":   len(hotspots),
	})
}

type placeNodeRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceNode handles a map click in placement mode
func (h *Handler) PlaceNode(c *fiber.Ctx) error {
	var req placeNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "expected {lat, lng}"}
	}

	node, err := h.controller.PlaceNode(c.Context(), req.Lat, req.Lng)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    node,
	})
}

// SelectNode handles a click on an existing node. A completed pair
// responds with the committed connection.
func (h *Handler) SelectNode(c *fiber.Ctx) error {
	conn, err := h.controller.ClickNode(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	resp := fiber.Map{"success": true, "state": h.controller.Snapshot()}
	if conn != nil {
		resp["connection"] = conn
	}
	return c.JSON(resp)
}

// RemoveNode deletes a node and cascades to its connections
func (h *Handler) RemoveNode(c *fiber.Ctx) error {
	if err := h.controller.RemoveNode(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ClearRoutes removes every connection and route
func (h *Handler) ClearRoutes(c *fiber.Ctx) error {
	h.controller.ClearConnections()
	return c.JSON(fiber.Map{"success": true})
}

type flowToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// SetTrafficFlow toggles the vehicle animation
func (h *Handler) SetTrafficFlow(c *fiber.Ctx) error {
	var req flowToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "expected {enabled}"}
	}
	h.controller.SetFlowEnabled(req.Enabled)
	return c.JSON(fiber.Map{
		"success":     true,
		"flowEnabled": h.controller.FlowEnabled(),
	})
}

// GetMapState returns the current nodes, connections and toggle state
func (h *Handler) GetMapState(c *fiber.Ctx) error {
	return c.JSON(h.controller.Snapshot())
}
