package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/flowx/backend/internal/delivery/ws"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler, hub *ws.Hub) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Traffic endpoints
		api.Get("/traffic/data", handler.GetTrafficData)
		api.Get("/traffic/history", handler.GetTrafficHistory)
		api.Get("/traffic/roads", handler.GetRoads)
		api.Get("/traffic/available-ranges", handler.GetAvailableRanges)
		api.Get("/traffic/hotspots", handler.GetHotspots)

		// Map interaction endpoints
		api.Post("/map/nodes", handler.PlaceNode)
		api.Post("/map/nodes/:id/select", handler.SelectNode)
		api.Delete("/map/nodes/:id", handler.RemoveNode)
		api.Delete("/map/routes", handler.ClearRoutes)
		api.Post("/map/flow", handler.SetTrafficFlow)
		api.Get("/map/state", handler.GetMapState)

		// Live overlay stream
		api.Use("/overlay/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		api.Get("/overlay/ws", websocket.New(hub.Handle))
	}
}
