package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	httpdelivery "github.com/flowx/backend/internal/delivery/http"
	"github.com/flowx/backend/internal/delivery/ws"
	"github.com/flowx/backend/internal/domain"
	"github.com/flowx/backend/internal/overlay"
	"github.com/flowx/backend/internal/repository/postgres"
	"github.com/flowx/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Running with in-memory storage only")
		} else {
			pool = p
			defer pool.Close()
			log.Println("Connected to PostgreSQL")
		}
	} else {
		log.Println("No DATABASE_URL configured, running with in-memory storage")
	}

	// Dependency Injection: Repositories
	var repo domain.TrafficRepository
	if pool != nil {
		repo = postgres.NewPostgresRepository(pool)
	} else {
		repo = postgres.NewMockRepository()
	}

	// The map surface: a websocket hub owned here for the process
	// lifetime, injected into everything that renders on it.
	hub := ws.NewHub()

	// Dependency Injection: Services
	trafficClient := service.NewTrafficClient(cfg.TrafficAPIURL, cfg.MapAPIKey)
	routeCalc := service.NewRouteCalculator(cfg.RoutingAPIURL, hub)
	geocoder := service.NewReverseGeocoder(cfg.GeocoderURL, cfg.GeocoderFallbackURL)
	controller := overlay.NewController(hub, routeCalc, geocoder)
	ranker := service.NewHotspotRanker(trafficClient, cfg.HotspotPollInterval)
	monitor := service.NewTrafficMonitor(trafficClient, repo, controller, cfg.FlowPollInterval)

	// Background polling loops
	pollCtx, pollCancel := context.WithCancel(context.Background())
	go monitor.Run(pollCtx)
	go ranker.Run(pollCtx)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "FlowX API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := httpdelivery.NewHandler(monitor, trafficClient, ranker, controller, repo)
	httpdelivery.SetupRoutes(app, handler, hub)

	// Graceful shutdown
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Printf("Server starting on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	pollCancel()
	controller.Shutdown()
	hub.Destroy()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

type Config struct {
	DatabaseURL         string
	TrafficAPIURL       string
	RoutingAPIURL       string
	GeocoderURL         string
	GeocoderFallbackURL string
	MapAPIKey           string
	Port                string
	Env                 string
	FlowPollInterval    time.Duration
	HotspotPollInterval time.Duration
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		TrafficAPIURL:       getEnv("TRAFFIC_API_URL", ""),
		RoutingAPIURL:       getEnv("ROUTING_API_URL", "http://localhost:8000"),
		GeocoderURL:         getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderFallbackURL: getEnv("GEOCODER_FALLBACK_URL", ""),
		MapAPIKey:           getEnv("MAP_API_KEY", ""),
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("GO_ENV", "development"),
		FlowPollInterval:    time.Duration(getEnvInt("FLOW_POLL_SECONDS", 60)) * time.Second,
		HotspotPollInterval: time.Duration(getEnvInt("HOTSPOT_POLL_SECONDS", 300)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// errorHandler maps the domain error taxonomy to HTTP statuses.
// Background read paths never reach here; these are the action paths
// whose failures the UI surfaces as transient notifications.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var networkErr *domain.NetworkError
	var upstreamErr *domain.UpstreamDataError

	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	case errors.As(err, &validationErr):
		code = fiber.StatusBadRequest
		message = validationErr.Error()
	case errors.As(err, &notFoundErr):
		code = fiber.StatusNotFound
		message = notFoundErr.Error()
	case errors.As(err, &networkErr):
		code = fiber.StatusBadGateway
		message = "Upstream service unavailable"
	case errors.As(err, &upstreamErr):
		code = fiber.StatusBadGateway
		message = "Upstream service returned malformed data"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
