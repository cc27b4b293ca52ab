package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"inventory-reservation-api/internal/cache"
	"inventory-reservation-api/internal/config"
	"inventory-reservation-api/internal/handlers"
	"inventory-reservation-api/internal/middleware"
	"inventory-reservation-api/internal/reservation"
	"inventory-reservation-api/internal/session"
	"inventory-reservation-api/internal/store"
	"inventory-reservation-api/internal/telemetry"

	"github.com/gorilla/mux"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Inventory Reservation API", "version", "1.0.0")

	// Initialize OpenTelemetry telemetry system
	ctx := context.Background()
	otelTelemetry := &telemetry.Telemetry{}
	otelTelemetry.InitMetrics("inventory-reservation-api", &ctx)
	slog.Info("OpenTelemetry telemetry initialized")

	// Initialize reservation API telemetry
	apiTelemetry := telemetry.NewReservationApiTelemetry()
	if err := apiTelemetry.InitializeTelemetry(ctx); err != nil {
		slog.Error("Failed to initialize API telemetry", "error", err)
		return
	}
	slog.Info("Reservation API telemetry initialized successfully")

	// Connect to Postgres and migrate the reservation schema
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to open reservation store", "error", err)
		return
	}

	ledger := store.NewPostgresLedger(db)
	reader := store.NewReader(db)

	// Idempotency replay cache in front of the durable idempotency table
	idempotencyCache := cache.NewTTLCache(
		config.Duration(cfg.IdempotencyCacheTTL, 2*time.Minute),
		config.Duration(cfg.IdempotencyCacheCleanupInterval, 30*time.Second),
	)

	ttlTable := reservation.NewTTLTable(
		config.Duration(cfg.WhatsAppTTL, reservation.DefaultWhatsAppTTL),
		config.Duration(cfg.WebsiteTTL, reservation.DefaultWebsiteTTL),
		config.Duration(cfg.AdminTTL, reservation.DefaultAdminTTL),
		config.Duration(cfg.APITTL, reservation.DefaultAPITTL),
	)

	engine := reservation.NewEngine(ledger, ttlTable, idempotencyCache, apiTelemetry)
	slog.Info("Reservation engine initialized successfully")

	// Background sweeper reclaims holds whose TTL elapsed
	sweeper := reservation.NewSweeper(engine, config.Duration(cfg.SweepInterval, reservation.DefaultSweepInterval))
	sweeper.Start(ctx)

	// Checkout-session store: Redis for multi-worker deployments, in-memory
	// otherwise
	sessionTTL := config.Duration(cfg.SessionTTL, 30*time.Minute)
	var sessions session.Store
	var memorySessions *session.MemoryStore
	var redisSessions *session.RedisStore
	if cfg.SessionStoreBackend == "redis" {
		redisDB, _ := strconv.Atoi(cfg.RedisDB)
		redisSessions, err = session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, redisDB, sessionTTL)
		if err != nil {
			slog.Error("Failed to initialize Redis session store", "error", err)
			return
		}
		sessions = redisSessions
	} else {
		memorySessions = session.NewMemoryStore(sessionTTL, time.Minute)
		sessions = memorySessions
	}

	r := mux.NewRouter()

	// Initialize handlers
	reservationHandler := handlers.NewReservationHandler(engine, reader, sessions)
	availabilityHandler := handlers.NewAvailabilityHandler(reader)
	adminHandler := handlers.NewAdminHandler(engine, reader)
	healthHandler := handlers.NewHealthHandler()
	slog.Debug("HTTP handlers initialized")

	// Create telemetry middleware
	telemetryMiddleware := telemetry.NewTelemetryMiddleware(apiTelemetry)

	// Apply telemetry middleware to all routes first
	r.Use(telemetryMiddleware.Middleware)

	// Setup rate limiting middleware
	rateLimitConfig := middleware.ParseRateLimitConfig(cfg)
	var rateLimiter *middleware.RateLimiter
	if rateLimitConfig.Enabled {
		rateLimiter = middleware.NewRateLimiter(rateLimitConfig)
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
		slog.Info("Rate limiting middleware enabled")
	} else {
		slog.Info("Rate limiting middleware disabled")
	}

	// Initialize rate limiting status handler
	rateLimitStatusHandler := handlers.NewRateLimitStatusHandler(rateLimiter)

	// Apply auth middleware to v1 API routes
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.AuthMiddleware)

	// Reservation lifecycle routes (v1) - specific routes first
	v1.HandleFunc("/reservations/validate", reservationHandler.ValidateStock).Methods("POST")
	v1.HandleFunc("/reservations/confirm", reservationHandler.Confirm).Methods("POST")
	v1.HandleFunc("/reservations/release", reservationHandler.Release).Methods("POST")
	v1.HandleFunc("/reservations/{reservationId}", reservationHandler.GetReservation).Methods("GET")
	v1.HandleFunc("/reservations", reservationHandler.Reserve).Methods("POST")
	v1.HandleFunc("/availability/{productId}", availabilityHandler.GetAvailability).Methods("GET")

	// Admin API routes (v1) - require admin authentication
	adminV1 := r.PathPrefix("/v1/admin").Subrouter()
	adminV1.Use(middleware.AdminAuthMiddleware)
	adminV1.HandleFunc("/audit", adminHandler.ListAudit).Methods("GET")
	adminV1.HandleFunc("/sweep", adminHandler.Sweep).Methods("POST")

	// Rate limiting status endpoints (admin only)
	adminV1.HandleFunc("/rate-limit/status", rateLimitStatusHandler.GetRateLimitStatus).Methods("GET")
	adminV1.HandleFunc("/rate-limit/reset", rateLimitStatusHandler.ResetRateLimits).Methods("POST")

	// Health check endpoint (no auth required)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	slog.Info("Starting HTTP server",
		"port", cfg.Port,
		"environment", cfg.Environment)

	slog.Debug("Available endpoints",
		"v1_endpoints", []string{
			"POST /v1/reservations (create holds)",
			"POST /v1/reservations/validate (advisory check)",
			"POST /v1/reservations/confirm (deduct stock)",
			"POST /v1/reservations/release (return holds)",
			"GET /v1/reservations/{reservationId}",
			"GET /v1/availability/{productId}?userId=...",
		},
		"admin_endpoints", []string{
			"GET /v1/admin/audit",
			"POST /v1/admin/sweep",
			"GET /v1/admin/rate-limit/status",
			"POST /v1/admin/rate-limit/reset",
		},
		"system_endpoints", []string{
			"GET /health",
		})

	// Create HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server ready to accept connections", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop background workers before cutting their dependencies
	sweeper.Stop()
	idempotencyCache.Stop()
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	if memorySessions != nil {
		memorySessions.Stop()
	}
	if redisSessions != nil {
		if err := redisSessions.Close(); err != nil {
			slog.Error("Error closing Redis session store", "error", err)
		}
	}

	// Shutdown telemetry
	otelTelemetry.Close()
	slog.Info("Telemetry shutdown completed")

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
