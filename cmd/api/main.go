package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/samirrijal/fieldroute/internal/adapters/googlemaps"
	"github.com/samirrijal/fieldroute/internal/adapters/http"
	natsadapter "github.com/samirrijal/fieldroute/internal/adapters/nats"
	"github.com/samirrijal/fieldroute/internal/adapters/postgres"
	"github.com/samirrijal/fieldroute/internal/adapters/valkey"
	"github.com/samirrijal/fieldroute/internal/core/ports"
	"github.com/samirrijal/fieldroute/internal/core/usecases"
	"github.com/samirrijal/fieldroute/internal/pkg/config"
	"github.com/samirrijal/fieldroute/internal/pkg/logging"
	"github.com/samirrijal/fieldroute/internal/pkg/metrics"
	"github.com/samirrijal/fieldroute/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("fieldroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Directions provider
	var provider ports.DirectionsProvider
	if cfg.Directions.Enabled() {
		provider = googlemaps.New(googlemaps.Config{
			APIKey:  cfg.Directions.APIKey,
			BaseURL: cfg.Directions.BaseURL,
			Timeout: cfg.Directions.Timeout(),
		})
	} else {
		slog.Warn("no directions provider configured, routes use straight-line estimates")
	}

	// Use cases
	directions := usecases.NewDirectionsService(provider, cfg.Directions.FallbackSpeedKmh).WithPublisher(publisher)
	optimizer := usecases.NewRouteOptimizer(directions, googlemaps.DirectionsURL)
	clients := usecases.NewClientService(postgres.NewClientRepo(db), cache)
	planning := usecases.NewPlanningService(clients, optimizer, publisher)

	deps := &http.Dependencies{
		Directions: directions,
		Optimizer:  optimizer,
		Clients:    clients,
		Planning:   planning,
		NATS:       natsConn,
		DB:         db,
		Cache:      vc,
		Version:    version,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    2 * 1024 * 1024, // polyline encoding accepts up to 10k points
		AppName:      "FieldRoute API",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps, http.RouterConfig{
		HandlerTimeout: time.Duration(cfg.Server.HandlerTimeout) * time.Second,
		RateLimit:      cfg.Server.RateLimit,
	})

	go reportPoolStats(ctx, db)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "directions", directions.ProviderName())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
