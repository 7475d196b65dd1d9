package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/fieldroute/internal/adapters/googlemaps"
	natsadapter "github.com/samirrijal/fieldroute/internal/adapters/nats"
	"github.com/samirrijal/fieldroute/internal/adapters/postgres"
	"github.com/samirrijal/fieldroute/internal/adapters/valkey"
	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/ports"
	"github.com/samirrijal/fieldroute/internal/core/usecases"
	"github.com/samirrijal/fieldroute/internal/pkg/config"
	"github.com/samirrijal/fieldroute/internal/pkg/logging"
	"github.com/samirrijal/fieldroute/internal/pkg/telemetry"
	"github.com/samirrijal/fieldroute/internal/workflows"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("fieldroute-planner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	// The planner cannot do anything useful without the event bus.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	var provider ports.DirectionsProvider
	if cfg.Directions.Enabled() {
		provider = googlemaps.New(googlemaps.Config{
			APIKey:  cfg.Directions.APIKey,
			BaseURL: cfg.Directions.BaseURL,
			Timeout: cfg.Directions.Timeout(),
		})
	}

	directions := usecases.NewDirectionsService(provider, cfg.Directions.FallbackSpeedKmh).WithPublisher(pub)
	optimizer := usecases.NewRouteOptimizer(directions, googlemaps.DirectionsURL)
	clients := usecases.NewClientService(postgres.NewClientRepo(db), cache)
	planning := usecases.NewPlanningService(clients, optimizer, pub)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RoutePlanWorkflow)
	w.RegisterActivity(&workflows.RoutePlanActivities{Planning: planning})

	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	dispatcher := workflows.NewPlanDispatcher(c, cfg.Temporal.TaskQueue)
	if err := sub.SubscribePlanRequests(ctx, dispatcher.Dispatch); err != nil {
		log.Fatalf("subscribe plan requests: %v", err)
	}

	if err := sub.SubscribeRoutePlanned(ctx, func(ctx context.Context, event *domain.RoutePlanned) error {
		slog.InfoContext(ctx, "route planned",
			"rep_id", event.RepID,
			"request_id", event.RequestID,
			"success", event.Outcome.Success,
			"code", event.Outcome.Code,
		)
		return nil
	}); err != nil {
		slog.Warn("subscribe route planned", "error", err)
	}

	slog.Info("planner worker started", "task_queue", cfg.Temporal.TaskQueue, "directions", directions.ProviderName())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
}
