package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/fieldroute/internal/adapters/postgres"
	"github.com/samirrijal/fieldroute/internal/adapters/valkey"
	"github.com/samirrijal/fieldroute/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Directions *usecases.DirectionsService
	Optimizer  *usecases.RouteOptimizer
	Clients    *usecases.ClientService
	Planning   *usecases.PlanningService
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
	Version    string
}
