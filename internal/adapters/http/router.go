package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/fieldroute/internal/pkg/metrics"
)

// RouterConfig tunes the middleware stack.
type RouterConfig struct {
	HandlerTimeout time.Duration // per-request deadline for /v1 handlers
	RateLimit      int           // requests per minute per IP, 0 disables
}

func (rc RouterConfig) withDefaults() RouterConfig {
	if rc.HandlerTimeout <= 0 {
		rc.HandlerTimeout = 15 * time.Second
	}
	return rc
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, rc RouterConfig) {
	rc = rc.withDefaults()

	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if rc.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        rc.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Weak ETags for conditional GETs.
	app.Use(etag.New(etag.Config{Weak: true}))
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout: fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, rc.HandlerTimeout)
	}

	v1 := app.Group("/v1")

	// Route planning
	v1.Post("/routes/optimize", withTimeout(OptimizeRouteHandler(deps)))
	v1.Post("/routes/simple", withTimeout(SimpleRouteHandler(deps)))
	v1.Post("/directions", withTimeout(DirectionsHandler(deps)))
	v1.Post("/reps/:id/route", withTimeout(RepRouteHandler(deps)))
	v1.Get("/clients", withTimeout(ListClientsHandler(deps)))

	// Geo utilities
	v1.Get("/geo/distance", withTimeout(DistanceHandler(deps)))
	v1.Post("/geo/region", withTimeout(RegionHandler(deps)))
	v1.Post("/geo/matrix", withTimeout(MatrixHandler(deps)))
	v1.Post("/polyline/encode", withTimeout(EncodePolylineHandler(deps)))
	v1.Get("/polyline/decode", withTimeout(DecodePolylineHandler(deps)))

	// GraphQL
	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
