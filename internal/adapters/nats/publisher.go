package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

// Subjects used by route planning.
const (
	SubjectRoutePlannedPrefix = "fieldroute.route.planned."
	SubjectRouteDegraded      = "fieldroute.route.degraded"
	SubjectRouteAll           = "fieldroute.route.>"
	SubjectPlanRequested      = "fieldroute.plan.requested"
)

// Streams returns the JetStream streams route planning relies on.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "FIELDROUTE_ROUTES",
			Subjects:  []string{SubjectRouteAll},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "FIELDROUTE_PLANS",
			Subjects:  []string{SubjectPlanRequested},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := openJetStream(conn)
	if err != nil {
		return nil, err
	}

	for _, cfg := range Streams() {
		cfg := cfg
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PlannedSubject returns the subject a rep's planned routes are published on.
func PlannedSubject(repID string) string {
	return SubjectRoutePlannedPrefix + repID
}

func (p *Publisher) PublishRoutePlanned(ctx context.Context, event *domain.RoutePlanned) error {
	return p.publishJSON(ctx, PlannedSubject(event.RepID), event)
}

func (p *Publisher) PublishDegraded(ctx context.Context, notice *domain.DegradedNotice) error {
	return p.publishJSON(ctx, SubjectRouteDegraded, notice)
}

func (p *Publisher) PublishPlanRequest(ctx context.Context, req *domain.PlanRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	// Msg id lets JetStream drop duplicate submissions of the same request.
	_, err = p.js.Publish(SubjectPlanRequested, data, nats.Context(ctx), nats.MsgId(req.RequestID))
	return err
}

func (p *Publisher) publishJSON(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Connected reports whether the connection is up, for readiness checks.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// jetStreamConn is the part of *nats.Conn needed to open a JetStream context.
type jetStreamConn interface {
	JetStream(opts ...nats.JSOpt) (nats.JetStreamContext, error)
	Close()
}

// openJetStream returns the connection's JetStream context and closes the
// connection when it cannot be opened.
func openJetStream(conn jetStreamConn) (nats.JetStreamContext, error) {
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return js, nil
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("fieldroute"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
