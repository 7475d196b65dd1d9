package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := openJetStream(conn)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribePlanRequests delivers each plan request to handler once it is acked.
// Undecodable messages are terminated rather than redelivered.
func (s *Subscriber) SubscribePlanRequests(ctx context.Context, handler func(ctx context.Context, req *domain.PlanRequest) error) error {
	sub, err := s.js.Subscribe(SubjectPlanRequested, func(msg *nats.Msg) {
		var req domain.PlanRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Warn("discarding malformed plan request", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &req); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("plan-worker"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeRoutePlanned delivers planned-route events from every rep.
func (s *Subscriber) SubscribeRoutePlanned(ctx context.Context, handler func(ctx context.Context, event *domain.RoutePlanned) error) error {
	sub, err := s.js.Subscribe(SubjectRoutePlannedPrefix+">", func(msg *nats.Msg) {
		var event domain.RoutePlanned
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("route-planned-audit"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
