// Package events consumes product update events published by other replicas.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/seif-emam/deveolp-network/pkg/config"
	"github.com/seif-emam/deveolp-network/pkg/messaging/events"
	"golang.org/x/sync/errgroup"
)

// inactiveThreshold removes durables of replicas that went away.
const inactiveThreshold = time.Hour

// Refresher reloads the local catalog snapshot.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ackableMsg is the part of jetstream.Msg the handler needs.
type ackableMsg interface {
	Data() []byte
	Ack() error
	Nak() error
}

// Subscriber reloads the catalog when another instance updates a product.
type Subscriber struct {
	refresher Refresher
	origin    string
	cfg       config.SubscriberConfig
	logger    *slog.Logger
}

// NewSubscriber creates a Subscriber. Events stamped with origin are ignored.
func NewSubscriber(refresher Refresher, origin string, cfg config.SubscriberConfig, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		refresher: refresher,
		origin:    origin,
		cfg:       cfg,
		logger:    logger.With("component", "events-subscriber"),
	}
}

// Start creates the durable consumer and runs cfg.Workers fetch loops until ctx ends.
func (s *Subscriber) Start(ctx context.Context, js jetstream.JetStream) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject:     s.cfg.Subject,
		Durable:           s.cfg.Consumer,
		AckPolicy:         jetstream.AckExplicitPolicy,
		InactiveThreshold: inactiveThreshold,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, s.cfg.Stream, cfg)
	if err != nil {
		return err
	}
	g, gCtx := errgroup.WithContext(ctx)
	for range s.cfg.Workers {
		g.Go(func() error {
			return s.runWorker(gCtx, consumer)
		})
	}
	return g.Wait()
}

// runWorker fetches messages from the consumer and processes them.
func (s *Subscriber) runWorker(ctx context.Context, consumer jetstream.Consumer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(s.cfg.Batch, jetstream.FetchMaxWait(s.cfg.Timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				s.logger.ErrorContext(ctx, "failed to fetch messages", "error", err)
				time.Sleep(s.cfg.Interval)
				continue
			}
			for msg := range batch.Messages() {
				s.handleMessage(ctx, msg)
			}
		}
	}
}

// handleMessage reloads the catalog for a product update from another instance.
// Malformed payloads and failed reloads are negatively acknowledged.
func (s *Subscriber) handleMessage(ctx context.Context, msg ackableMsg) {
	if msg == nil {
		s.logger.ErrorContext(ctx, "received nil message")
		return
	}
	var event events.ProductUpdatedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		s.logger.ErrorContext(ctx, "failed to unmarshal message", "error", err)
		s.nak(ctx, msg)
		return
	}

	if event.Origin == s.origin {
		s.logger.DebugContext(ctx, "skipping own product updated event", "product_id", event.ProductID)
		s.ack(ctx, msg)
		return
	}

	s.logger.InfoContext(ctx, "received product updated event",
		slog.Int("product_id", event.ProductID),
		slog.String("origin", event.Origin),
		slog.String("updated_at", event.UpdatedAt.Format(time.RFC3339)))

	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to reload catalog", "error", err)
		s.nak(ctx, msg)
		return
	}
	s.ack(ctx, msg)
}

func (s *Subscriber) ack(ctx context.Context, msg ackableMsg) {
	if err := msg.Ack(); err != nil {
		s.logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}

func (s *Subscriber) nak(ctx context.Context, msg ackableMsg) {
	if err := msg.Nak(); err != nil {
		s.logger.ErrorContext(ctx, "failed to nack message", "error", err)
	}
}
