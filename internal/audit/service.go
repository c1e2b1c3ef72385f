// Package audit consumes order.placed events and records an audit line
// per accepted order. Redelivered events are dropped via a Redis dedup
// key on the event id.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/events"
	"github.com/yashdave727/csc301-a2/internal/orders"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "audit").Logger()

const dedupTTL = 48 * time.Hour

type Service struct {
	Cache       *cache.Cache
	ServiceName string
}

// HandleOrderPlaced is installed as the consumer handler.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventOrderPlaced {
		return nil // ignore
	}

	first, err := s.Cache.SetNX(ctx, cache.DedupKey(s.ServiceName, env.EventID), []byte("1"), dedupTTL)
	if err != nil {
		// Dedup is best-effort; an audit line twice beats one dropped.
		logger.Warn().Err(err).Str("event_id", env.EventID).Msg("dedup check failed")
	} else if !first {
		return nil
	}

	ev, err := events.UnwrapPayload[orders.PlacedEvent](env.Payload)
	if err != nil {
		return err
	}

	logger.Info().
		Int64("order_id", ev.OrderID).
		Int64("user_id", ev.UserID).
		Int64("product_id", ev.ProductID).
		Int("quantity", ev.Quantity).
		Time("occurred_at", env.OccurredAt).
		Str("producer", env.Producer).
		Msg("order placed")
	return nil
}
