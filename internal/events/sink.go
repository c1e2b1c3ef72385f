package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/yashdave727/csc301-a2/internal/orders"
)

// OrderSink publishes accepted orders to the order.placed topic. It
// satisfies orders.EventSink.
type OrderSink struct {
	Producer    *Producer
	ServiceName string
}

func (s *OrderSink) OrderPlaced(ctx context.Context, ev orders.PlacedEvent) {
	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    EventOrderPlaced,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     s.ServiceName,
		Payload:      MustMarshal(ev),
	}
	s.Producer.Publish(PartitionKey(ev.OrderID), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(EventOrderPlaced)},
		kafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
