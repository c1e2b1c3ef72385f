package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventOrderPlaced = "OrderPlaced"

	TopicOrderPlaced = "order.placed"
)

// Envelope is the wire format for every event. Payload holds the
// event-specific body.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

// PartitionKey keeps all events of one order on one partition so their
// order is preserved.
func PartitionKey(orderID int64) []byte {
	return []byte(fmt.Sprintf("%d", orderID))
}

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// UnwrapPayload decodes an envelope payload into its concrete type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
