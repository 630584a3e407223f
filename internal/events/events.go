// Package events announces committed ledger writes to other systems.
package events

import (
	"context"
	"encoding/json"
	"time"

	"misa/internal/logger"
)

// Event types.
const (
	TypeTransactionRecorded  = "transaction.recorded"
	TypeTransactionsReplaced = "transactions.replaced"
	TypeTransactionsImported = "transactions.imported"
)

// Event describes one committed write to a user's ledger.
type Event struct {
	Type      string    `json:"type"`
	Owner     string    `json:"owner"`
	IDs       []string  `json:"ids,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an event stamped with the current time.
func New(eventType, owner string, ids []string, count int) Event {
	return Event{Type: eventType, Owner: owner, IDs: ids, Count: count, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit publishes event and logs a failure instead of returning it. The
// write the event describes has already been committed.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.Get().Warnw("failed to publish event", "type", event.Type, "owner", event.Owner, "error", err)
	}
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
