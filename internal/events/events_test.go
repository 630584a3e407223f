package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestEventJSON(t *testing.T) {
	e := New(TypeTransactionsImported, "alice", []string{"a", "b"}, 2)

	data, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != TypeTransactionsImported || got.Owner != "alice" || got.Count != 2 || len(got.IDs) != 2 {
		t.Errorf("unexpected event %+v", got)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Errorf("timestamp changed: %s vs %s", got.Timestamp, e.Timestamp)
	}
}

func TestEmitSwallowsErrors(t *testing.T) {
	p := &recordingPublisher{err: errors.New("broker down")}

	Emit(context.Background(), p, New(TypeTransactionRecorded, "alice", []string{"a"}, 1))

	if len(p.events) != 1 {
		t.Errorf("expected publish attempt, got %d", len(p.events))
	}
}

func TestEmitNilPublisher(t *testing.T) {
	Emit(context.Background(), nil, New(TypeTransactionRecorded, "alice", nil, 0))
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewAMQPPublisherInvalidURL(t *testing.T) {
	if _, err := NewAMQPPublisher("not-a-url", "misa", "misa.ledger"); err == nil {
		t.Error("expected dial error for malformed URL")
	}
}
