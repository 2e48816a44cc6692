package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Routing keys.
const (
	WithdrawalCompleted = "withdrawal.completed"
)

// Withdrawal is the payload published once a withdrawal has been relayed
// and the balance debited.
type Withdrawal struct {
	AccountID   string    `json:"account_id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	Debited     int64     `json:"debited"`
	Balance     int64     `json:"balance"`
	Payout      string    `json:"payout"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) error { return nil }

// Published is an event captured by Recorder.
type Published struct {
	RoutingKey string
	Body       json.RawMessage
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, routingKey string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{RoutingKey: routingKey, Body: raw})
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}
