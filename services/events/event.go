package events

import (
	"context"
	"sync"
	"time"

	pickupModel "ecochain/models/pickup"
)

// Lifecycle event types. They are also the routing keys on the topic exchange.
const (
	TypeScheduled = "pickup.scheduled"
	TypeAssigned  = "pickup.assigned"
	TypeCompleted = "pickup.completed"
	TypeWithdrawn = "pickup.withdrawn"
	TypeRated     = "pickup.rated"
)

// Event is the message body published after a successful transition.
type Event struct {
	Type        string             `json:"type"`
	PickupID    string             `json:"pickup_id"`
	Status      pickupModel.Status `json:"status"`
	GeneratorID string             `json:"generator_id"`
	PickerID    string             `json:"picker_id,omitempty"`
	ActorID     string             `json:"actor_id"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// Publisher fans lifecycle events out. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards every event. Used when AMQP_URL is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
