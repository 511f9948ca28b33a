// Package events hands authentication events to downstream consumers
// without making the request path wait on the broker.
package events

import (
	"context"
	"encoding/json"
	"time"
)

type Type string

const (
	Registered    Type = "registered"
	Authenticated Type = "authenticated"
)

type AuthEvent struct {
	UserID     string    `json:"user_id"`
	Type       Type      `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(userID string, typ Type, at time.Time) AuthEvent {
	return AuthEvent{UserID: userID, Type: typ, OccurredAt: at.UTC()}
}

func (e AuthEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher accepts an event and returns without waiting for delivery.
// Failures stay inside the publisher.
type Publisher interface {
	Publish(ctx context.Context, e AuthEvent)
}

// Sink performs the actual delivery of a single event.
type Sink interface {
	Send(ctx context.Context, e AuthEvent) error
	Close() error
}

// Discard drops every event. Useful where no downstream consumer exists.
type Discard struct{}

func (Discard) Publish(context.Context, AuthEvent) {}
