// Package events emits catalog mutation events to a message broker.
// Publishing is best-effort: the API never fails a request because a
// broker was unreachable, and there are no retries.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Entity/action names carried by published events.
const (
	EntityUser  = "user"
	EntityBook  = "book"
	EntityToken = "token"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionRevoked = "revoked"
)

// Event describes a single mutation applied through the API.
type Event struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	ID     int       `json:"id"`
	At     time.Time `json:"at"`
}

// Backend defines the broker-agnostic operations used by the publisher.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher serializes events and hands them to a backend. A nil
// *Publisher is valid and drops everything, so callers never have to
// branch on whether eventing is configured.
type Publisher struct {
	backend Backend
	channel string
}

// NewPublisher constructs a Publisher for the provided backend and channel.
func NewPublisher(backend Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

// Publish sends one event to the configured channel.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil || p.backend == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	attrs := map[string]string{
		"entity": ev.Entity,
		"action": ev.Action,
	}
	_, err = p.backend.Publish(ctx, p.channel, data, attrs)
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
