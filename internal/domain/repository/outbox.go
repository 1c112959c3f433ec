package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is an integration event as published to downstream consumers.
type Envelope struct {
	ID              uuid.UUID       `json:"id"`
	Payload         json.RawMessage `json:"payload"`
	AggregateID     uuid.UUID       `json:"aggregateId"`
	EventType       string          `json:"eventType"`
	CorrelationID   string          `json:"correlationId"`
	ActorID         string          `json:"actorId,omitempty"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	Source          string          `json:"source"`
	OccurredAt      time.Time       `json:"occurredAt"`
}

// OutboxPublisher records envelopes for later delivery. Implementations bound
// to a transaction persist them atomically with the aggregate.
type OutboxPublisher interface {
	Publish(ctx context.Context, envelopes ...Envelope) error
}

// OutboxMessage is a persisted envelope awaiting delivery.
type OutboxMessage struct {
	Envelope
	CreatedAt    time.Time
	Attempts     int
	LastError    string
	DispatchedAt *time.Time
}

// DeliverFunc publishes a claimed batch. The result holds one entry per
// message it attempted: nil when delivered, the failure otherwise.
type DeliverFunc func(ctx context.Context, batch []OutboxMessage) map[uuid.UUID]error

// OutboxRelay claims pending messages and records delivery outcomes.
type OutboxRelay interface {
	Relay(ctx context.Context, limit, maxAttempts int, deliver DeliverFunc) (int, error)
}
