// Package messaging delivers outbox messages to brokers.
package messaging

import (
	"context"
	"strconv"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// Transport sends one message synchronously. A nil error means the broker
// accepted it.
type Transport interface {
	Send(ctx context.Context, msg repository.OutboxMessage) error
	Close() error
}

// Header names shared by every transport.
const (
	HeaderEventType       = "event_type"
	HeaderAggregateID     = "aggregate_id"
	HeaderCorrelationID   = "correlation_id"
	HeaderActorID         = "actor_id"
	HeaderIsAuthenticated = "is_authenticated"
	HeaderSource          = "source"
)

func headersOf(msg repository.OutboxMessage) map[string]string {
	h := map[string]string{
		HeaderEventType:       msg.EventType,
		HeaderAggregateID:     msg.AggregateID.String(),
		HeaderCorrelationID:   msg.CorrelationID,
		HeaderIsAuthenticated: strconv.FormatBool(msg.IsAuthenticated),
		HeaderSource:          msg.Source,
	}
	if msg.ActorID != "" {
		h[HeaderActorID] = msg.ActorID
	}
	return h
}
