// Package integration turns domain events into public integration envelopes.
package integration

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/application/requestctx"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// Converter builds the public payload of one event kind.
type Converter func(e entity.UserEvent) (any, error)

// Registry maps event kinds to converters. Kinds without a converter are not
// published.
type Registry map[entity.EventKind]Converter

// Mapper produces envelopes for the events a command raised.
type Mapper struct {
	producer string
	registry Registry
}

// NewMapper panics on a nil registry: an unconfigured mapper would silently
// publish nothing.
func NewMapper(producer string, registry Registry) *Mapper {
	if registry == nil {
		panic("integration: nil registry")
	}
	return &Mapper{producer: producer, registry: registry}
}

// Map converts events in order. handlerName identifies the command that
// raised them and becomes part of the envelope source.
func (m *Mapper) Map(md requestctx.Metadata, handlerName string, events []entity.UserEvent) ([]repository.Envelope, error) {
	out := make([]repository.Envelope, 0, len(events))
	for _, e := range events {
		conv, ok := m.registry[e.Kind()]
		if !ok {
			continue
		}
		payload, err := conv(e)
		if err != nil {
			return nil, errs.Internal("Outbox.MappingFailed", fmt.Errorf("convert %s: %w", e.Kind(), err))
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errs.Internal("Outbox.MappingFailed", fmt.Errorf("marshal %s: %w", e.Kind(), err))
		}
		out = append(out, repository.Envelope{
			ID:              uuid.New(),
			Payload:         raw,
			AggregateID:     e.AggregateID(),
			EventType:       e.Kind().String(),
			CorrelationID:   md.CorrelationID,
			ActorID:         md.ActorID,
			IsAuthenticated: md.IsAuthenticated,
			Source:          Source(m.producer, handlerName, e.Kind()),
			OccurredAt:      e.OccurredAt(),
		})
	}
	return out, nil
}

// Source composes the envelope source as producer.handler.kind.
func Source(producer, handlerName string, kind entity.EventKind) string {
	return producer + "." + handlerName + "." + kind.String()
}
