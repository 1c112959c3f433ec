package entity

import (
	"time"

	"github.com/google/uuid"
)

// Event is the minimal contract every domain event satisfies.
type Event interface {
	Kind() EventKind
	AggregateID() uuid.UUID
	// Version is the stream version the event produces (1 for the first event).
	Version() int
	OccurredAt() time.Time
}

// AggregateRoot carries identity, lifecycle timestamps, the activity flag and
// the events raised since the last commit. Its fields are only written by the
// apply path of the concrete aggregate.
type AggregateRoot[E Event] struct {
	id          uuid.UUID
	createdAt   time.Time
	updatedAt   *time.Time
	isActive    bool
	version     int
	uncommitted []E
}

func (a *AggregateRoot[E]) ID() uuid.UUID        { return a.id }
func (a *AggregateRoot[E]) CreatedAt() time.Time { return a.createdAt }
func (a *AggregateRoot[E]) IsActive() bool       { return a.isActive }

// UpdatedAt is nil until the aggregate changes after creation.
func (a *AggregateRoot[E]) UpdatedAt() *time.Time {
	if a.updatedAt == nil {
		return nil
	}
	t := *a.updatedAt
	return &t
}

// Version counts every applied event, committed or not.
func (a *AggregateRoot[E]) Version() int { return a.version }

// PersistedVersion is the version the store holds, i.e. the expected version
// for the next optimistic write.
func (a *AggregateRoot[E]) PersistedVersion() int { return a.version - len(a.uncommitted) }

// UncommittedEvents returns a copy of the events raised since the last commit,
// in the order they were raised.
func (a *AggregateRoot[E]) UncommittedEvents() []E {
	out := make([]E, len(a.uncommitted))
	copy(out, a.uncommitted)
	return out
}

// MarkEventsCommitted clears the pending events. Call it only after the store
// has durably accepted them.
func (a *AggregateRoot[E]) MarkEventsCommitted() { a.uncommitted = nil }

func (a *AggregateRoot[E]) track(e E) { a.uncommitted = append(a.uncommitted, e) }

func (a *AggregateRoot[E]) touch(at time.Time) {
	t := at
	a.updatedAt = &t
}

// eventTime normalizes timestamps to what the store can represent so replayed
// state matches live state.
func eventTime(at time.Time) time.Time {
	if at.IsZero() {
		at = time.Now()
	}
	return at.UTC().Truncate(time.Microsecond)
}
