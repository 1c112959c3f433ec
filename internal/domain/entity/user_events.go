package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the stable name of an event type. It is persisted and used as
// the key of every kind-based registry, so values must never change.
type EventKind string

const (
	KindUserCreated         EventKind = "UserCreated"
	KindUserUpdated         EventKind = "UserUpdated"
	KindUserPasswordChanged EventKind = "UserPasswordChanged"
	KindUserRoleChanged     EventKind = "UserRoleChanged"
	KindUserActivated       EventKind = "UserActivated"
	KindUserDeactivated     EventKind = "UserDeactivated"
)

// UserEventKinds lists every user event kind.
func UserEventKinds() []EventKind {
	return []EventKind{
		KindUserCreated,
		KindUserUpdated,
		KindUserPasswordChanged,
		KindUserRoleChanged,
		KindUserActivated,
		KindUserDeactivated,
	}
}

func (k EventKind) String() string { return string(k) }

// EventHeader is embedded by every user event.
type EventHeader struct {
	UserID        uuid.UUID
	StreamVersion int
	Timestamp     time.Time
}

func (h EventHeader) AggregateID() uuid.UUID { return h.UserID }
func (h EventHeader) Version() int           { return h.StreamVersion }
func (h EventHeader) OccurredAt() time.Time  { return h.Timestamp }

// UserEventVisitor has one method per user event kind. Adding a kind adds a
// method here, which breaks every dispatcher until it handles the new kind.
type UserEventVisitor interface {
	VisitUserCreated(e UserCreated) error
	VisitUserUpdated(e UserUpdated) error
	VisitUserPasswordChanged(e UserPasswordChanged) error
	VisitUserRoleChanged(e UserRoleChanged) error
	VisitUserActivated(e UserActivated) error
	VisitUserDeactivated(e UserDeactivated) error
}

// UserEvent is the closed set of events of the user aggregate.
type UserEvent interface {
	Event
	Accept(v UserEventVisitor) error
	userEvent()
}

type UserCreated struct {
	EventHeader
	Name         string
	Email        Email
	Username     string
	PasswordHash PasswordHash
	Role         Role
}

func (e UserCreated) CreatedAt() time.Time { return e.Timestamp }

type UserUpdated struct {
	EventHeader
	Name     string
	Email    Email
	Username string
}

func (e UserUpdated) UpdatedAt() time.Time { return e.Timestamp }

type UserPasswordChanged struct {
	EventHeader
	NewHash PasswordHash
}

func (e UserPasswordChanged) ChangedAt() time.Time { return e.Timestamp }

type UserRoleChanged struct {
	EventHeader
	NewRole Role
}

func (e UserRoleChanged) ChangedAt() time.Time { return e.Timestamp }

type UserActivated struct {
	EventHeader
}

type UserDeactivated struct {
	EventHeader
}

func (UserCreated) Kind() EventKind         { return KindUserCreated }
func (UserUpdated) Kind() EventKind         { return KindUserUpdated }
func (UserPasswordChanged) Kind() EventKind { return KindUserPasswordChanged }
func (UserRoleChanged) Kind() EventKind     { return KindUserRoleChanged }
func (UserActivated) Kind() EventKind       { return KindUserActivated }
func (UserDeactivated) Kind() EventKind     { return KindUserDeactivated }

func (e UserCreated) Accept(v UserEventVisitor) error         { return v.VisitUserCreated(e) }
func (e UserUpdated) Accept(v UserEventVisitor) error         { return v.VisitUserUpdated(e) }
func (e UserPasswordChanged) Accept(v UserEventVisitor) error { return v.VisitUserPasswordChanged(e) }
func (e UserRoleChanged) Accept(v UserEventVisitor) error     { return v.VisitUserRoleChanged(e) }
func (e UserActivated) Accept(v UserEventVisitor) error       { return v.VisitUserActivated(e) }
func (e UserDeactivated) Accept(v UserEventVisitor) error     { return v.VisitUserDeactivated(e) }

func (UserCreated) userEvent()         {}
func (UserUpdated) userEvent()         {}
func (UserPasswordChanged) userEvent() {}
func (UserRoleChanged) userEvent()     {}
func (UserActivated) userEvent()       {}
func (UserDeactivated) userEvent()     {}
