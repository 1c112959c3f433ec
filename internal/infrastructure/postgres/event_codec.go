package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
)

// Stored payloads. Unlike integration payloads they carry password hashes,
// because replay has to rebuild them.

type createdRecord struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
}

type updatedRecord struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type passwordRecord struct {
	NewHash string `json:"newHash"`
}

type roleRecord struct {
	NewRole string `json:"newRole"`
}

type emptyRecord struct{}

type decodeFunc func(h entity.EventHeader, payload []byte) (entity.UserEvent, error)

// EventCodec serializes user events for the event store.
type EventCodec struct {
	decoders map[entity.EventKind]decodeFunc
}

func NewEventCodec() *EventCodec {
	return &EventCodec{decoders: map[entity.EventKind]decodeFunc{
		entity.KindUserCreated: func(h entity.EventHeader, b []byte) (entity.UserEvent, error) {
			var r createdRecord
			if err := json.Unmarshal(b, &r); err != nil {
				return nil, err
			}
			return entity.UserCreated{
				EventHeader:  h,
				Name:         r.Name,
				Email:        entity.EmailFromDB(r.Email),
				Username:     r.Username,
				PasswordHash: entity.PasswordFromHash(r.PasswordHash),
				Role:         entity.RoleFromDB(r.Role),
			}, nil
		},
		entity.KindUserUpdated: func(h entity.EventHeader, b []byte) (entity.UserEvent, error) {
			var r updatedRecord
			if err := json.Unmarshal(b, &r); err != nil {
				return nil, err
			}
			return entity.UserUpdated{EventHeader: h, Name: r.Name, Email: entity.EmailFromDB(r.Email), Username: r.Username}, nil
		},
		entity.KindUserPasswordChanged: func(h entity.EventHeader, b []byte) (entity.UserEvent, error) {
			var r passwordRecord
			if err := json.Unmarshal(b, &r); err != nil {
				return nil, err
			}
			return entity.UserPasswordChanged{EventHeader: h, NewHash: entity.PasswordFromHash(r.NewHash)}, nil
		},
		entity.KindUserRoleChanged: func(h entity.EventHeader, b []byte) (entity.UserEvent, error) {
			var r roleRecord
			if err := json.Unmarshal(b, &r); err != nil {
				return nil, err
			}
			return entity.UserRoleChanged{EventHeader: h, NewRole: entity.RoleFromDB(r.NewRole)}, nil
		},
		entity.KindUserActivated: func(h entity.EventHeader, _ []byte) (entity.UserEvent, error) {
			return entity.UserActivated{EventHeader: h}, nil
		},
		entity.KindUserDeactivated: func(h entity.EventHeader, _ []byte) (entity.UserEvent, error) {
			return entity.UserDeactivated{EventHeader: h}, nil
		},
	}}
}

// Encode returns the JSON payload of e.
func (c *EventCodec) Encode(e entity.UserEvent) ([]byte, error) {
	var enc encoder
	if err := e.Accept(&enc); err != nil {
		return nil, err
	}
	return json.Marshal(enc.record)
}

// Decode rebuilds an event from a stored row.
func (c *EventCodec) Decode(kind string, aggregateID uuid.UUID, version int, occurredAt time.Time, payload []byte) (entity.UserEvent, error) {
	dec, ok := c.decoders[entity.EventKind(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	h := entity.EventHeader{UserID: aggregateID, StreamVersion: version, Timestamp: occurredAt.UTC()}
	e, err := dec(h, payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s v%d of %s: %w", kind, version, aggregateID, err)
	}
	return e, nil
}

type encoder struct {
	record any
}

func (c *encoder) VisitUserCreated(e entity.UserCreated) error {
	c.record = createdRecord{
		Name:         e.Name,
		Email:        e.Email.Value(),
		Username:     e.Username,
		PasswordHash: e.PasswordHash.ExposeHash(),
		Role:         e.Role.Value(),
	}
	return nil
}

func (c *encoder) VisitUserUpdated(e entity.UserUpdated) error {
	c.record = updatedRecord{Name: e.Name, Email: e.Email.Value(), Username: e.Username}
	return nil
}

func (c *encoder) VisitUserPasswordChanged(e entity.UserPasswordChanged) error {
	c.record = passwordRecord{NewHash: e.NewHash.ExposeHash()}
	return nil
}

func (c *encoder) VisitUserRoleChanged(e entity.UserRoleChanged) error {
	c.record = roleRecord{NewRole: e.NewRole.Value()}
	return nil
}

func (c *encoder) VisitUserActivated(entity.UserActivated) error {
	c.record = emptyRecord{}
	return nil
}

func (c *encoder) VisitUserDeactivated(entity.UserDeactivated) error {
	c.record = emptyRecord{}
	return nil
}
