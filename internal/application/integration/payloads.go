package integration

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
)

// Public payloads. None of them carries a password hash.

type UserCreatedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserUpdatedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserPasswordChangedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	ChangedAt time.Time `json:"changedAt"`
}

type UserRoleChangedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	NewRole   string    `json:"newRole"`
	ChangedAt time.Time `json:"changedAt"`
}

type UserStatusPayload struct {
	UserID   uuid.UUID `json:"userId"`
	IsActive bool      `json:"isActive"`
	At       time.Time `json:"at"`
}

// DefaultRegistry publishes every user event kind.
func DefaultRegistry() Registry {
	return Registry{
		entity.KindUserCreated: func(e entity.UserEvent) (any, error) {
			ev, ok := e.(entity.UserCreated)
			if !ok {
				return nil, unexpected(e)
			}
			return UserCreatedPayload{
				UserID:    ev.UserID,
				Name:      ev.Name,
				Email:     ev.Email.Value(),
				Username:  ev.Username,
				Role:      ev.Role.Value(),
				CreatedAt: ev.CreatedAt(),
			}, nil
		},
		entity.KindUserUpdated: func(e entity.UserEvent) (any, error) {
			ev, ok := e.(entity.UserUpdated)
			if !ok {
				return nil, unexpected(e)
			}
			return UserUpdatedPayload{
				UserID:    ev.UserID,
				Name:      ev.Name,
				Email:     ev.Email.Value(),
				Username:  ev.Username,
				UpdatedAt: ev.UpdatedAt(),
			}, nil
		},
		entity.KindUserPasswordChanged: func(e entity.UserEvent) (any, error) {
			return UserPasswordChangedPayload{UserID: e.AggregateID(), ChangedAt: e.OccurredAt()}, nil
		},
		entity.KindUserRoleChanged: func(e entity.UserEvent) (any, error) {
			ev, ok := e.(entity.UserRoleChanged)
			if !ok {
				return nil, unexpected(e)
			}
			return UserRoleChangedPayload{UserID: ev.UserID, NewRole: ev.NewRole.Value(), ChangedAt: ev.ChangedAt()}, nil
		},
		entity.KindUserActivated: func(e entity.UserEvent) (any, error) {
			return UserStatusPayload{UserID: e.AggregateID(), IsActive: true, At: e.OccurredAt()}, nil
		},
		entity.KindUserDeactivated: func(e entity.UserEvent) (any, error) {
			return UserStatusPayload{UserID: e.AggregateID(), IsActive: false, At: e.OccurredAt()}, nil
		},
	}
}

func unexpected(e entity.UserEvent) error {
	return fmt.Errorf("event kind %s carried by %T", e.Kind(), e)
}
