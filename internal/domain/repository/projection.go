package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserProjection is one row of the read model. It is written only by replaying
// user events.
type UserProjection struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	IsActive     bool       `json:"isActive"`
	IsDeleted    bool       `json:"isDeleted"`
	Version      int        `json:"version"`
}

// ProjectionStore is the target of the projection synchronizer. Get returns
// ErrNotFound when the row does not exist.
type ProjectionStore interface {
	Insert(ctx context.Context, p UserProjection) error
	Get(ctx context.Context, id uuid.UUID) (UserProjection, error)
	Update(ctx context.Context, p UserProjection) error
}
