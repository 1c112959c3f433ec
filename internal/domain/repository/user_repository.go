package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
)

// ErrNotFound is returned by adapters when a row or stream does not exist.
var ErrNotFound = errors.New("not found")

// UserRepository is the write-side store of user aggregates.
type UserRepository interface {
	// GetByID rehydrates the aggregate from its event stream.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	// Save appends the uncommitted events, expecting the stream to still be at
	// u.PersistedVersion(). A concurrent writer yields a conflict error.
	Save(ctx context.Context, u *entity.User) error
	// List reads the denormalized read model.
	List(ctx context.Context, f ListFilter) ([]UserProjection, int, error)
	ExistsByEmail(ctx context.Context, email entity.Email) (bool, error)
	// GetTokenInfo returns what login needs for the given email.
	GetTokenInfo(ctx context.Context, email entity.Email) (TokenInfo, error)
}

// ListFilter holds every filter, sort and paging parameter of ListUsers.
type ListFilter struct {
	Search   string
	Role     string
	IsActive *bool
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

// TokenInfo is the minimal credential view used by login.
type TokenInfo struct {
	UserID       uuid.UUID
	Email        string
	Name         string
	Role         entity.Role
	PasswordHash entity.PasswordHash
	IsActive     bool
}
