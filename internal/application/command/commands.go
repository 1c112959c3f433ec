// Package command holds the write side of the user service. Every command
// runs the same pipeline inside one transaction: load, mutate, save, project,
// publish to the outbox, commit.
package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
)

type CreateUser struct {
	Name     string
	Email    string
	Username string
	Password string
	// Role defaults to User when empty.
	Role string
}

type UpdateUser struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Username string
}

type ChangePassword struct {
	ID              uuid.UUID
	CurrentPassword string
	NewPassword     string
}

type ChangeRole struct {
	ID   uuid.UUID
	Role string
}

type ActivateUser struct {
	ID uuid.UUID
}

type DeactivateUser struct {
	ID uuid.UUID
}

type Login struct {
	Email    string
	Password string
}

// UserResponse is the post-command state returned to callers.
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Version   int        `json:"version"`
}

type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
}

func toResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email().Value(),
		Username:  u.Username(),
		Role:      u.Role().Value(),
		IsActive:  u.IsActive(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
		Version:   u.Version(),
	}
}
