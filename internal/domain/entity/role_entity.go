package entity

import (
	"strings"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
)

// Role is an authorization role from a closed set.
type Role struct {
	value string
}

var (
	RoleUser      = Role{value: "User"}
	RoleAdmin     = Role{value: "Admin"}
	RoleModerator = Role{value: "Moderator"}
)

// Roles lists every valid role in canonical casing.
func Roles() []Role { return []Role{RoleUser, RoleAdmin, RoleModerator} }

// NewRole matches raw case-insensitively and returns the canonical role.
func NewRole(raw string) (Role, error) {
	v := strings.TrimSpace(raw)
	for _, r := range Roles() {
		if strings.EqualFold(v, r.value) {
			return r, nil
		}
	}
	return Role{}, errs.Validation("role", "Role.Invalid", "role must be one of: User, Admin, Moderator")
}

// RoleFromDB rebuilds a role read from a trusted store.
func RoleFromDB(stored string) Role { return Role{value: stored} }

func (r Role) Value() string      { return r.value }
func (r Role) String() string     { return r.value }
func (r Role) Equals(o Role) bool { return r.value == o.value }
func (r Role) IsAdmin() bool      { return r == RoleAdmin }
func (r Role) CanModerate() bool  { return r == RoleAdmin || r == RoleModerator }
