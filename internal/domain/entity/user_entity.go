package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
)

const (
	maxNameLength     = 200
	minUsernameLength = 3
	maxUsernameLength = 50
)

var (
	namePattern     = regexp.MustCompile(`^[\p{L} ]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// User is the aggregate root of the user domain. Its state changes only by
// applying UserEvents; every exported mutation validates first and raises at
// most one event.
type User struct {
	AggregateRoot[UserEvent]
	name         string
	email        Email
	username     string
	passwordHash PasswordHash
	role         Role
}

func (u *User) Name() string               { return u.name }
func (u *User) Email() Email               { return u.email }
func (u *User) Username() string           { return u.username }
func (u *User) PasswordHash() PasswordHash { return u.passwordHash }
func (u *User) Role() Role                 { return u.role }

// NewUserParams is the raw input of CreateUser. A zero ID or At is filled in.
type NewUserParams struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Username string
	Password string
	Role     string
	At       time.Time
}

// CreateUser validates every field together and, when all are valid, returns
// a user holding a single UserCreated event.
func CreateUser(p NewUserParams) (*User, error) {
	var c errs.Collector
	name, err := validateName(p.Name)
	c.Add(err)
	username, err := validateUsername(p.Username)
	c.Add(err)
	email, err := NewEmail(p.Email)
	c.Add(err)
	c.Add(checkPasswordStrength(p.Password))
	role, err := NewRole(p.Role)
	c.Add(err)
	if err := c.Err(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(p.Password, DefaultHashParams())
	if err != nil {
		return nil, err
	}
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	u := &User{}
	u.id = id
	u.raise(UserCreated{
		EventHeader:  u.nextHeader(p.At),
		Name:         name,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	return u, nil
}

// UpdateInfo replaces name, email and username.
func (u *User) UpdateInfo(name, email, username string, at time.Time) error {
	var c errs.Collector
	n, err := validateName(name)
	c.Add(err)
	em, err := NewEmail(email)
	c.Add(err)
	un, err := validateUsername(username)
	c.Add(err)
	if err := c.Err(); err != nil {
		return err
	}
	u.raise(UserUpdated{EventHeader: u.nextHeader(at), Name: n, Email: em, Username: un})
	return nil
}

// ChangePassword hashes plain and records the new hash.
func (u *User) ChangePassword(plain string, at time.Time) error {
	hash, err := NewPassword(plain)
	if err != nil {
		return asList(err)
	}
	u.raise(UserPasswordChanged{EventHeader: u.nextHeader(at), NewHash: hash})
	return nil
}

// ChangeRole moves the user to another role. Re-assigning the current role
// fails with Role.SameRole.
func (u *User) ChangeRole(raw string, at time.Time) error {
	role, err := NewRole(raw)
	if err != nil {
		return asList(err)
	}
	if role.Equals(u.role) {
		return errs.List{errs.Validation("role", "Role.SameRole", "user already has role "+role.Value())}
	}
	u.raise(UserRoleChanged{EventHeader: u.nextHeader(at), NewRole: role})
	return nil
}

func (u *User) Activate(at time.Time) error {
	if u.isActive {
		return errs.List{errs.Validation("isActive", "User.AlreadyActive", "user is already active")}
	}
	u.raise(UserActivated{EventHeader: u.nextHeader(at)})
	return nil
}

func (u *User) Deactivate(at time.Time) error {
	if !u.isActive {
		return errs.List{errs.Validation("isActive", "User.AlreadyInactive", "user is already inactive")}
	}
	u.raise(UserDeactivated{EventHeader: u.nextHeader(at)})
	return nil
}

// Rehydrate rebuilds a user from its persisted history through the same apply
// path live mutations use. The result has no uncommitted events.
func Rehydrate(history []UserEvent) (*User, error) {
	if len(history) == 0 {
		return nil, errs.Internal("User.EmptyHistory", fmt.Errorf("no events to replay"))
	}
	if history[0].Kind() != KindUserCreated {
		return nil, errs.Internal("User.CorruptHistory", fmt.Errorf("first event is %s", history[0].Kind()))
	}
	u := &User{}
	id := history[0].AggregateID()
	for i, e := range history {
		if e.AggregateID() != id {
			return nil, errs.Internal("User.CorruptHistory", fmt.Errorf("event %d belongs to %s, want %s", i, e.AggregateID(), id))
		}
		if e.Version() != i+1 {
			return nil, errs.Internal("User.CorruptHistory", fmt.Errorf("event %d has version %d, want %d", i, e.Version(), i+1))
		}
		u.apply(e)
	}
	return u, nil
}

func (u *User) nextHeader(at time.Time) EventHeader {
	return EventHeader{UserID: u.id, StreamVersion: u.version + 1, Timestamp: eventTime(at)}
}

func (u *User) raise(e UserEvent) {
	u.apply(e)
	u.track(e)
}

func (u *User) apply(e UserEvent) {
	// userApplier never fails; the error return only exists for other visitors.
	_ = e.Accept(userApplier{u: u})
	u.version = e.Version()
}

type userApplier struct {
	u *User
}

func (a userApplier) VisitUserCreated(e UserCreated) error {
	a.u.id = e.UserID
	a.u.name = e.Name
	a.u.email = e.Email
	a.u.username = e.Username
	a.u.passwordHash = e.PasswordHash
	a.u.role = e.Role
	a.u.createdAt = e.Timestamp
	a.u.updatedAt = nil
	a.u.isActive = true
	return nil
}

func (a userApplier) VisitUserUpdated(e UserUpdated) error {
	a.u.name = e.Name
	a.u.email = e.Email
	a.u.username = e.Username
	a.u.touch(e.Timestamp)
	return nil
}

func (a userApplier) VisitUserPasswordChanged(e UserPasswordChanged) error {
	a.u.passwordHash = e.NewHash
	a.u.touch(e.Timestamp)
	return nil
}

func (a userApplier) VisitUserRoleChanged(e UserRoleChanged) error {
	a.u.role = e.NewRole
	a.u.touch(e.Timestamp)
	return nil
}

func (a userApplier) VisitUserActivated(e UserActivated) error {
	a.u.isActive = true
	a.u.touch(e.Timestamp)
	return nil
}

func (a userApplier) VisitUserDeactivated(e UserDeactivated) error {
	a.u.isActive = false
	a.u.touch(e.Timestamp)
	return nil
}

func validateName(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return "", errs.Validation("name", "Name.Required", "name is required")
	case utf8.RuneCountInString(v) > maxNameLength:
		return "", errs.Validation("name", "Name.TooLong", "name must be at most 200 characters long")
	case !namePattern.MatchString(v):
		return "", errs.Validation("name", "Name.InvalidCharacters", "name may only contain letters and spaces")
	}
	return v, nil
}

func validateUsername(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(v)
	switch {
	case v == "":
		return "", errs.Validation("username", "Username.Required", "username is required")
	case n < minUsernameLength || n > maxUsernameLength:
		return "", errs.Validation("username", "Username.InvalidLength", "username must be between 3 and 50 characters long")
	case !usernamePattern.MatchString(v):
		return "", errs.Validation("username", "Username.InvalidCharacters", "username may only contain letters, digits, '_' and '-'")
	}
	return v, nil
}

// asList normalizes a single failure into a list so every mutation reports the
// same shape.
func asList(err error) error {
	if err == nil {
		return nil
	}
	return errs.Flatten(err)
}
