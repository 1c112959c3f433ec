package entity

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
)

const maxEmailLength = 200

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email is a lowercase, format-checked address.
type Email struct {
	value string
}

// NewEmail validates raw and normalizes it to lowercase.
func NewEmail(raw string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return Email{}, errs.Validation("email", "Email.Required", "email is required")
	case utf8.RuneCountInString(v) > maxEmailLength:
		return Email{}, errs.Validation("email", "Email.TooLong", "email must be at most 200 characters long")
	case !emailPattern.MatchString(v):
		return Email{}, errs.Validation("email", "Email.InvalidFormat", "email must be a valid email address")
	}
	return Email{value: v}, nil
}

// EmailFromDB rebuilds an email read from a trusted store without re-validating.
func EmailFromDB(stored string) Email { return Email{value: stored} }

func (e Email) Value() string       { return e.value }
func (e Email) String() string      { return e.value }
func (e Email) Equals(o Email) bool { return e.value == o.value }
func (e Email) IsZero() bool        { return e.value == "" }
