package entity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// HashParams are the Argon2id cost parameters. They are encoded into every
// hash so verification never depends on the current defaults.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams follows the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// PasswordHash is a salted one-way hash. The plaintext never leaves NewPassword.
type PasswordHash struct {
	hash string
}

// NewPassword checks strength rules, reporting every failed rule, and hashes
// plain with a fresh random salt.
func NewPassword(plain string) (PasswordHash, error) {
	if err := checkPasswordStrength(plain); err != nil {
		return PasswordHash{}, err
	}
	return hashPassword(plain, DefaultHashParams())
}

// PasswordFromHash wraps an existing hash without re-validating strength.
func PasswordFromHash(hash string) PasswordHash { return PasswordHash{hash: hash} }

// ExposeHash returns the encoded hash for persistence. It is the only way to
// read it.
func (p PasswordHash) ExposeHash() string { return p.hash }

func (p PasswordHash) String() string { return "[REDACTED]" }

func (p PasswordHash) IsZero() bool { return p.hash == "" }

// Verify reports whether plain matches the hash. The comparison takes the same
// time wherever the first differing byte is.
//
// Hashes written by the bcrypt seeder ($2a$/$2b$) are still accepted.
func (p PasswordHash) Verify(plain string) bool {
	if strings.HasPrefix(p.hash, "$2a$") || strings.HasPrefix(p.hash, "$2b$") {
		return bcrypt.CompareHashAndPassword([]byte(p.hash), []byte(plain)) == nil
	}
	params, salt, key, err := decodeHash(p.hash)
	if err != nil {
		return false
	}
	other := argon2.IDKey([]byte(plain), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1
}

func checkPasswordStrength(plain string) error {
	if plain == "" {
		return errs.List{errs.Validation("password", "Password.Required", "password is required")}
	}
	var c errs.Collector
	n := utf8.RuneCountInString(plain)
	if n < minPasswordLength {
		c.Add(errs.Validation("password", "Password.TooShort", "password must be at least 8 characters long"))
	}
	if n > maxPasswordLength {
		c.Add(errs.Validation("password", "Password.TooLong", "password must be at most 128 characters long"))
	}
	var upper, lower, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper {
		c.Add(errs.Validation("password", "Password.MissingUppercase", "password must contain an uppercase letter"))
	}
	if !lower {
		c.Add(errs.Validation("password", "Password.MissingLowercase", "password must contain a lowercase letter"))
	}
	if !digit {
		c.Add(errs.Validation("password", "Password.MissingDigit", "password must contain a digit"))
	}
	if !special {
		c.Add(errs.Validation("password", "Password.MissingSpecial", "password must contain a special character"))
	}
	return c.Err()
}

func hashPassword(plain string, params HashParams) (PasswordHash, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return PasswordHash{}, errs.Internal("Password.SaltUnavailable", err)
	}
	key := argon2.IDKey([]byte(plain), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	b64 := base64.RawStdEncoding
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.Memory, params.Iterations, params.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key))
	return PasswordHash{hash: encoded}, nil
}

func decodeHash(encoded string) (HashParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return HashParams{}, nil, nil, errors.New("unsupported hash format")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return HashParams{}, nil, nil, err
	}
	if version != argon2.Version {
		return HashParams{}, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}
	var p HashParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return HashParams{}, nil, nil, err
	}
	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return HashParams{}, nil, nil, err
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return HashParams{}, nil, nil, err
	}
	if len(key) == 0 {
		return HashParams{}, nil, nil, errors.New("empty key")
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
