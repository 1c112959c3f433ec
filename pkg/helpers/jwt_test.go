package helpers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	in := repository.IdentityClaims{UserID: uuid.New(), Email: "a@x.com", Role: entity.RoleAdmin}
	tok, err := m.Create(in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	out, err := m.ParseAccessToken(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.UserID != in.UserID || out.Email != in.Email || !out.Role.IsAdmin() {
		t.Fatalf("want=%+v got=%+v", in, out)
	}
}

func TestJWTRejectsExpiredAndForeignTokens(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewJWTManager("secret", time.Minute)
	m.now = func() time.Time { return issued }
	tok, err := m.Create(repository.IdentityClaims{UserID: uuid.New(), Role: entity.RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := m.ParseAccessToken(tok); err == nil {
		t.Fatalf("expired token accepted")
	}

	other := NewJWTManager("other-secret", time.Hour)
	foreign, _ := other.Create(repository.IdentityClaims{UserID: uuid.New(), Role: entity.RoleUser})
	if _, err := NewJWTManager("secret", time.Hour).ParseAccessToken(foreign); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}
}
