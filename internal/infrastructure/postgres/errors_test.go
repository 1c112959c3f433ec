package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

func TestMapError(t *testing.T) {
	structured := errs.NotFound("User.NotFound", "x")
	cases := []struct {
		name string
		in   error
		kind errs.Kind
		code string
	}{
		{"unique on email", &pgconn.PgError{Code: "23505", ConstraintName: emailIndex}, errs.KindConflict, "User.EmailAlreadyExists"},
		{"unique on stream", &pgconn.PgError{Code: "23505", ConstraintName: "user_events_stream_version_key"}, errs.KindConflict, "User.ConcurrencyConflict"},
		{"serialization", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40001"}), errs.KindConflict, "User.ConcurrencyConflict"},
		{"deadline", context.DeadlineExceeded, errs.KindInternal, "Store.Timeout"},
		{"other", errors.New("connection refused"), errs.KindInternal, "Store.Failure"},
		{"structured", structured, errs.KindNotFound, "User.NotFound"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError("op", tc.in)
			if errs.KindOf(got) != tc.kind || !errs.HasCode(got, tc.code) {
				t.Fatalf("want %s/%s got=%v", tc.kind, tc.code, got)
			}
		})
	}

	if mapError("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	if !errors.Is(mapError("op", pgx.ErrNoRows), repository.ErrNotFound) {
		t.Fatalf("ErrNoRows must map to ErrNotFound")
	}
}
