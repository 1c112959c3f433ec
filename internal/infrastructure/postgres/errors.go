package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

const emailIndex = "user_projections_email_key"

// mapError translates driver failures into the errs taxonomy. Errors that are
// already structured pass through unchanged.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var structured *errs.Error
	if errors.As(err, &structured) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Internal("Store.Timeout", fmt.Errorf("%s: %w", op, err))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == emailIndex {
				return errs.Conflict("User.EmailAlreadyExists", "a user with this email already exists")
			}
			return errs.Conflict("User.ConcurrencyConflict", "the user was modified concurrently")
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return errs.Conflict("User.ConcurrencyConflict", "the user was modified concurrently")
		}
	}
	return errs.Internal("Store.Failure", fmt.Errorf("%s: %w", op, err))
}
