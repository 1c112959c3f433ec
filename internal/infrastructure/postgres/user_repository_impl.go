package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// eventAppendLock serializes event appends so that user_events.seq order is
// commit order, which the catch-up projector relies on.
const eventAppendLock = 7_342_118

// UserRepository is the event-sourced user store. Streams live in
// user_streams/user_events; List and the login lookups read user_projections.
type UserRepository struct {
	db    dbtx
	codec *EventCodec
}

func NewUserRepository(db dbtx, codec *EventCodec) *UserRepository {
	return &UserRepository{db: db, codec: codec}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT version, event_type, payload, occurred_at
		FROM user_events
		WHERE aggregate_id = $1
		ORDER BY version
	`, id)
	if err != nil {
		return nil, mapError("load stream", err)
	}
	defer rows.Close()

	var history []entity.UserEvent
	for rows.Next() {
		var (
			version    int
			kind       string
			payload    []byte
			occurredAt time.Time
		)
		if err := rows.Scan(&version, &kind, &payload, &occurredAt); err != nil {
			return nil, mapError("scan event", err)
		}
		e, err := r.codec.Decode(kind, id, version, occurredAt, payload)
		if err != nil {
			return nil, errs.Internal("User.CorruptHistory", err)
		}
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("load stream", err)
	}
	if len(history) == 0 {
		return nil, repository.ErrNotFound
	}
	return entity.Rehydrate(history)
}

// Save compare-and-sets the stream version from u.PersistedVersion() to
// u.Version() and appends the pending events. It must run inside a
// transaction.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	events := u.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}
	expected, next := u.PersistedVersion(), u.Version()

	if expected == 0 {
		if _, err := r.db.Exec(ctx, `INSERT INTO user_streams (id, version) VALUES ($1, $2)`, u.ID(), next); err != nil {
			return mapError("create stream", err)
		}
	} else {
		tag, err := r.db.Exec(ctx, `
			UPDATE user_streams SET version = $3, updated_at = now()
			WHERE id = $1 AND version = $2
		`, u.ID(), expected, next)
		if err != nil {
			return mapError("advance stream", err)
		}
		if tag.RowsAffected() == 0 {
			return errs.Conflict("User.ConcurrencyConflict", "the user was modified concurrently")
		}
	}

	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, eventAppendLock); err != nil {
		return mapError("lock events", err)
	}
	for _, e := range events {
		payload, err := r.codec.Encode(e)
		if err != nil {
			return errs.Internal("User.EncodeFailed", err)
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO user_events (aggregate_id, version, event_type, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
		`, e.AggregateID(), e.Version(), e.Kind().String(), payload, e.OccurredAt()); err != nil {
			return mapError("append event", err)
		}
	}
	return nil
}

var listSortColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"username":  "username",
	"role":      "role",
	"createdAt": "created_at",
}

func (r *UserRepository) List(ctx context.Context, f repository.ListFilter) ([]repository.UserProjection, int, error) {
	where := []string{"NOT is_deleted"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR email ILIKE %[1]s OR username ILIKE %[1]s)", p))
	}
	if f.Role != "" {
		where = append(where, "lower(role) = lower("+arg(f.Role)+")")
	}
	if f.IsActive != nil {
		where = append(where, "is_active = "+arg(*f.IsActive))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM user_projections WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, mapError("count users", err)
	}

	col, ok := listSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	limit := arg(f.PageSize)
	offset := arg((f.Page - 1) * f.PageSize)
	rows, err := r.db.Query(ctx, `SELECT `+projectionColumns+` FROM user_projections WHERE `+cond+
		` ORDER BY `+col+` `+dir+`, id LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return nil, 0, mapError("list users", err)
	}
	defer rows.Close()

	out := make([]repository.UserProjection, 0, f.PageSize)
	for rows.Next() {
		p, err := scanProjection(rows)
		if err != nil {
			return nil, 0, mapError("scan user", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list users", err)
	}
	return out, total, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email entity.Email) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_projections WHERE email = $1 AND NOT is_deleted)
	`, email.Value()).Scan(&exists)
	if err != nil {
		return false, mapError("email lookup", err)
	}
	return exists, nil
}

func (r *UserRepository) GetTokenInfo(ctx context.Context, email entity.Email) (repository.TokenInfo, error) {
	var (
		info repository.TokenInfo
		role string
		hash string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, is_active
		FROM user_projections
		WHERE email = $1 AND NOT is_deleted
	`, email.Value()).Scan(&info.UserID, &info.Email, &info.Name, &role, &hash, &info.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.TokenInfo{}, repository.ErrNotFound
		}
		return repository.TokenInfo{}, mapError("token info", err)
	}
	info.Role = entity.RoleFromDB(role)
	info.PasswordHash = entity.PasswordFromHash(hash)
	return info, nil
}

// ReadSince pages through the whole event store in global order.
func (r *UserRepository) ReadSince(ctx context.Context, afterSeq int64, limit int) ([]repository.StoredEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT seq, aggregate_id, version, event_type, payload, occurred_at
		FROM user_events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`, afterSeq, limit)
	if err != nil {
		return nil, mapError("read events", err)
	}
	defer rows.Close()

	var out []repository.StoredEvent
	for rows.Next() {
		var (
			seq        int64
			id         uuid.UUID
			version    int
			kind       string
			payload    []byte
			occurredAt time.Time
		)
		if err := rows.Scan(&seq, &id, &version, &kind, &payload, &occurredAt); err != nil {
			return nil, mapError("scan event", err)
		}
		e, err := r.codec.Decode(kind, id, version, occurredAt, payload)
		if err != nil {
			return nil, errs.Internal("User.CorruptHistory", err)
		}
		out = append(out, repository.StoredEvent{Seq: seq, Event: e})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("read events", err)
	}
	return out, nil
}

var (
	_ repository.UserRepository = (*UserRepository)(nil)
	_ repository.EventFeed      = (*UserRepository)(nil)
)
