package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

type outboxHeaders struct {
	CorrelationID   string    `json:"correlationId"`
	ActorID         string    `json:"actorId,omitempty"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	Source          string    `json:"source"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// OutboxWriter appends envelopes to outbox_messages within the caller's
// transaction.
type OutboxWriter struct {
	db dbtx
}

func NewOutboxWriter(db dbtx) *OutboxWriter {
	return &OutboxWriter{db: db}
}

func (w *OutboxWriter) Publish(ctx context.Context, envelopes ...repository.Envelope) error {
	for _, env := range envelopes {
		headers, err := json.Marshal(outboxHeaders{
			CorrelationID:   env.CorrelationID,
			ActorID:         env.ActorID,
			IsAuthenticated: env.IsAuthenticated,
			Source:          env.Source,
			OccurredAt:      env.OccurredAt,
		})
		if err != nil {
			return fmt.Errorf("encode outbox headers: %w", err)
		}
		if _, err := w.db.Exec(ctx, `
			INSERT INTO outbox_messages (id, aggregate_id, event_type, payload, headers)
			VALUES ($1, $2, $3, $4, $5)
		`, env.ID, env.AggregateID, env.EventType, []byte(env.Payload), headers); err != nil {
			return mapError("insert outbox message", err)
		}
	}
	return nil
}

// outboxRelayLock is held by the one relay allowed to claim rows. Other
// dispatcher processes idle until it is released, so no event of an aggregate
// is sent while an earlier one is held elsewhere.
const outboxRelayLock int64 = 0x6f7574626f78 // "outbox"

// relayTx is the part of pgx.Tx the relay uses.
type relayTx interface {
	dbtx
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// OutboxRelay hands pending outbox rows to a deliverer.
type OutboxRelay struct {
	begin func(ctx context.Context) (relayTx, error)
}

func NewOutboxRelay(pool *pgxpool.Pool) *OutboxRelay {
	return &OutboxRelay{begin: func(ctx context.Context) (relayTx, error) {
		tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return nil, err
		}
		return tx, nil
	}}
}

// Relay claims up to limit undelivered rows in insertion order and records
// the outcome deliver reports for each. Rows deliver leaves out of its result
// are released untouched. While another relay is active it returns 0 without
// claiming anything.
func (r *OutboxRelay) Relay(ctx context.Context, limit, maxAttempts int, deliver repository.DeliverFunc) (int, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return 0, mapError("begin relay", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var active bool
	if err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, outboxRelayLock).Scan(&active); err != nil {
		return 0, mapError("lock relay", err)
	}
	if !active {
		return 0, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_id, event_type, payload, headers, created_at, attempts, COALESCE(last_error, '')
		FROM outbox_messages
		WHERE dispatched_at IS NULL AND attempts < $1
		ORDER BY seq
		LIMIT $2
		FOR UPDATE
	`, maxAttempts, limit)
	if err != nil {
		return 0, mapError("claim outbox", err)
	}
	batch, err := scanOutbox(rows)
	if err != nil {
		return 0, mapError("claim outbox", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	results := deliver(ctx, batch)
	delivered := 0
	for _, m := range batch {
		deliverErr, attempted := results[m.ID]
		switch {
		case !attempted:
			continue
		case deliverErr == nil:
			delivered++
			_, err = tx.Exec(ctx, `
				UPDATE outbox_messages SET dispatched_at = now(), attempts = attempts + 1, last_error = NULL
				WHERE id = $1
			`, m.ID)
		default:
			_, err = tx.Exec(ctx, `
				UPDATE outbox_messages SET attempts = attempts + 1, last_error = $2
				WHERE id = $1
			`, m.ID, deliverErr.Error())
		}
		if err != nil {
			return 0, mapError("record delivery", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, mapError("commit relay", err)
	}
	return delivered, nil
}

func scanOutbox(rows pgx.Rows) ([]repository.OutboxMessage, error) {
	defer rows.Close()
	var out []repository.OutboxMessage
	for rows.Next() {
		var (
			m       repository.OutboxMessage
			payload []byte
			headers []byte
		)
		if err := rows.Scan(&m.ID, &m.AggregateID, &m.EventType, &payload, &headers, &m.CreatedAt, &m.Attempts, &m.LastError); err != nil {
			return nil, err
		}
		var h outboxHeaders
		if err := json.Unmarshal(headers, &h); err != nil {
			return nil, fmt.Errorf("decode outbox headers of %s: %w", m.ID, err)
		}
		m.Payload = payload
		m.CorrelationID = h.CorrelationID
		m.ActorID = h.ActorID
		m.IsAuthenticated = h.IsAuthenticated
		m.Source = h.Source
		m.OccurredAt = h.OccurredAt
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ repository.OutboxPublisher = (*OutboxWriter)(nil)
