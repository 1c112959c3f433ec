package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

type boolRow bool

func (r boolRow) Scan(dest ...any) error {
	*dest[0].(*bool) = bool(r)
	return nil
}

// relayFake answers the relay lock with locked and fails the claim query
// after recording it.
type relayFake struct {
	locked     bool
	queries    []string
	rolledBack bool
}

func (f *relayFake) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (f *relayFake) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	return nil, errors.New("claim refused")
}

func (f *relayFake) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if !strings.Contains(sql, "pg_try_advisory_xact_lock") {
		return errRow{}
	}
	return boolRow(f.locked)
}

func (f *relayFake) Commit(context.Context) error { return nil }

func (f *relayFake) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

func relayOver(f *relayFake) *OutboxRelay {
	return &OutboxRelay{begin: func(context.Context) (relayTx, error) { return f, nil }}
}

func TestRelayStandbyClaimsNothing(t *testing.T) {
	f := &relayFake{locked: false}
	delivered := false
	n, err := relayOver(f).Relay(context.Background(), 10, 3, func(context.Context, []repository.OutboxMessage) map[uuid.UUID]error {
		delivered = true
		return nil
	})
	if err != nil || n != 0 {
		t.Fatalf("standby relay: n=%d err=%v", n, err)
	}
	if len(f.queries) != 0 || delivered {
		t.Fatalf("standby relay claimed rows: queries=%d delivered=%v", len(f.queries), delivered)
	}
	if !f.rolledBack {
		t.Fatalf("standby relay must release its transaction")
	}
}

func TestRelayActiveClaimsInOutboxOrder(t *testing.T) {
	f := &relayFake{locked: true}
	_, err := relayOver(f).Relay(context.Background(), 10, 3, func(context.Context, []repository.OutboxMessage) map[uuid.UUID]error {
		t.Fatalf("deliver called after a failed claim")
		return nil
	})
	if err == nil {
		t.Fatalf("claim error was swallowed")
	}
	if len(f.queries) != 1 {
		t.Fatalf("claim queries: want=1 got=%d", len(f.queries))
	}
	claim := f.queries[0]
	if !strings.Contains(claim, "ORDER BY seq") || strings.Contains(claim, "SKIP LOCKED") {
		t.Fatalf("claim must take the oldest rows without skipping locked ones: %s", claim)
	}
}
