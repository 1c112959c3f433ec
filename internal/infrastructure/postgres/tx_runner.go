package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// TxRunner opens one pgx transaction per InTx call and exposes stores bound to
// it.
type TxRunner struct {
	pool  *pgxpool.Pool
	codec *EventCodec
}

func NewTxRunner(pool *pgxpool.Pool, codec *EventCodec) *TxRunner {
	return &TxRunner{pool: pool, codec: codec}
}

func (r *TxRunner) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&unitOfWork{tx: tx, codec: r.codec}); err != nil {
		return err
	}
	return mapError("commit", tx.Commit(ctx))
}

type unitOfWork struct {
	tx    pgx.Tx
	codec *EventCodec
}

func (u *unitOfWork) Users() repository.UserRepository        { return NewUserRepository(u.tx, u.codec) }
func (u *unitOfWork) Outbox() repository.OutboxPublisher      { return NewOutboxWriter(u.tx) }
func (u *unitOfWork) Projections() repository.ProjectionStore { return NewProjectionStore(u.tx) }

var _ repository.TxRunner = (*TxRunner)(nil)
