package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
)

// Tx is the unit of work handed to TxRunner callbacks. Every store it returns
// shares the same database transaction.
type Tx interface {
	Users() UserRepository
	Outbox() OutboxPublisher
	Projections() ProjectionStore
}

// TxRunner commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// CacheService is a two-tier cache. A miss is (false, nil); errors are
// reported so callers can log them, never to fail a read.
type CacheService interface {
	Get(ctx context.Context, key string, dest any, localTTL, distributedTTL time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, localTTL, distributedTTL time.Duration) error
}

// GetAs is the typed form of CacheService.Get.
func GetAs[T any](ctx context.Context, c CacheService, key string, localTTL, distributedTTL time.Duration) (T, bool, error) {
	var v T
	ok, err := c.Get(ctx, key, &v, localTTL, distributedTTL)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

// SetAs is the typed form of CacheService.Set.
func SetAs[T any](ctx context.Context, c CacheService, key string, value T, localTTL, distributedTTL time.Duration) error {
	return c.Set(ctx, key, value, localTTL, distributedTTL)
}

// IdentityClaims are the facts a token asserts about its holder.
type IdentityClaims struct {
	UserID uuid.UUID
	Email  string
	Role   entity.Role
}

type TokenIssuer interface {
	Create(claims IdentityClaims) (string, error)
}

// StoredEvent is an event read back from the store with its global position.
type StoredEvent struct {
	Seq   int64
	Event entity.UserEvent
}

// EventFeed reads the event store in global order.
type EventFeed interface {
	ReadSince(ctx context.Context, afterSeq int64, limit int) ([]StoredEvent, error)
}

// CheckpointStore remembers how far a named projector has read.
type CheckpointStore interface {
	Load(ctx context.Context, name string) (int64, error)
	Save(ctx context.Context, name string, seq int64) error
}
