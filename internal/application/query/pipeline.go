// Package query holds the read side: query handlers over the read model and
// the cache-aside pipeline that wraps them.
package query

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// Handler answers one query type.
type Handler[Q any, R any] interface {
	Handle(ctx context.Context, q Q) (R, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[Q any, R any] func(ctx context.Context, q Q) (R, error)

func (f HandlerFunc[Q, R]) Handle(ctx context.Context, q Q) (R, error) { return f(ctx, q) }

// CacheableQuery opts a query into caching. CacheKey must encode every
// parameter that affects the result.
type CacheableQuery interface {
	CacheKey() string
	LocalTTL() time.Duration
	DistributedTTL() time.Duration
}

// Cached is a cache-aside decorator. A hit skips the inner handler; a miss
// runs it and writes the result to both cache tiers.
//
// Nothing on the write side invalidates entries, so a cached result can be
// stale for up to its TTL after a command commits.
type Cached[Q any, R any] struct {
	next   Handler[Q, R]
	cache  repository.CacheService
	logger *logrus.Logger
}

func NewCached[Q any, R any](next Handler[Q, R], cache repository.CacheService, logger *logrus.Logger) *Cached[Q, R] {
	return &Cached[Q, R]{next: next, cache: cache, logger: logger}
}

// Handle never fails because of the cache: cache errors are logged and the
// query runs uncached.
func (c *Cached[Q, R]) Handle(ctx context.Context, q Q) (R, error) {
	cq, ok := any(q).(CacheableQuery)
	if !ok || c.cache == nil {
		return c.next.Handle(ctx, q)
	}
	key := cq.CacheKey()
	local, distributed := cq.LocalTTL(), cq.DistributedTTL()

	cached, hit, err := repository.GetAs[R](ctx, c.cache, key, local, distributed)
	switch {
	case err != nil:
		c.warn(key, "cache read failed", err)
	case hit:
		return cached, nil
	}

	res, err := c.next.Handle(ctx, q)
	if err != nil {
		return res, err
	}
	if err := repository.SetAs(ctx, c.cache, key, res, local, distributed); err != nil {
		c.warn(key, "cache write failed", err)
	}
	return res, nil
}

func (c *Cached[Q, R]) warn(key, msg string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WithError(err).WithField("cache_key", key).Warn(msg)
}
