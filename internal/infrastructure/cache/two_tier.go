// Package cache implements the two-tier CacheService: an in-process map in
// front of Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// Remote is the distributed tier.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// TwoTier reads local first, then remote, back-filling local on a remote hit.
// Values are stored as JSON in both tiers.
type TwoTier struct {
	local  *Local
	remote Remote
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
}

func NewTwoTier(local *Local, remote Remote, prefix string) *TwoTier {
	return &TwoTier{local: local, remote: remote, prefix: prefix}
}

func (c *TwoTier) Get(ctx context.Context, key string, dest any, localTTL, distributedTTL time.Duration) (bool, error) {
	key = c.prefix + key
	if data, ok := c.local.Get(key); ok {
		c.hits.Add(1)
		return true, decode(data, dest)
	}
	if c.remote == nil {
		c.misses.Add(1)
		return false, nil
	}
	data, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.misses.Add(1)
		return false, err
	}
	if !ok {
		c.misses.Add(1)
		return false, nil
	}
	if err := decode(data, dest); err != nil {
		c.misses.Add(1)
		return false, err
	}
	c.hits.Add(1)
	local, _ := clamp(localTTL, distributedTTL)
	c.local.Set(key, data, local)
	return true, nil
}

// Set writes both tiers. The local tier is written even when the remote
// write fails; the remote error is still returned.
func (c *TwoTier) Set(ctx context.Context, key string, value any, localTTL, distributedTTL time.Duration) error {
	key = c.prefix + key
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	local, distributed := clamp(localTTL, distributedTTL)
	c.local.Set(key, data, local)
	if c.remote == nil || distributed <= 0 {
		return nil
	}
	return c.remote.Set(ctx, key, data, distributed)
}

// Stats returns hit and miss counts since start.
func (c *TwoTier) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func clamp(local, distributed time.Duration) (time.Duration, time.Duration) {
	if local > distributed {
		local = distributed
	}
	return local, distributed
}

func decode(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}

var _ repository.CacheService = (*TwoTier)(nil)
