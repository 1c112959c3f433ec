package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Local is the in-process tier. Expiry is absolute from the write; reads do
// not extend it. When full the least recently used entry is evicted.
type Local struct {
	items *ttlcache.Cache[string, []byte]
}

func NewLocal(maxEntries int) *Local {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Local{items: ttlcache.New[string, []byte](
		ttlcache.WithCapacity[string, []byte](uint64(maxEntries)),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)}
}

func (l *Local) Get(key string) ([]byte, bool) {
	item := l.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores data for ttl. A non-positive ttl removes the key.
func (l *Local) Set(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		l.items.Delete(key)
		return
	}
	l.items.Set(key, data, ttl)
}

// Len counts live entries; expired ones are dropped first.
func (l *Local) Len() int {
	l.items.DeleteExpired()
	return l.items.Len()
}
