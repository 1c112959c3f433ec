package modules

import (
	"expvar"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/cache"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
)

var publishCache sync.Once

type DebugModule struct {
	Redis *redis.Client
}

// NewDebugModule publishes the query cache counters under "query_cache".
// expvar names are process-global, so the cache is published once.
func NewDebugModule(rdb *redis.Client, c *cache.TwoTier) *DebugModule {
	if c != nil {
		publishCache.Do(func() {
			expvar.Publish("query_cache", expvar.Func(func() any {
				hits, misses := c.Stats()
				return map[string]int64{"hits": hits, "misses": misses}
			}))
		})
	}
	return &DebugModule{Redis: rdb}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Public metrics endpoint (expvar), rate-limited per IP
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
