package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	Redis   *redis.Client
	Allow   middleware.AllowFunc
}

func NewAuthModule(h *handlers.AuthHandler, rdb *redis.Client, allow middleware.AllowFunc) *AuthModule {
	return &AuthModule{Handler: h, Redis: rdb, Allow: allow}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// 10 req/min per IP
	loginLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIP(), m.Allow)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
}
