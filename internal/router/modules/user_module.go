package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
)

// UserModule wires user HTTP handlers into routes
// Public: POST /api/users
// Protected: GET /api/users, GET /api/users/search, GET /api/users/:id
// Owner or admin: PUT /api/users/:id
// Owner only: PUT /api/users/:id/password
// Admin only: PUT /api/users/:id/role, POST /api/users/:id/activate, POST /api/users/:id/deactivate
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  middleware.TokenParser
	Redis   *redis.Client
	PerMin  int
	Allow   middleware.AllowFunc
}

func NewUserModule(h *handlers.UserHandler, tokens middleware.TokenParser, rdb *redis.Client, perMin int, allow middleware.AllowFunc) *UserModule {
	if perMin <= 0 {
		perMin = 120
	}
	return &UserModule{Handler: h, Tokens: tokens, Redis: rdb, PerMin: perMin, Allow: allow}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), m.Allow)
	rg.POST("/users", registerLimiter, m.Handler.Create)

	auth := rg.Group("/users")
	auth.Use(middleware.Auth(m.Tokens))
	auth.Use(
		middleware.RateLimit(m.Redis, m.PerMin*2, time.Minute, middleware.KeyByIP(), m.Allow),
		middleware.RateLimit(m.Redis, m.PerMin, time.Minute, middleware.KeyByUserID(), m.Allow),
	)
	{
		auth.GET("", m.Handler.List)
		auth.GET("/search", m.Handler.Search)
		auth.GET("/:id", m.Handler.Get)
		auth.PUT("/:id", middleware.RequireRole(true, entity.RoleAdmin), m.Handler.Update)
		auth.PUT("/:id/password", middleware.RequireRole(true), m.Handler.ChangePassword)

		admin := auth.Group("/:id", middleware.RequireRole(false, entity.RoleAdmin))
		admin.PUT("/role", m.Handler.ChangeRole)
		admin.POST("/activate", m.Handler.Activate)
		admin.POST("/deactivate", m.Handler.Deactivate)
	}
}
