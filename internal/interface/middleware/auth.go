package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-user-service/internal/application/requestctx"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/pkg/response"
)

const (
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"
)

// TokenParser verifies an access token.
type TokenParser interface {
	ParseAccessToken(token string) (repository.IdentityClaims, error)
}

// Auth validates the bearer token (or the access_token cookie) and records
// the caller as the actor of the request. It sets userID and userRole in the
// Gin context on success.
func Auth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}

		md := requestctx.From(c.Request.Context())
		md.ActorID = claims.UserID.String()
		md.IsAuthenticated = true
		c.Request = c.Request.WithContext(requestctx.With(c.Request.Context(), md))

		c.Set(CtxUserIDKey, claims.UserID.String())
		c.Set(CtxRoleKey, claims.Role.Value())
		c.Next()
	}
}

// RequireRole lets through callers whose token carries one of roles, or who
// act on their own account when self is true and the route has an :id param.
func RequireRole(self bool, roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := entity.RoleFromDB(c.GetString(CtxRoleKey))
		for _, r := range roles {
			if role.Equals(r) {
				c.Next()
				return
			}
		}
		if self && c.Param("id") != "" && strings.EqualFold(c.Param("id"), c.GetString(CtxUserIDKey)) {
			c.Next()
			return
		}
		response.Error(c, http.StatusForbidden, "insufficient role", nil)
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, _ := c.Cookie("access_token")
	return token
}
