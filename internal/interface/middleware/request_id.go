package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/application/requestctx"
)

const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware reuses an inbound X-Request-ID or generates one, echoes
// it back and stores it as the correlation id of the request context.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		ctx := requestctx.With(c.Request.Context(), requestctx.Metadata{CorrelationID: id})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
