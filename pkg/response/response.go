package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/pkg/validation"
)

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Codes   []string          `json:"codes"`
	Details map[string]string `json:"details,omitempty"`
}

// Success writes a successful envelope.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, APIResponse[T]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	})
}

// Error writes a failed envelope and aborts the chain.
func Error(ctx *gin.Context, status int, message string, err interface{}) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, APIResponse[any]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Error:     err,
	})
}

// FromError maps a structured error to its HTTP status and writes it.
// Internal causes are never exposed.
func FromError(ctx *gin.Context, err error) {
	list := errs.Flatten(err)
	status, message := StatusOf(errs.KindOf(err))
	body := ErrorBody{Codes: make([]string, 0, len(list))}
	for _, e := range list {
		body.Codes = append(body.Codes, e.Code)
	}
	if details := validation.ToDetails(err); len(details) > 0 {
		body.Details = details
	}
	if status != http.StatusInternalServerError && len(list) == 1 && list[0].Message != "" {
		message = list[0].Message
	}
	Error(ctx, status, message, body)
}

// StatusOf returns the HTTP status and default message for an error kind.
func StatusOf(kind errs.Kind) (int, string) {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest, "validation failed"
	case errs.KindNotFound:
		return http.StatusNotFound, "not found"
	case errs.KindConflict:
		return http.StatusConflict, "conflict"
	case errs.KindUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	}
	return http.StatusInternalServerError, "internal server error"
}
