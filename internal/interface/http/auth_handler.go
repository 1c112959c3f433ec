package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-user-service/internal/application/command"
	"github.com/oksasatya/go-ddd-user-service/pkg/response"
)

type AuthHandler struct {
	users *UserHandler
}

func NewAuthHandler(users *UserHandler) *AuthHandler {
	return &AuthHandler{users: users}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=200"`
	Password string `json:"password" validate:"required,max=128"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.users.bind(c, &req) {
		return
	}
	res, err := h.users.Commands.Login(c.Request.Context(), command.Login{Email: req.Email, Password: req.Password})
	if err != nil {
		h.users.fail(c, "login", err)
		return
	}
	response.Success(c, http.StatusOK, res, "login successful", nil)
}
