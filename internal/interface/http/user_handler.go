package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/application/command"
	"github.com/oksasatya/go-ddd-user-service/internal/application/query"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/pkg/response"
	"github.com/oksasatya/go-ddd-user-service/pkg/validation"
)

// UserCommands is the write side used by the HTTP layer.
type UserCommands interface {
	CreateUser(ctx context.Context, cmd command.CreateUser) (command.UserResponse, error)
	UpdateUser(ctx context.Context, cmd command.UpdateUser) (command.UserResponse, error)
	ChangePassword(ctx context.Context, cmd command.ChangePassword) (command.UserResponse, error)
	ChangeRole(ctx context.Context, cmd command.ChangeRole) (command.UserResponse, error)
	ActivateUser(ctx context.Context, cmd command.ActivateUser) (command.UserResponse, error)
	DeactivateUser(ctx context.Context, cmd command.DeactivateUser) (command.UserResponse, error)
	Login(ctx context.Context, cmd command.Login) (command.LoginResponse, error)
}

// UserQueries groups the (cached) read handlers.
type UserQueries struct {
	ByID   query.Handler[query.GetUserByID, query.UserView]
	List   query.Handler[query.ListUsers, query.UserPage]
	Search query.Handler[query.SearchUsers, []query.UserView]
}

type UserHandler struct {
	Commands UserCommands
	Queries  UserQueries
	Validate *validation.Validator
	Logger   *logrus.Logger
}

func NewUserHandler(commands UserCommands, queries UserQueries, validate *validation.Validator, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Commands: commands, Queries: queries, Validate: validate, Logger: logger}
}

// createUserRequest is the public registration body. It has no role: new
// accounts always start as User and only an admin can change that.
type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,max=200"`
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,pwd"`
}

type updateUserRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,max=200"`
	Username string `json:"username" validate:"required,max=50"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,pwd,nefield=CurrentPassword"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type listUsersRequest struct {
	Search   string `form:"search" validate:"max=200"`
	Role     string `form:"role" validate:"omitempty,oneof=User Admin Moderator"`
	IsActive string `form:"is_active" validate:"omitempty,oneof=true false"`
	SortBy   string `form:"sort_by"`
	Order    string `form:"order" validate:"omitempty,oneof=asc desc"`
	Page     int    `form:"page" validate:"gte=0"`
	PageSize int    `form:"page_size" validate:"gte=0"`
}

type searchUsersRequest struct {
	Query string `form:"q" validate:"required,max=200"`
	Size  int    `form:"size" validate:"gte=0"`
}

// bind decodes the JSON body into dst and validates it. On failure it writes
// the error response and returns false.
func (h *UserHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.FromError(c, validation.BindError(err))
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		response.FromError(c, err)
		return false
	}
	return true
}

func (h *UserHandler) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.FromError(c, errs.List{errs.Validation("query", "Request.InvalidQuery", "invalid query parameters")})
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		response.FromError(c, err)
		return false
	}
	return true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.FromError(c, errs.List{errs.Validation("id", "Request.InvalidID", "must be a valid UUID")})
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) fail(c *gin.Context, op string, err error) {
	if errs.KindOf(err) == errs.KindInternal && h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{
			"op":             op,
			"correlation_id": c.GetString("request_id"),
		}).WithError(err).Error("request failed")
	}
	response.FromError(c, err)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Commands.CreateUser(c.Request.Context(), command.CreateUser{
		Name: req.Name, Email: req.Email, Username: req.Username, Password: req.Password,
	})
	if err != nil {
		h.fail(c, "create user", err)
		return
	}
	c.Header("Location", "/api/users/"+res.ID.String())
	response.Success(c, http.StatusCreated, res, "user created", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.Queries.ByID.Handle(c.Request.Context(), query.GetUserByID{ID: id})
	if err != nil {
		h.fail(c, "get user", err)
		return
	}
	response.Success(c, http.StatusOK, view, "ok", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	var req listUsersRequest
	if !h.bindQuery(c, &req) {
		return
	}
	q := query.ListUsers{
		Search:   req.Search,
		Role:     req.Role,
		SortBy:   req.SortBy,
		SortDesc: req.Order == "desc",
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.IsActive != "" {
		active, _ := strconv.ParseBool(req.IsActive)
		q.IsActive = &active
	}
	page, err := h.Queries.List.Handle(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "list users", err)
		return
	}
	response.Success(c, http.StatusOK, page.Items, "ok", gin.H{
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

func (h *UserHandler) Search(c *gin.Context) {
	var req searchUsersRequest
	if !h.bindQuery(c, &req) {
		return
	}
	views, err := h.Queries.Search.Handle(c.Request.Context(), query.SearchUsers{Query: req.Query, Size: req.Size})
	if err != nil {
		h.fail(c, "search users", err)
		return
	}
	response.Success(c, http.StatusOK, views, "ok", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Commands.UpdateUser(c.Request.Context(), command.UpdateUser{
		ID: id, Name: req.Name, Email: req.Email, Username: req.Username,
	})
	if err != nil {
		h.fail(c, "update user", err)
		return
	}
	response.Success(c, http.StatusOK, res, "user updated", nil)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Commands.ChangePassword(c.Request.Context(), command.ChangePassword{
		ID: id, CurrentPassword: req.CurrentPassword, NewPassword: req.NewPassword,
	})
	if err != nil {
		h.fail(c, "change password", err)
		return
	}
	response.Success(c, http.StatusOK, res, "password changed", nil)
}

func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req changeRoleRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Commands.ChangeRole(c.Request.Context(), command.ChangeRole{ID: id, Role: req.Role})
	if err != nil {
		h.fail(c, "change role", err)
		return
	}
	response.Success(c, http.StatusOK, res, "role changed", nil)
}

func (h *UserHandler) Activate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.Commands.ActivateUser(c.Request.Context(), command.ActivateUser{ID: id})
	if err != nil {
		h.fail(c, "activate user", err)
		return
	}
	response.Success(c, http.StatusOK, res, "user activated", nil)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.Commands.DeactivateUser(c.Request.Context(), command.DeactivateUser{ID: id})
	if err != nil {
		h.fail(c, "deactivate user", err)
		return
	}
	response.Success(c, http.StatusOK, res, "user deactivated", nil)
}
