package query

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultSearch   = 10
	maxSearch       = 50
)

// UserView is the public read shape of a user.
type UserView struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Version   int        `json:"version"`
}

func toView(p repository.UserProjection) UserView {
	return UserView{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Username:  p.Username,
		Role:      p.Role,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Version:   p.Version,
	}
}

func toViews(ps []repository.UserProjection) []UserView {
	out := make([]UserView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toView(p))
	}
	return out
}

// GetUserByID

type GetUserByID struct {
	ID uuid.UUID
}

func (q GetUserByID) CacheKey() string              { return "users:by-id:" + q.ID.String() }
func (q GetUserByID) LocalTTL() time.Duration       { return 30 * time.Second }
func (q GetUserByID) DistributedTTL() time.Duration { return 5 * time.Minute }

type GetUserByIDHandler struct {
	store repository.ProjectionStore
}

func NewGetUserByIDHandler(store repository.ProjectionStore) *GetUserByIDHandler {
	return &GetUserByIDHandler{store: store}
}

func (h *GetUserByIDHandler) Handle(ctx context.Context, q GetUserByID) (UserView, error) {
	p, err := h.store.Get(ctx, q.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && p.IsDeleted) {
		return UserView{}, errs.NotFound("User.NotFound", "user not found")
	}
	if err != nil {
		return UserView{}, errs.Internal("User.ReadFailed", err)
	}
	return toView(p), nil
}

// ListUsers

var sortColumns = map[string]bool{"name": true, "email": true, "username": true, "createdAt": true, "role": true}

type ListUsers struct {
	Search   string
	Role     string
	IsActive *bool
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

// Normalize applies paging defaults and bounds and drops unknown sort columns.
func (q ListUsers) Normalize() ListUsers {
	q.Search = strings.TrimSpace(q.Search)
	q.Role = strings.TrimSpace(q.Role)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if !sortColumns[q.SortBy] {
		q.SortBy = "createdAt"
	}
	return q
}

func (q ListUsers) CacheKey() string {
	n := q.Normalize()
	active := "any"
	if n.IsActive != nil {
		active = fmt.Sprintf("%t", *n.IsActive)
	}
	return fmt.Sprintf("users:list:search=%s|role=%s|active=%s|sort=%s|desc=%t|page=%d|size=%d",
		url.QueryEscape(strings.ToLower(n.Search)), url.QueryEscape(strings.ToLower(n.Role)), active, n.SortBy, n.SortDesc, n.Page, n.PageSize)
}

func (q ListUsers) LocalTTL() time.Duration       { return 10 * time.Second }
func (q ListUsers) DistributedTTL() time.Duration { return time.Minute }

type UserPage struct {
	Items    []UserView `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}

type ListUsersHandler struct {
	users repository.UserRepository
}

func NewListUsersHandler(users repository.UserRepository) *ListUsersHandler {
	return &ListUsersHandler{users: users}
}

func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsers) (UserPage, error) {
	n := q.Normalize()
	rows, total, err := h.users.List(ctx, repository.ListFilter{
		Search:   n.Search,
		Role:     n.Role,
		IsActive: n.IsActive,
		SortBy:   n.SortBy,
		SortDesc: n.SortDesc,
		Page:     n.Page,
		PageSize: n.PageSize,
	})
	if err != nil {
		return UserPage{}, errs.Internal("User.ReadFailed", err)
	}
	return UserPage{Items: toViews(rows), Total: total, Page: n.Page, PageSize: n.PageSize}, nil
}

// SearchUsers

// Searcher is a full-text index over the read model.
type Searcher interface {
	Search(ctx context.Context, text string, size int) ([]repository.UserProjection, error)
}

type SearchUsers struct {
	Query string
	Size  int
}

func (q SearchUsers) size() int {
	switch {
	case q.Size < 1:
		return defaultSearch
	case q.Size > maxSearch:
		return maxSearch
	}
	return q.Size
}

func (q SearchUsers) CacheKey() string {
	return fmt.Sprintf("users:search:q=%s|size=%d", url.QueryEscape(strings.ToLower(strings.TrimSpace(q.Query))), q.size())
}

func (q SearchUsers) LocalTTL() time.Duration       { return 5 * time.Second }
func (q SearchUsers) DistributedTTL() time.Duration { return 30 * time.Second }

type SearchUsersHandler struct {
	searcher Searcher
}

func NewSearchUsersHandler(searcher Searcher) *SearchUsersHandler {
	return &SearchUsersHandler{searcher: searcher}
}

func (h *SearchUsersHandler) Handle(ctx context.Context, q SearchUsers) ([]UserView, error) {
	text := strings.TrimSpace(q.Query)
	if text == "" {
		return nil, errs.List{errs.Validation("q", "Search.QueryRequired", "search query is required")}
	}
	rows, err := h.searcher.Search(ctx, text, q.size())
	if err != nil {
		return nil, errs.Internal("Search.Failed", err)
	}
	return toViews(rows), nil
}
