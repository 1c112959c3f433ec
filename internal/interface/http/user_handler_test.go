package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/application/command"
	"github.com/oksasatya/go-ddd-user-service/internal/application/query"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/pkg/validation"
)

type fakeCommands struct {
	err     error
	created command.CreateUser
	pwd     command.ChangePassword
	calls   int
}

func (f *fakeCommands) result(id uuid.UUID) (command.UserResponse, error) {
	f.calls++
	if f.err != nil {
		return command.UserResponse{}, f.err
	}
	return command.UserResponse{ID: id, Name: "Jane", Version: 1}, nil
}

func (f *fakeCommands) CreateUser(_ context.Context, cmd command.CreateUser) (command.UserResponse, error) {
	f.created = cmd
	return f.result(uuid.New())
}

func (f *fakeCommands) UpdateUser(_ context.Context, cmd command.UpdateUser) (command.UserResponse, error) {
	return f.result(cmd.ID)
}

func (f *fakeCommands) ChangePassword(_ context.Context, cmd command.ChangePassword) (command.UserResponse, error) {
	f.pwd = cmd
	return f.result(cmd.ID)
}

func (f *fakeCommands) ChangeRole(_ context.Context, cmd command.ChangeRole) (command.UserResponse, error) {
	return f.result(cmd.ID)
}

func (f *fakeCommands) ActivateUser(_ context.Context, cmd command.ActivateUser) (command.UserResponse, error) {
	return f.result(cmd.ID)
}

func (f *fakeCommands) DeactivateUser(_ context.Context, cmd command.DeactivateUser) (command.UserResponse, error) {
	return f.result(cmd.ID)
}

func (f *fakeCommands) Login(_ context.Context, cmd command.Login) (command.LoginResponse, error) {
	f.calls++
	if f.err != nil {
		return command.LoginResponse{}, f.err
	}
	return command.LoginResponse{AccessToken: "tok", Email: cmd.Email}, nil
}

type testAPI struct {
	engine   *gin.Engine
	commands *fakeCommands
	lastList query.ListUsers
}

func newTestAPI(queryErr error) *testAPI {
	gin.SetMode(gin.TestMode)
	api := &testAPI{commands: &fakeCommands{}}
	queries := UserQueries{
		ByID: query.HandlerFunc[query.GetUserByID, query.UserView](func(_ context.Context, q query.GetUserByID) (query.UserView, error) {
			if queryErr != nil {
				return query.UserView{}, queryErr
			}
			return query.UserView{ID: q.ID, Name: "Jane"}, nil
		}),
		List: query.HandlerFunc[query.ListUsers, query.UserPage](func(_ context.Context, q query.ListUsers) (query.UserPage, error) {
			api.lastList = q
			return query.UserPage{Items: []query.UserView{{Name: "Jane"}}, Total: 1, Page: 1, PageSize: 20}, nil
		}),
		Search: query.HandlerFunc[query.SearchUsers, []query.UserView](func(_ context.Context, q query.SearchUsers) ([]query.UserView, error) {
			return []query.UserView{{Name: q.Query}}, nil
		}),
	}
	h := NewUserHandler(api.commands, queries, validation.New(validation.DefaultConfig()), nil)
	auth := NewAuthHandler(h)

	r := gin.New()
	r.POST("/api/users", h.Create)
	r.GET("/api/users", h.List)
	r.GET("/api/users/search", h.Search)
	r.GET("/api/users/:id", h.Get)
	r.PUT("/api/users/:id", h.Update)
	r.PUT("/api/users/:id/password", h.ChangePassword)
	r.POST("/api/users/:id/deactivate", h.Deactivate)
	r.POST("/api/auth/login", auth.Login)
	api.engine = r
	return api
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Codes   []string          `json:"codes"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (a *testAPI) call(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
	}
	return w.Code, env
}

func TestCreateUser(t *testing.T) {
	api := newTestAPI(nil)
	code, env := api.call(t, http.MethodPost, "/api/users", `{"name":"Jane","email":"j@x.com","username":"jane","password":"Aa1!aaaa"}`)
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("want=201 got=%d %+v", code, env)
	}
	if api.commands.created.Email != "j@x.com" || api.commands.created.Role != "" {
		t.Fatalf("command: %+v", api.commands.created)
	}
}

func TestCreateUserIgnoresRequestedRole(t *testing.T) {
	api := newTestAPI(nil)
	code, _ := api.call(t, http.MethodPost, "/api/users", `{"name":"Eve","email":"eve@x.com","username":"eve","password":"Aa1!aaaa","role":"Admin"}`)
	if code != http.StatusCreated {
		t.Fatalf("want=201 got=%d", code)
	}
	if got := api.commands.created.Role; got != "" {
		t.Fatalf("registration must not choose a role: want=\"\" got=%q", got)
	}
}

func TestCreateUserValidationDetails(t *testing.T) {
	api := newTestAPI(nil)
	code, env := api.call(t, http.MethodPost, "/api/users", `{"email":"j@x.com","password":"short"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d", code)
	}
	for _, field := range []string{"name", "username", "password"} {
		if env.Error.Details[field] == "" {
			t.Fatalf("missing detail for %s: %v", field, env.Error.Details)
		}
	}
	if api.commands.calls != 0 {
		t.Fatalf("invalid request reached the command side")
	}

	code, env = api.call(t, http.MethodPost, "/api/users", `{"name":`)
	if code != http.StatusBadRequest || env.Error.Details["payload"] != "invalid json" {
		t.Fatalf("malformed json: %d %+v", code, env.Error)
	}
}

func TestCommandErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.List{errs.Validation("name", "Name.Required", "name is required")}, http.StatusBadRequest},
		{errs.NotFound("User.NotFound", "user not found"), http.StatusNotFound},
		{errs.Conflict("User.AlreadyInactive", "already inactive"), http.StatusConflict},
		{errs.Internal("Outbox.PublishFailed", errors.New("x")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		api := newTestAPI(nil)
		api.commands.err = tc.err
		code, env := api.call(t, http.MethodPost, "/api/users/"+uuid.NewString()+"/deactivate", "")
		if code != tc.want {
			t.Fatalf("%v: want=%d got=%d", tc.err, tc.want, code)
		}
		if len(env.Error.Codes) == 0 || env.Error.Codes[0] != errs.Codes(tc.err)[0] {
			t.Fatalf("codes: %v", env.Error.Codes)
		}
	}
}

func TestInvalidPathID(t *testing.T) {
	api := newTestAPI(nil)
	code, env := api.call(t, http.MethodGet, "/api/users/not-a-uuid", "")
	if code != http.StatusBadRequest || env.Error.Details["id"] == "" {
		t.Fatalf("want=400 with id detail, got=%d %+v", code, env.Error)
	}
}

func TestGetUserNotFound(t *testing.T) {
	api := newTestAPI(errs.NotFound("User.NotFound", "user not found"))
	code, _ := api.call(t, http.MethodGet, "/api/users/"+uuid.NewString(), "")
	if code != http.StatusNotFound {
		t.Fatalf("want=404 got=%d", code)
	}
}

func TestListUsersParsesFilters(t *testing.T) {
	api := newTestAPI(nil)
	code, env := api.call(t, http.MethodGet, "/api/users?search=ja&role=Admin&is_active=false&sort_by=name&order=desc&page=2&page_size=5", "")
	if code != http.StatusOK {
		t.Fatalf("want=200 got=%d", code)
	}
	q := api.lastList
	if q.Search != "ja" || q.Role != "Admin" || q.IsActive == nil || *q.IsActive || !q.SortDesc || q.Page != 2 || q.PageSize != 5 {
		t.Fatalf("query: %+v", q)
	}
	if env.Meta["total"] != float64(1) {
		t.Fatalf("meta: %v", env.Meta)
	}

	code, _ = api.call(t, http.MethodGet, "/api/users?is_active=maybe", "")
	if code != http.StatusBadRequest {
		t.Fatalf("bad filter: want=400 got=%d", code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	api := newTestAPI(nil)
	if code, _ := api.call(t, http.MethodGet, "/api/users/search", ""); code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d", code)
	}
	if code, _ := api.call(t, http.MethodGet, "/api/users/search?q=jane", ""); code != http.StatusOK {
		t.Fatalf("want=200 got=%d", code)
	}
}

func TestChangePasswordMustDiffer(t *testing.T) {
	api := newTestAPI(nil)
	id := uuid.NewString()
	code, _ := api.call(t, http.MethodPut, "/api/users/"+id+"/password", `{"current_password":"Aa1!aaaa","new_password":"Aa1!aaaa"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("same password: want=400 got=%d", code)
	}
	code, _ = api.call(t, http.MethodPut, "/api/users/"+id+"/password", `{"current_password":"Aa1!aaaa","new_password":"Bb2@bbbb"}`)
	if code != http.StatusOK || api.commands.pwd.NewPassword != "Bb2@bbbb" {
		t.Fatalf("change: %d %+v", code, api.commands.pwd)
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(nil)
	code, env := api.call(t, http.MethodPost, "/api/auth/login", `{"email":"j@x.com","password":"Aa1!aaaa"}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), "tok") {
		t.Fatalf("login: %d %s", code, env.Data)
	}

	api.commands.err = errs.Unauthorized("Auth.InvalidCredentials", "invalid email or password")
	code, _ = api.call(t, http.MethodPost, "/api/auth/login", `{"email":"j@x.com","password":"nope"}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("bad credentials: want=401 got=%d", code)
	}
}
