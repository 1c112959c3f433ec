package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type pingModule struct{}

func (pingModule) Register(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRegistryMountsModulesUnderAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(gin.New())
	calls := 0
	reg.Use(func(c *gin.Context) {
		calls++
		c.Next()
	})
	reg.Add(pingModule{})
	reg.RegisterAll()

	if w := get(reg.Engine, "/api/ping"); w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("module route: code=%d body=%q", w.Code, w.Body.String())
	}
	if calls != 1 {
		t.Fatalf("middleware calls: want=1 got=%d", calls)
	}
	if w := get(reg.Engine, "/api/healthz"); w.Code != http.StatusOK {
		t.Fatalf("healthz without checks: want=200 got=%d", w.Code)
	}
	if calls != 1 {
		t.Fatalf("healthz must bypass the shared middlewares")
	}
}

func TestRegistryHealthReportsFailingChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(gin.New())
	reg.Check("postgres", func(context.Context) error { return nil })
	reg.Check("redis", func(context.Context) error { return errors.New("connection refused") })
	reg.RegisterAll()

	w := get(reg.Engine, "/api/healthz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=503 got=%d", w.Code)
	}
	var body struct {
		Error map[string]string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error["postgres"] != "ok" || body.Error["redis"] != "connection refused" {
		t.Fatalf("checks: %v", body.Error)
	}
}
