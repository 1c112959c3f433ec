package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

func newTestIndex(t *testing.T, h http.HandlerFunc) *Index {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return NewIndex(es, "users")
}

func TestIndexGetMissingIsNotFound(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"found":false}`)
	})
	_, err := x.Get(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound got %v", err)
	}
}

func TestIndexPutOmitsPasswordHash(t *testing.T) {
	var body string
	var path string
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body, path = string(b), r.URL.Path
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})
	p := repository.UserProjection{ID: uuid.New(), Name: "Jane", Email: "j@x.com", PasswordHash: "secret-hash", Version: 1}
	if err := x.Insert(context.Background(), p); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !strings.HasSuffix(path, "/users/_doc/"+p.ID.String()) {
		t.Fatalf("path: %s", path)
	}
	if strings.Contains(body, "secret-hash") {
		t.Fatalf("document leaked the password hash: %s", body)
	}
}

func TestIndexSearchDecodesHits(t *testing.T) {
	id := uuid.New()
	var query map[string]any
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&query)
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_id":"`+id.String()+`","_source":{"id":"`+id.String()+`","name":"Jane","email":"j@x.com","isActive":true,"version":3}}]}}`)
	})
	rows, err := x.Search(context.Background(), "jane", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != id || rows[0].Version != 3 {
		t.Fatalf("rows: %+v", rows)
	}
	if query["size"] != float64(5) {
		t.Fatalf("size: %v", query["size"])
	}
}

func TestIndexSearchReportsServerErrors(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	})
	if _, err := x.Search(context.Background(), "jane", 5); err == nil {
		t.Fatalf("server error must surface")
	}
}
