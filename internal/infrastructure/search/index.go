// Package search maintains the Elasticsearch copy of the user read model.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

const requestTimeout = 3 * time.Second

// Index stores user projections as documents keyed by user id. It serves as
// the ProjectionStore of the catch-up projector and as the query Searcher.
// Password hashes are never indexed.
type Index struct {
	es    *elasticsearch.Client
	index string
}

func NewIndex(es *elasticsearch.Client, index string) *Index {
	return &Index{es: es, index: index}
}

func (x *Index) Insert(ctx context.Context, p repository.UserProjection) error {
	return x.put(ctx, p)
}

func (x *Index) Update(ctx context.Context, p repository.UserProjection) error {
	return x.put(ctx, p)
}

func (x *Index) put(ctx context.Context, p repository.UserProjection) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode user document %s: %w", p.ID, err)
	}
	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: p.ID.String(),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("index user %s: %w", p.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseError("index user "+p.ID.String(), res)
	}
	return nil
}

func (x *Index) Get(ctx context.Context, id uuid.UUID) (repository.UserProjection, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.GetRequest{Index: x.index, DocumentID: id.String()}.Do(c, x.es)
	if err != nil {
		return repository.UserProjection{}, fmt.Errorf("get user %s: %w", id, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusNotFound {
		return repository.UserProjection{}, repository.ErrNotFound
	}
	if res.IsError() {
		return repository.UserProjection{}, responseError("get user "+id.String(), res)
	}
	var doc struct {
		Source repository.UserProjection `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return repository.UserProjection{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	return doc.Source, nil
}

// Search runs a multi_match over email and name, email weighted higher.
// Deleted rows are filtered out.
func (x *Index) Search(ctx context.Context, text string, size int) ([]repository.UserProjection, error) {
	b, err := json.Marshal(searchBody(text, size))
	if err != nil {
		return nil, err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusNotFound {
		// index not created yet: nothing projected
		return []repository.UserProjection{}, nil
	}
	if res.IsError() {
		return nil, responseError("search users", res)
	}
	return decodeHits(res.Body)
}

// Reset drops the index so a rebuild starts empty.
func (x *Index) Reset(ctx context.Context) error {
	res, err := x.es.Indices.Delete([]string{x.index}, x.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete index %s: %w", x.index, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index "+x.index, res)
	}
	return nil
}

func searchBody(text string, size int) map[string]any {
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  text,
						"fields": []string{"email^2", "name", "username"},
					},
				},
				"must_not": map[string]any{
					"term": map[string]any{"isDeleted": true},
				},
			},
		},
	}
}

func decodeHits(r io.Reader) ([]repository.UserProjection, error) {
	var parsed struct {
		Hits struct {
			Hits []struct {
				Source repository.UserProjection `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]repository.UserProjection, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), bytes.TrimSpace(body))
}

var _ repository.ProjectionStore = (*Index)(nil)
