package projection

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

type memStore struct {
	rows    map[uuid.UUID]repository.UserProjection
	inserts int
	updates int
	failGet error
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]repository.UserProjection{}}
}

func (m *memStore) Insert(_ context.Context, p repository.UserProjection) error {
	m.inserts++
	m.rows[p.ID] = p
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (repository.UserProjection, error) {
	if m.failGet != nil {
		return repository.UserProjection{}, m.failGet
	}
	p, ok := m.rows[id]
	if !ok {
		return repository.UserProjection{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *memStore) Update(_ context.Context, p repository.UserProjection) error {
	m.updates++
	m.rows[p.ID] = p
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var at = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newUser(t *testing.T) *entity.User {
	t.Helper()
	u, err := entity.CreateUser(entity.NewUserParams{
		Name: "Jane Doe", Email: "jane@x.com", Username: "jane", Password: "Aa1!aaaa", Role: "User", At: at,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestSynchronizerProjectsLifecycle(t *testing.T) {
	u := newUser(t)
	must(t, u.UpdateInfo("Jane Roe", "roe@x.com", "jroe", at.Add(time.Minute)))
	must(t, u.ChangeRole("Moderator", at.Add(2*time.Minute)))
	must(t, u.ChangePassword("Bb2@bbbb", at.Add(3*time.Minute)))
	must(t, u.Deactivate(at.Add(4*time.Minute)))

	store := newMemStore()
	s := NewSynchronizer(store, quietLogger())
	if err := s.Apply(context.Background(), u.UncommittedEvents()...); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	p := store.rows[u.ID()]
	if p.Name != "Jane Roe" || p.Email != "roe@x.com" || p.Username != "jroe" {
		t.Fatalf("info: got=%+v", p)
	}
	if p.Role != "Moderator" || p.IsActive || p.Version != 5 {
		t.Fatalf("role/active/version: got=%+v", p)
	}
	if p.PasswordHash != u.PasswordHash().ExposeHash() {
		t.Fatalf("password hash not projected")
	}
	if p.UpdatedAt == nil || !p.UpdatedAt.Equal(at.Add(4*time.Minute)) {
		t.Fatalf("updatedAt: got=%v", p.UpdatedAt)
	}
	if !p.CreatedAt.Equal(at) {
		t.Fatalf("createdAt: want=%v got=%v", at, p.CreatedAt)
	}
}

func TestSynchronizerIgnoresMissingRow(t *testing.T) {
	u := newUser(t)
	u.MarkEventsCommitted()
	must(t, u.Deactivate(at))

	store := newMemStore()
	if err := NewSynchronizer(store, quietLogger()).Apply(context.Background(), u.UncommittedEvents()...); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if store.inserts != 0 || store.updates != 0 || len(store.rows) != 0 {
		t.Fatalf("store must be untouched, got inserts=%d updates=%d", store.inserts, store.updates)
	}
}

func TestSynchronizerReplayIsIdempotent(t *testing.T) {
	u := newUser(t)
	must(t, u.ChangeRole("Admin", at.Add(time.Minute)))
	events := u.UncommittedEvents()

	store := newMemStore()
	s := NewSynchronizer(store, nil)
	ctx := context.Background()
	if err := s.Apply(ctx, events...); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	first := store.rows[u.ID()]
	if err := s.Apply(ctx, events...); err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if store.inserts != 1 || store.updates != 1 {
		t.Fatalf("writes: want inserts=1 updates=1 got %d/%d", store.inserts, store.updates)
	}
	if store.rows[u.ID()].Version != first.Version {
		t.Fatalf("version moved on replay")
	}
}

func TestSynchronizerPropagatesStoreErrors(t *testing.T) {
	u := newUser(t)
	store := newMemStore()
	store.failGet = errors.New("db down")
	err := NewSynchronizer(store, nil).Apply(context.Background(), u.UncommittedEvents()...)
	if !errors.Is(err, store.failGet) {
		t.Fatalf("want wrapped store error, got=%v", err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
