package integration

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oksasatya/go-ddd-user-service/internal/application/requestctx"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
)

func lifecycle(t *testing.T) []entity.UserEvent {
	t.Helper()
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	u, err := entity.CreateUser(entity.NewUserParams{
		Name: "Jane Doe", Email: "jane@x.com", Username: "jane", Password: "Aa1!aaaa", Role: "User", At: at,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := u.ChangePassword("Bb2@bbbb", at.Add(time.Minute)); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if err := u.ChangeRole("Admin", at.Add(2*time.Minute)); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	return u.UncommittedEvents()
}

func TestMapperBuildsEnvelopes(t *testing.T) {
	events := lifecycle(t)
	m := NewMapper("user-service", DefaultRegistry())
	md := requestctx.Metadata{CorrelationID: "corr-1", ActorID: "actor-9", IsAuthenticated: true}

	out, err := m.Map(md, "CreateUser", events)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(out) != len(events) {
		t.Fatalf("envelopes: want=%d got=%d", len(events), len(out))
	}
	for i, env := range out {
		e := events[i]
		if env.AggregateID != e.AggregateID() || env.EventType != e.Kind().String() {
			t.Fatalf("envelope %d: got=%+v", i, env)
		}
		if env.CorrelationID != "corr-1" || env.ActorID != "actor-9" || !env.IsAuthenticated {
			t.Fatalf("envelope %d metadata: got=%+v", i, env)
		}
		if want := "user-service.CreateUser." + e.Kind().String(); env.Source != want {
			t.Fatalf("source: want=%s got=%s", want, env.Source)
		}
		if !env.OccurredAt.Equal(e.OccurredAt()) {
			t.Fatalf("occurredAt: want=%v got=%v", e.OccurredAt(), env.OccurredAt)
		}
	}
	if out[0].ID == out[1].ID {
		t.Fatalf("envelope ids must be unique")
	}
}

func TestDefaultRegistryNeverPublishesHashes(t *testing.T) {
	events := lifecycle(t)
	created := events[0].(entity.UserCreated)
	changed := events[1].(entity.UserPasswordChanged)

	out, err := NewMapper("svc", DefaultRegistry()).Map(requestctx.Metadata{}, "h", events)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for _, env := range out {
		body := string(env.Payload)
		if strings.Contains(body, created.PasswordHash.ExposeHash()) || strings.Contains(body, changed.NewHash.ExposeHash()) || strings.Contains(body, "argon2id") {
			t.Fatalf("%s payload leaks a hash: %s", env.EventType, body)
		}
	}

	var p UserRoleChangedPayload
	if err := json.Unmarshal(out[2].Payload, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.NewRole != "Admin" || p.UserID != created.UserID {
		t.Fatalf("role payload: got=%+v", p)
	}
}

func TestMapperSkipsUnregisteredKinds(t *testing.T) {
	events := lifecycle(t)
	reg := Registry{entity.KindUserRoleChanged: DefaultRegistry()[entity.KindUserRoleChanged]}

	out, err := NewMapper("svc", reg).Map(requestctx.Metadata{CorrelationID: "c"}, "ChangeRole", events)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(out) != 1 || out[0].EventType != "UserRoleChanged" {
		t.Fatalf("want only UserRoleChanged, got=%+v", out)
	}
}

func TestMapperConverterFailureIsInternal(t *testing.T) {
	events := lifecycle(t)
	reg := Registry{entity.KindUserCreated: func(entity.UserEvent) (any, error) { return nil, errors.New("nope") }}

	_, err := NewMapper("svc", reg).Map(requestctx.Metadata{}, "CreateUser", events)
	if !errs.HasCode(err, "Outbox.MappingFailed") || errs.KindOf(err) != errs.KindInternal {
		t.Fatalf("want internal Outbox.MappingFailed, got=%v", err)
	}
}

func TestNewMapperPanicsOnNilRegistry(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewMapper("svc", nil)
}
