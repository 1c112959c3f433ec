package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/application/integration"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	mailtpl "github.com/oksasatya/go-ddd-user-service/pkg/mailer/templates"
)

type sent struct {
	to, subject, text string
}

type spySender struct {
	mails []sent
	err   error
}

func (s *spySender) Send(_ context.Context, to, subject, text, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.mails = append(s.mails, sent{to: to, subject: subject, text: text})
	return nil
}

type users map[uuid.UUID]repository.UserProjection

func (u users) Insert(context.Context, repository.UserProjection) error { return nil }
func (u users) Update(context.Context, repository.UserProjection) error { return nil }

func (u users) Get(_ context.Context, id uuid.UUID) (repository.UserProjection, error) {
	p, ok := u[id]
	if !ok {
		return repository.UserProjection{}, repository.ErrNotFound
	}
	return p, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func envelope(t *testing.T, kind string, id uuid.UUID, payload any) repository.Envelope {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return repository.Envelope{ID: uuid.New(), AggregateID: id, EventType: kind, Payload: b}
}

var at = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNotifierWelcomeUsesPayloadRecipient(t *testing.T) {
	s := &spySender{}
	n := NewNotifier(users{}, s, mailtpl.Brand{AppName: "Users"}, quietLogger())
	id := uuid.New()
	env := envelope(t, "UserCreated", id, integration.UserCreatedPayload{UserID: id, Name: "Jane", Email: "jane@x.com", CreatedAt: at})

	if err := n.Handle(context.Background(), env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(s.mails) != 1 || s.mails[0].to != "jane@x.com" || !strings.HasPrefix(s.mails[0].subject, "Welcome") {
		t.Fatalf("mails: %+v", s.mails)
	}
}

func TestNotifierPasswordChangedLooksUpRecipient(t *testing.T) {
	id := uuid.New()
	s := &spySender{}
	n := NewNotifier(users{id: {ID: id, Name: "Jane", Email: "jane@x.com"}}, s, mailtpl.Brand{}, quietLogger())
	env := envelope(t, "UserPasswordChanged", id, integration.UserPasswordChangedPayload{UserID: id, ChangedAt: at})

	if err := n.Handle(context.Background(), env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(s.mails) != 1 || s.mails[0].to != "jane@x.com" {
		t.Fatalf("mails: %+v", s.mails)
	}
	if !strings.Contains(s.mails[0].text, "01 June 2025, 12:00 UTC") {
		t.Fatalf("change time missing: %s", s.mails[0].text)
	}
}

func TestNotifierSkipsUnknownUserAndKinds(t *testing.T) {
	s := &spySender{}
	n := NewNotifier(users{}, s, mailtpl.Brand{}, quietLogger())
	id := uuid.New()
	if err := n.Handle(context.Background(), envelope(t, "UserActivated", id, integration.UserStatusPayload{UserID: id, IsActive: true})); err != nil {
		t.Fatalf("missing user: %v", err)
	}
	if err := n.Handle(context.Background(), envelope(t, "SomethingElse", id, map[string]string{})); err != nil {
		t.Fatalf("unknown kind: %v", err)
	}
	if len(s.mails) != 0 {
		t.Fatalf("nothing should be sent, got %+v", s.mails)
	}
}

func TestNotifierErrors(t *testing.T) {
	id := uuid.New()
	s := &spySender{err: errors.New("mailgun 503")}
	n := NewNotifier(users{id: {ID: id, Email: "a@x.com"}}, s, mailtpl.Brand{}, quietLogger())

	env := envelope(t, "UserRoleChanged", id, integration.UserRoleChangedPayload{UserID: id, NewRole: "Admin"})
	if err := n.Handle(context.Background(), env); err == nil {
		t.Fatalf("send failure must be returned for retry")
	}

	bad := repository.Envelope{AggregateID: id, EventType: "UserCreated", Payload: json.RawMessage(`"nope"`)}
	if err := n.Handle(context.Background(), bad); !errors.Is(err, ErrMalformed) {
		t.Fatalf("want ErrMalformed got %v", err)
	}
}
