// Package notification turns published user events into emails.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/application/integration"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-user-service/pkg/mailer/templates"
)

// Notifier sends a welcome mail on registration and a security notice on
// every later account change. Payloads without a recipient are completed
// from the read model.
type Notifier struct {
	users  repository.ProjectionStore
	sender mailer.Sender
	brand  mailtpl.Brand
	logger *logrus.Logger
}

func NewNotifier(users repository.ProjectionStore, sender mailer.Sender, brand mailtpl.Brand, logger *logrus.Logger) *Notifier {
	return &Notifier{users: users, sender: sender, brand: brand, logger: logger}
}

// Handle renders and sends the mail for env. Event types without a mail and
// users that no longer exist are acknowledged without sending. A returned
// error means the delivery should be retried.
func (n *Notifier) Handle(ctx context.Context, env repository.Envelope) error {
	name, data, ok, err := n.compose(ctx, env)
	if err != nil || !ok {
		return err
	}
	subject, text, html, err := mailtpl.Render(name, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := n.sender.Send(ctx, data.Email, subject, text, html); err != nil {
		return fmt.Errorf("send %s to %s: %w", name, env.AggregateID, err)
	}
	n.logger.WithFields(logrus.Fields{
		"event_type":     env.EventType,
		"aggregate_id":   env.AggregateID,
		"correlation_id": env.CorrelationID,
		"template":       name,
	}).Info("notification sent")
	return nil
}

func (n *Notifier) compose(ctx context.Context, env repository.Envelope) (string, mailtpl.EmailData, bool, error) {
	switch entity.EventKind(env.EventType) {
	case entity.KindUserCreated:
		var p integration.UserCreatedPayload
		if err := decode(env, &p); err != nil {
			return "", mailtpl.EmailData{}, false, err
		}
		return mailtpl.Welcome, mailtpl.NewEmailData(n.brand, p.Name, p.Email, p.CreatedAt), true, nil

	case entity.KindUserUpdated:
		var p integration.UserUpdatedPayload
		if err := decode(env, &p); err != nil {
			return "", mailtpl.EmailData{}, false, err
		}
		d := mailtpl.NewEmailData(n.brand, p.Name, p.Email, p.UpdatedAt)
		d.Changes = map[string]string{"name": p.Name, "email": p.Email, "username": p.Username}
		return mailtpl.ProfileUpdated, d, true, nil

	case entity.KindUserPasswordChanged:
		var p integration.UserPasswordChangedPayload
		if err := decode(env, &p); err != nil {
			return "", mailtpl.EmailData{}, false, err
		}
		d, ok, err := n.recipient(ctx, p.UserID, env)
		if !ok || err != nil {
			return "", d, false, err
		}
		d.Time = mailtpl.FormatTime(p.ChangedAt)
		return mailtpl.PasswordChanged, d, true, nil

	case entity.KindUserRoleChanged:
		var p integration.UserRoleChangedPayload
		if err := decode(env, &p); err != nil {
			return "", mailtpl.EmailData{}, false, err
		}
		d, ok, err := n.recipient(ctx, p.UserID, env)
		if !ok || err != nil {
			return "", d, false, err
		}
		d.Role = p.NewRole
		d.Time = mailtpl.FormatTime(p.ChangedAt)
		return mailtpl.RoleChanged, d, true, nil

	case entity.KindUserActivated, entity.KindUserDeactivated:
		var p integration.UserStatusPayload
		if err := decode(env, &p); err != nil {
			return "", mailtpl.EmailData{}, false, err
		}
		d, ok, err := n.recipient(ctx, p.UserID, env)
		if !ok || err != nil {
			return "", d, false, err
		}
		d.Active = p.IsActive
		d.Time = mailtpl.FormatTime(p.At)
		return mailtpl.AccountStatus, d, true, nil
	}
	return "", mailtpl.EmailData{}, false, nil
}

func (n *Notifier) recipient(ctx context.Context, id uuid.UUID, env repository.Envelope) (mailtpl.EmailData, bool, error) {
	p, err := n.users.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		n.logger.WithFields(logrus.Fields{
			"event_type":   env.EventType,
			"aggregate_id": id,
		}).Warn("notification skipped: user not in read model")
		return mailtpl.EmailData{}, false, nil
	}
	if err != nil {
		return mailtpl.EmailData{}, false, fmt.Errorf("load recipient %s: %w", id, err)
	}
	d := mailtpl.NewEmailData(n.brand, p.Name, p.Email, p.CreatedAt)
	return d, true, nil
}

// decode failures are permanent; they are logged by the caller and dropped.
func decode(env repository.Envelope, dest any) error {
	if err := json.Unmarshal(env.Payload, dest); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.EventType, err)
	}
	return nil
}

// ErrMalformed marks an envelope whose payload cannot be decoded.
var ErrMalformed = errors.New("malformed payload")
