// Package projection keeps the user read model in step with the event stream.
package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// Synchronizer applies user events to a ProjectionStore. Rows record the
// version of the last applied event, so replaying an event is a no-op.
type Synchronizer struct {
	store  repository.ProjectionStore
	logger *logrus.Logger
}

func NewSynchronizer(store repository.ProjectionStore, logger *logrus.Logger) *Synchronizer {
	return &Synchronizer{store: store, logger: logger}
}

// Apply projects events in order and stops at the first store failure.
func (s *Synchronizer) Apply(ctx context.Context, events ...entity.UserEvent) error {
	v := &visitor{ctx: ctx, s: s}
	for _, e := range events {
		if err := e.Accept(v); err != nil {
			return fmt.Errorf("project %s v%d of %s: %w", e.Kind(), e.Version(), e.AggregateID(), err)
		}
	}
	return nil
}

type visitor struct {
	ctx context.Context
	s   *Synchronizer
}

func (v *visitor) VisitUserCreated(e entity.UserCreated) error {
	_, err := v.s.store.Get(v.ctx, e.UserID)
	switch {
	case err == nil:
		v.s.debug(e, "projection already exists")
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	return v.s.store.Insert(v.ctx, repository.UserProjection{
		ID:           e.UserID,
		Name:         e.Name,
		Email:        e.Email.Value(),
		Username:     e.Username,
		PasswordHash: e.PasswordHash.ExposeHash(),
		Role:         e.Role.Value(),
		CreatedAt:    e.CreatedAt(),
		IsActive:     true,
		Version:      e.Version(),
	})
}

func (v *visitor) VisitUserUpdated(e entity.UserUpdated) error {
	return v.patch(e, func(p *repository.UserProjection) {
		p.Name = e.Name
		p.Email = e.Email.Value()
		p.Username = e.Username
	})
}

func (v *visitor) VisitUserPasswordChanged(e entity.UserPasswordChanged) error {
	return v.patch(e, func(p *repository.UserProjection) { p.PasswordHash = e.NewHash.ExposeHash() })
}

func (v *visitor) VisitUserRoleChanged(e entity.UserRoleChanged) error {
	return v.patch(e, func(p *repository.UserProjection) { p.Role = e.NewRole.Value() })
}

func (v *visitor) VisitUserActivated(e entity.UserActivated) error {
	return v.patch(e, func(p *repository.UserProjection) { p.IsActive = true })
}

func (v *visitor) VisitUserDeactivated(e entity.UserDeactivated) error {
	return v.patch(e, func(p *repository.UserProjection) { p.IsActive = false })
}

// patch loads the row, applies fn and stamps updatedAt and version. A missing
// row or an already applied version leaves the store untouched.
func (v *visitor) patch(e entity.UserEvent, fn func(p *repository.UserProjection)) error {
	p, err := v.s.store.Get(v.ctx, e.AggregateID())
	if errors.Is(err, repository.ErrNotFound) {
		v.s.debug(e, "projection missing, event ignored")
		return nil
	}
	if err != nil {
		return err
	}
	if p.Version >= e.Version() {
		v.s.debug(e, "event already projected")
		return nil
	}
	fn(&p)
	at := e.OccurredAt()
	p.UpdatedAt = &at
	p.Version = e.Version()
	return v.s.store.Update(v.ctx, p)
}

func (s *Synchronizer) debug(e entity.UserEvent, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"aggregate_id": e.AggregateID(),
		"event_type":   e.Kind(),
		"version":      e.Version(),
	}).Debug(msg)
}
