package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/application/integration"
	"github.com/oksasatya/go-ddd-user-service/internal/application/projection"
	"github.com/oksasatya/go-ddd-user-service/internal/application/requestctx"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

var errInvalidCredentials = errs.Unauthorized("Auth.InvalidCredentials", "invalid email or password")

// Handlers executes user commands. It keeps no per-request state; aggregates
// are loaded on every call.
type Handlers struct {
	tx     repository.TxRunner
	users  repository.UserRepository
	mapper *integration.Mapper
	tokens repository.TokenIssuer
	logger *logrus.Logger

	// Now stamps events. Tests replace it.
	Now func() time.Time
}

// NewHandlers wires the command side. users serves reads outside a
// transaction (login).
func NewHandlers(tx repository.TxRunner, users repository.UserRepository, mapper *integration.Mapper, tokens repository.TokenIssuer, logger *logrus.Logger) *Handlers {
	return &Handlers{
		tx:     tx,
		users:  users,
		mapper: mapper,
		tokens: tokens,
		logger: logger,
		Now:    time.Now,
	}
}

func (h *Handlers) CreateUser(ctx context.Context, cmd CreateUser) (UserResponse, error) {
	return h.execute(ctx, "CreateUser", func(tx repository.Tx) (*entity.User, error) {
		role := cmd.Role
		if strings.TrimSpace(role) == "" {
			role = entity.RoleUser.Value()
		}
		u, err := entity.CreateUser(entity.NewUserParams{
			Name:     cmd.Name,
			Email:    cmd.Email,
			Username: cmd.Username,
			Password: cmd.Password,
			Role:     role,
			At:       h.Now(),
		})
		if err != nil {
			return nil, err
		}
		taken, err := tx.Users().ExistsByEmail(ctx, u.Email())
		if err != nil {
			return nil, errs.Internal("User.LookupFailed", err)
		}
		if taken {
			return nil, errs.Conflict("User.EmailAlreadyExists", "a user with this email already exists")
		}
		return u, nil
	})
}

func (h *Handlers) UpdateUser(ctx context.Context, cmd UpdateUser) (UserResponse, error) {
	return h.mutate(ctx, "UpdateUser", cmd.ID, func(tx repository.Tx, u *entity.User) error {
		previous := u.Email()
		if err := u.UpdateInfo(cmd.Name, cmd.Email, cmd.Username, h.Now()); err != nil {
			return err
		}
		if u.Email().Equals(previous) {
			return nil
		}
		taken, err := tx.Users().ExistsByEmail(ctx, u.Email())
		if err != nil {
			return errs.Internal("User.LookupFailed", err)
		}
		if taken {
			return errs.Conflict("User.EmailAlreadyExists", "a user with this email already exists")
		}
		return nil
	})
}

// ChangePassword requires the current password before accepting a new one.
func (h *Handlers) ChangePassword(ctx context.Context, cmd ChangePassword) (UserResponse, error) {
	return h.mutate(ctx, "ChangePassword", cmd.ID, func(_ repository.Tx, u *entity.User) error {
		if !u.PasswordHash().Verify(cmd.CurrentPassword) {
			return errInvalidCredentials
		}
		return u.ChangePassword(cmd.NewPassword, h.Now())
	})
}

func (h *Handlers) ChangeRole(ctx context.Context, cmd ChangeRole) (UserResponse, error) {
	return h.mutate(ctx, "ChangeRole", cmd.ID, func(_ repository.Tx, u *entity.User) error {
		return u.ChangeRole(cmd.Role, h.Now())
	})
}

func (h *Handlers) ActivateUser(ctx context.Context, cmd ActivateUser) (UserResponse, error) {
	return h.mutate(ctx, "ActivateUser", cmd.ID, func(_ repository.Tx, u *entity.User) error {
		return u.Activate(h.Now())
	})
}

func (h *Handlers) DeactivateUser(ctx context.Context, cmd DeactivateUser) (UserResponse, error) {
	return h.mutate(ctx, "DeactivateUser", cmd.ID, func(_ repository.Tx, u *entity.User) error {
		return u.Deactivate(h.Now())
	})
}

// Login checks credentials against the read model and issues an access
// token. Every credential failure yields the same error.
func (h *Handlers) Login(ctx context.Context, cmd Login) (LoginResponse, error) {
	email, err := entity.NewEmail(cmd.Email)
	if err != nil {
		return LoginResponse{}, errInvalidCredentials
	}
	info, err := h.users.GetTokenInfo(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResponse{}, errInvalidCredentials
	}
	if err != nil {
		return LoginResponse{}, errs.Internal("User.LookupFailed", err)
	}
	if !info.IsActive || !info.PasswordHash.Verify(cmd.Password) {
		h.logger.WithField("user_id", info.UserID).Warn("login rejected")
		return LoginResponse{}, errInvalidCredentials
	}
	token, err := h.tokens.Create(repository.IdentityClaims{UserID: info.UserID, Email: info.Email, Role: info.Role})
	if err != nil {
		h.logger.WithError(err).WithField("user_id", info.UserID).Error("issue token failed")
		return LoginResponse{}, errs.Internal("Auth.TokenIssueFailed", err)
	}
	return LoginResponse{
		AccessToken: token,
		UserID:      info.UserID,
		Email:       info.Email,
		Name:        info.Name,
		Role:        info.Role.Value(),
	}, nil
}

func (h *Handlers) mutate(ctx context.Context, name string, id uuid.UUID, fn func(tx repository.Tx, u *entity.User) error) (UserResponse, error) {
	return h.execute(ctx, name, func(tx repository.Tx) (*entity.User, error) {
		u, err := tx.Users().GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("User.NotFound", "user not found")
		}
		if err != nil {
			return nil, err
		}
		if err := fn(tx, u); err != nil {
			return nil, err
		}
		return u, nil
	})
}

// execute runs produce (load plus exactly one mutation) and persists its
// outcome. Any failure rolls the whole transaction back.
func (h *Handlers) execute(ctx context.Context, name string, produce func(tx repository.Tx) (*entity.User, error)) (UserResponse, error) {
	md := requestctx.From(ctx)
	var u *entity.User
	err := h.tx.InTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = produce(tx)
		if err != nil {
			return err
		}
		events := u.UncommittedEvents()
		if err := tx.Users().Save(ctx, u); err != nil {
			return err
		}
		if err := projection.NewSynchronizer(tx.Projections(), h.logger).Apply(ctx, events...); err != nil {
			return errs.Internal("Projection.SyncFailed", err)
		}
		envelopes, err := h.mapper.Map(md, name, events)
		if err != nil {
			return err
		}
		if err := tx.Outbox().Publish(ctx, envelopes...); err != nil {
			return errs.Internal("Outbox.PublishFailed", err)
		}
		return nil
	})
	log := h.logger.WithFields(logrus.Fields{"command": name, "correlation_id": md.CorrelationID})
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			log.WithError(err).Error("command failed")
		} else {
			log.WithField("codes", errs.Codes(err)).Info("command rejected")
		}
		return UserResponse{}, err
	}
	u.MarkEventsCommitted()
	log.WithFields(logrus.Fields{"aggregate_id": u.ID(), "version": u.Version()}).Info("command committed")
	return toResponse(u), nil
}
