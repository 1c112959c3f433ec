package command

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// memDB is an in-memory TxRunner. A failing callback restores the state that
// existed before InTx.
type memDB struct {
	streams     map[uuid.UUID][]entity.UserEvent
	projections map[uuid.UUID]repository.UserProjection
	outbox      []repository.Envelope

	saveErr    error
	publishErr error
	commits    int
	rollbacks  int

	// afterLoad runs once GetByID has rehydrated a stream, standing in for
	// a writer that commits in between.
	afterLoad func(id uuid.UUID)
}

func newMemDB() *memDB {
	return &memDB{
		streams:     map[uuid.UUID][]entity.UserEvent{},
		projections: map[uuid.UUID]repository.UserProjection{},
	}
}

func (db *memDB) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	streams := map[uuid.UUID][]entity.UserEvent{}
	for id, evs := range db.streams {
		streams[id] = slices.Clone(evs)
	}
	projections := maps.Clone(db.projections)
	outbox := slices.Clone(db.outbox)

	if err := fn(memTx{db: db}); err != nil {
		db.streams, db.projections, db.outbox = streams, projections, outbox
		db.rollbacks++
		return err
	}
	db.commits++
	return nil
}

func (db *memDB) eventCount() int {
	n := 0
	for _, evs := range db.streams {
		n += len(evs)
	}
	return n
}

type memTx struct{ db *memDB }

func (t memTx) Users() repository.UserRepository        { return memUsers{db: t.db} }
func (t memTx) Outbox() repository.OutboxPublisher      { return memOutbox{db: t.db} }
func (t memTx) Projections() repository.ProjectionStore { return memProjections{db: t.db} }

type memUsers struct{ db *memDB }

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	evs, ok := r.db.streams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u, err := entity.Rehydrate(evs)
	if err == nil && r.db.afterLoad != nil {
		r.db.afterLoad(id)
	}
	return u, err
}

func (r memUsers) Save(_ context.Context, u *entity.User) error {
	if r.db.saveErr != nil {
		return r.db.saveErr
	}
	if len(r.db.streams[u.ID()]) != u.PersistedVersion() {
		return errs.Conflict("User.ConcurrencyConflict", "stream moved")
	}
	r.db.streams[u.ID()] = append(r.db.streams[u.ID()], u.UncommittedEvents()...)
	return nil
}

func (r memUsers) List(context.Context, repository.ListFilter) ([]repository.UserProjection, int, error) {
	return nil, 0, nil
}

func (r memUsers) ExistsByEmail(_ context.Context, email entity.Email) (bool, error) {
	for _, p := range r.db.projections {
		if p.Email == email.Value() {
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) GetTokenInfo(_ context.Context, email entity.Email) (repository.TokenInfo, error) {
	for _, p := range r.db.projections {
		if p.Email == email.Value() {
			return repository.TokenInfo{
				UserID:       p.ID,
				Email:        p.Email,
				Name:         p.Name,
				Role:         entity.RoleFromDB(p.Role),
				PasswordHash: entity.PasswordFromHash(p.PasswordHash),
				IsActive:     p.IsActive,
			}, nil
		}
	}
	return repository.TokenInfo{}, repository.ErrNotFound
}

type memOutbox struct{ db *memDB }

func (o memOutbox) Publish(_ context.Context, envs ...repository.Envelope) error {
	if o.db.publishErr != nil {
		return o.db.publishErr
	}
	o.db.outbox = append(o.db.outbox, envs...)
	return nil
}

type memProjections struct{ db *memDB }

func (p memProjections) Insert(_ context.Context, row repository.UserProjection) error {
	p.db.projections[row.ID] = row
	return nil
}

func (p memProjections) Get(_ context.Context, id uuid.UUID) (repository.UserProjection, error) {
	row, ok := p.db.projections[id]
	if !ok {
		return repository.UserProjection{}, repository.ErrNotFound
	}
	return row, nil
}

func (p memProjections) Update(_ context.Context, row repository.UserProjection) error {
	p.db.projections[row.ID] = row
	return nil
}

type stubIssuer struct {
	claims []repository.IdentityClaims
	err    error
}

func (s *stubIssuer) Create(c repository.IdentityClaims) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.claims = append(s.claims, c)
	return "token-" + c.UserID.String(), nil
}

var errBoom = errors.New("boom")

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
