package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

const projectionColumns = `id, name, email, username, password_hash, role, created_at, updated_at, is_active, is_deleted, version`

// ProjectionStore is the Postgres read model.
type ProjectionStore struct {
	db dbtx
}

func NewProjectionStore(db dbtx) *ProjectionStore {
	return &ProjectionStore{db: db}
}

func (s *ProjectionStore) Insert(ctx context.Context, p repository.UserProjection) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_projections (`+projectionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Name, p.Email, p.Username, p.PasswordHash, p.Role, p.CreatedAt, p.UpdatedAt, p.IsActive, p.IsDeleted, p.Version)
	return mapError("insert projection", err)
}

func (s *ProjectionStore) Get(ctx context.Context, id uuid.UUID) (repository.UserProjection, error) {
	p, err := scanProjection(s.db.QueryRow(ctx, `SELECT `+projectionColumns+` FROM user_projections WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.UserProjection{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.UserProjection{}, mapError("get projection", err)
	}
	return p, nil
}

func (s *ProjectionStore) Update(ctx context.Context, p repository.UserProjection) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_projections
		SET name = $2, email = $3, username = $4, password_hash = $5, role = $6,
		    updated_at = $7, is_active = $8, is_deleted = $9, version = $10
		WHERE id = $1
	`, p.ID, p.Name, p.Email, p.Username, p.PasswordHash, p.Role, p.UpdatedAt, p.IsActive, p.IsDeleted, p.Version)
	if err != nil {
		return mapError("update projection", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Truncate empties the read model before a rebuild.
func (s *ProjectionStore) Truncate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `TRUNCATE user_projections`)
	return mapError("truncate projections", err)
}

func scanProjection(row pgx.Row) (repository.UserProjection, error) {
	var p repository.UserProjection
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Username, &p.PasswordHash, &p.Role,
		&p.CreatedAt, &p.UpdatedAt, &p.IsActive, &p.IsDeleted, &p.Version)
	if err != nil {
		return repository.UserProjection{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if p.UpdatedAt != nil {
		t := p.UpdatedAt.UTC()
		p.UpdatedAt = &t
	}
	return p, nil
}

var _ repository.ProjectionStore = (*ProjectionStore)(nil)
