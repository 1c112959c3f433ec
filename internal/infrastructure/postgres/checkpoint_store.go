package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CheckpointStore keeps the last projected event seq per projector name.
type CheckpointStore struct {
	db dbtx
}

func NewCheckpointStore(db dbtx) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Load returns 0 for a projector that has never saved a checkpoint.
func (s *CheckpointStore) Load(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := s.db.QueryRow(ctx, `SELECT seq FROM projector_checkpoints WHERE name = $1`, name).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, mapError("load checkpoint", err)
	}
	return seq, nil
}

func (s *CheckpointStore) Save(ctx context.Context, name string, seq int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO projector_checkpoints (name, seq, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET seq = EXCLUDED.seq, updated_at = now()
	`, name, seq)
	return mapError("save checkpoint", err)
}

// Reset forgets a projector's position so it replays from the start.
func (s *CheckpointStore) Reset(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM projector_checkpoints WHERE name = $1`, name)
	return mapError("reset checkpoint", err)
}
