package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/go-ddd-user-service/internal/application/projection"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

// rebuildCmd replays the event store into an empty read model. With --search
// it also drops the search index and rewinds the search projector, which then
// reindexes on its next poll.
var rebuildCmd = &cobra.Command{
	Use:   "rebuild-projection",
	Short: "Rebuild the user read model from the event store",
	RunE: func(cmd *cobra.Command, args []string) error {
		withSearch, _ := cmd.Flags().GetBool("search")
		batch, _ := cmd.Flags().GetInt("batch")

		ctx := cmd.Context()
		e := newEnv()
		pool, err := e.pool(ctx)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		store := pginfra.NewProjectionStore(pool)
		if err := store.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate projections: %w", err)
		}
		replayer := search.NewProjector(
			pginfra.NewUserRepository(pool, pginfra.NewEventCodec()),
			&startPosition{},
			projection.NewSynchronizer(store, e.logger),
			e.logger,
			search.ProjectorConfig{Name: "rebuild", BatchSize: batch},
		)
		n, err := replayer.CatchUp(ctx)
		if err != nil {
			return fmt.Errorf("replay after %d events: %w", n, err)
		}
		e.logger.WithField("events", n).Info("read model rebuilt")

		if !withSearch {
			return nil
		}
		es, err := helpers.NewESClient(ctx, e.cfg.ESAddrs(), e.cfg.ElasticsearchUser, e.cfg.ElasticsearchPass)
		if err != nil {
			return fmt.Errorf("connect elasticsearch: %w", err)
		}
		if err := search.NewIndex(es, e.cfg.ESUsersIndex).Reset(ctx); err != nil {
			return fmt.Errorf("reset index %s: %w", e.cfg.ESUsersIndex, err)
		}
		if err := pginfra.NewCheckpointStore(pool).Reset(ctx, e.cfg.ProjectorName); err != nil {
			return fmt.Errorf("reset checkpoint %s: %w", e.cfg.ProjectorName, err)
		}
		e.logger.WithFields(logrus.Fields{
			"index":     e.cfg.ESUsersIndex,
			"projector": e.cfg.ProjectorName,
		}).Info("search index reset, projector will reindex")
		return nil
	},
}

// startPosition is an in-memory checkpoint that always starts from the
// beginning of the store.
type startPosition struct{ seq int64 }

func (p *startPosition) Load(context.Context, string) (int64, error) { return p.seq, nil }

func (p *startPosition) Save(_ context.Context, _ string, seq int64) error {
	p.seq = seq
	return nil
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
	rebuildCmd.Flags().Bool("search", false, "also reset the search index and its projector checkpoint")
	rebuildCmd.Flags().Int("batch", 500, "events per replay batch")
}
