package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/application/projection"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-projector", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		helpers.Fatal(logger, "failed to connect to postgres", err, nil)
	}
	defer pool.Close()

	es, err := helpers.NewESClient(ctx, cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		helpers.Fatal(logger, "failed to connect to elasticsearch", err, logrus.Fields{"addrs": cfg.ESAddrs()})
	}

	p := search.NewProjector(
		pginfra.NewUserRepository(pool, pginfra.NewEventCodec()),
		pginfra.NewCheckpointStore(pool),
		projection.NewSynchronizer(search.NewIndex(es, cfg.ESUsersIndex), logger),
		logger,
		search.ProjectorConfig{Name: cfg.ProjectorName, BatchSize: cfg.ProjectorBatchSize, Interval: cfg.ProjectorInterval},
	)
	logger.WithFields(logrus.Fields{"index": cfg.ESUsersIndex, "projector": cfg.ProjectorName}).Info("search projector started")
	if err := p.Run(ctx); err != nil {
		helpers.Fatal(logger, "search projector stopped", err, nil)
	}
	logger.Info("search projector exited")
}
