package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-outbox", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		helpers.Fatal(logger, "failed to connect to postgres", err, nil)
	}
	defer pool.Close()

	transport, err := newTransport(cfg, logger)
	if err != nil {
		helpers.Fatal(logger, "failed to init outbox transport", err, logrus.Fields{"transport": cfg.OutboxTransport})
	}
	defer func() { _ = transport.Close() }()

	d := messaging.NewDispatcher(pginfra.NewOutboxRelay(pool), transport, logger, messaging.DispatcherConfig{
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
		Interval:    cfg.OutboxInterval,
		Concurrency: cfg.OutboxConcurrency,
	})
	logger.WithField("transport", cfg.OutboxTransport).Info("outbox dispatcher started")
	if err := d.Run(ctx); err != nil {
		helpers.Fatal(logger, "outbox dispatcher stopped", err, nil)
	}
	logger.Info("outbox dispatcher exited")
}

func newTransport(cfg *config.Config, logger *logrus.Logger) (messaging.Transport, error) {
	switch cfg.OutboxTransport {
	case "kafka":
		return messaging.NewKafkaTransport(cfg.KafkaBrokerList(), cfg.KafkaTopic, logger), nil
	default:
		return messaging.NewRabbitTransport(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue, 0)
	}
}
