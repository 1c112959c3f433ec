package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/application/notification"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-user-service/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email", cfg.Env)

	var sender mailer.Sender = mailer.Discard{}
	if cfg.MailSendEnabled {
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			helpers.Fatal(logger, "mailgun not configured", errors.New("MAILGUN_DOMAIN, MAILGUN_API_KEY and MAILGUN_SENDER are required"), nil)
		}
		sender = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	} else {
		logger.Warn("MAIL_SEND_ENABLED=false; events are consumed but no emails are sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		helpers.Fatal(logger, "failed to connect to postgres", err, nil)
	}
	defer pool.Close()

	consumer, err := messaging.NewRabbitTransport(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue, cfg.RabbitMQPrefetch)
	if err != nil {
		helpers.Fatal(logger, "failed to connect to rabbitmq", err, logrus.Fields{"queue": cfg.RabbitMQEventsQueue})
	}
	defer func() { _ = consumer.Close() }()

	notifier := notification.NewNotifier(
		pginfra.NewProjectionStore(pool),
		sender,
		mailtpl.Brand{AppName: cfg.AppName, CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL},
		logger,
	)

	logger.WithField("queue", cfg.RabbitMQEventsQueue).Info("email worker started")
	err = consumer.Consume(ctx, cfg.AppName+"-email-worker", func(ctx context.Context, env repository.Envelope) error {
		err := notifier.Handle(ctx, env)
		if errors.Is(err, notification.ErrMalformed) {
			logger.WithFields(logrus.Fields{
				"message_id": env.ID,
				"event_type": env.EventType,
			}).WithError(err).Warn("dropping malformed event")
			return nil
		}
		if err != nil {
			logger.WithField("message_id", env.ID).WithError(err).Error("notification failed, requeueing")
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		helpers.Fatal(logger, "email worker stopped", err, nil)
	}
	logger.Info("email worker exited")
}
