package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/go-ddd-user-service/internal/application/command"
	"github.com/oksasatya/go-ddd-user-service/internal/application/integration"
	"github.com/oksasatya/go-ddd-user-service/internal/application/requestctx"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

// seedCmd creates a user through the regular command pipeline, so the
// event store, projection and outbox all see it.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a user (an admin by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		email, _ := flags.GetString("email")
		username, _ := flags.GetString("username")
		password, _ := flags.GetString("password")
		role, _ := flags.GetString("role")

		e := newEnv()
		ctx := requestctx.With(cmd.Context(), requestctx.Metadata{CorrelationID: "userctl-seed"})
		pool, err := e.pool(ctx)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		codec := pginfra.NewEventCodec()
		handlers := command.NewHandlers(
			pginfra.NewTxRunner(pool, codec),
			pginfra.NewUserRepository(pool, codec),
			integration.NewMapper(e.cfg.AppName, integration.DefaultRegistry()),
			helpers.NewJWTManager(e.cfg.JWTAccessSecret, e.cfg.AccessTTL),
			e.logger,
		)
		res, err := handlers.CreateUser(ctx, command.CreateUser{
			Name:     name,
			Email:    email,
			Username: username,
			Password: password,
			Role:     role,
		})
		if errs.HasCode(err, "User.EmailAlreadyExists") {
			e.logger.WithField("email", email).Info("user already exists, nothing to seed")
			return nil
		}
		if err != nil {
			return err
		}
		e.logger.WithFields(logrus.Fields{"id": res.ID, "email": res.Email, "role": res.Role}).Info("seeded user")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("name", "Administrator", "display name")
	seedCmd.Flags().String("email", "admin@example.com", "email address")
	seedCmd.Flags().String("username", "admin", "username")
	seedCmd.Flags().String("password", "", "password (required)")
	seedCmd.Flags().String("role", entity.RoleAdmin.Value(), "role: User, Admin or Moderator")
	_ = seedCmd.MarkFlagRequired("password")
}
