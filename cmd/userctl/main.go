// Command userctl runs maintenance tasks against the user service database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/go-ddd-user-service/config"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "userctl",
	Short:         "Maintenance commands for the user service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("userctl failed")
		stop()
		os.Exit(1)
	}
}

// env is what every subcommand needs: config, logger and (lazily) a pool.
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func newEnv() env {
	cfg := config.Load()
	return env{cfg: cfg, logger: helpers.NewLogger(cfg.AppName+"-ctl", cfg.Env)}
}

func (e env) pool(ctx context.Context) (*pgxpool.Pool, error) {
	return pginfra.NewPool(ctx, e.cfg.PostgresDSN(), e.cfg.DBMaxConns, e.cfg.DBMinConns, e.cfg.DBMaxConnLife)
}
