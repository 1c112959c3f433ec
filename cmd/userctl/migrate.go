package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := newEnv()
		if err := pginfra.RunMigrations(e.cfg.PostgresDSN(), e.cfg.MigrationsDir, e.logger); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps <= 0 {
			return fmt.Errorf("--steps must be positive, got %d", steps)
		}
		e := newEnv()
		if err := pginfra.RollbackMigrations(e.cfg.PostgresDSN(), e.cfg.MigrationsDir, steps, e.logger); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")
}
