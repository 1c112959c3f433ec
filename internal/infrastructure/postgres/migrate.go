package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// RunMigrations applies every pending migration in dir. Having nothing to do
// is not an error.
func RunMigrations(dsn, dir string, logger *logrus.Logger) error {
	m, closeDB, err := newMigrator(dsn, dir)
	if err != nil {
		return err
	}
	defer closeDB()
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

// RollbackMigrations reverts the last steps migrations.
func RollbackMigrations(dsn, dir string, steps int, logger *logrus.Logger) error {
	m, closeDB, err := newMigrator(dsn, dir)
	if err != nil {
		return err
	}
	defer closeDB()
	logger.WithField("steps", steps).Info("rolling back migrations...")
	err = m.Steps(-steps)
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func newMigrator(dsn, dir string) (*migrate.Migrate, func(), error) {
	// database/sql through the pgx stdlib driver
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = db.Close() }
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return m, closeDB, nil
}
