package migrations

import (
	"github.com/bidworks/auctiond/internal/shared/config"
	"github.com/bidworks/auctiond/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// RunMigrations applies every pending SQL migration under
// internal/shared/db/migrations/sql. ErrNoChange is not an error.
func RunMigrations() error {
	dbURL := config.BuildPostgresDSN()
	log.Info("RunMigrations", zap.String("postgresURL", dbURL))
	m, err := migrate.New(
		"file://internal/shared/db/migrations/sql",
		dbURL,
	)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
