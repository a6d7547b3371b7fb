package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations
var fs embed.FS

// Migrate brings the slots schema of SQL backends up to date. Other backends
// have no schema and are left alone.
func Migrate(opts Options) error {
	m, err := newMigrate(opts)
	if err != nil || m == nil {
		return err
	}
	defer m.Close()

	log.WithField("backend", opts.Backend).Info("Running migrations")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Rollback reverts the most recent migration
func Rollback(opts Options) error {
	m, err := newMigrate(opts)
	if err != nil || m == nil {
		return err
	}
	defer m.Close()

	log.WithField("backend", opts.Backend).Info("Rolling back last migration")
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func newMigrate(opts Options) (*migrate.Migrate, error) {
	var dir, url string
	switch strings.ToLower(opts.Backend) {
	case "", BackendSQLite:
		dir, url = "migrations/sqlite", "sqlite://"+opts.SQLitePath
	case BackendPostgres:
		u, err := pgxMigrateURL(opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		dir, url = "migrations/postgres", u
	default:
		return nil, nil
	}

	d, err := iofs.New(fs, dir)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, url)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// pgxMigrateURL rewrites a postgres:// URL into the pgx5:// scheme golang-migrate expects
func pgxMigrateURL(dsn string) (string, error) {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme), nil
		}
	}
	return "", fmt.Errorf("postgres dsn must be a postgres:// URL, got %q", dsn)
}
