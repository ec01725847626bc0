package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
)

//go:embed migrations
var migrationFiles embed.FS

func migrationSource(databaseType string) (source.Driver, error) {
	src, err := iofs.New(migrationFiles, "migrations/"+databaseType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s migrations: %w", databaseType, err)
	}
	return src, nil
}

// NewMigrator opens a dedicated migration handle for the given database. The caller
// must Close it.
func NewMigrator(databaseType, connectionString string) (*migrate.Migrate, error) {
	var databaseURL string
	switch databaseType {
	case TypeSQLite:
		databaseURL = "sqlite://" + connectionString
	case TypePostgres:
		databaseURL = connectionString
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	src, err := migrationSource(databaseType)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migration init failed: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

func applyMigrations(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	slog.Info("database schema up to date", "version", version, "dirty", dirty)
	return nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool { return false }
