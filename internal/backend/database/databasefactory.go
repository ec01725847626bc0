package database

import (
	"fmt"
	"log/slog"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

func NewDatabase(databaseType, connectionString string) (database DatabaseService, err error) {
	switch databaseType {
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString)
	case TypePostgres:
		database, err = NewPostgresDatabase(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("applying database migrations", "type", databaseType)
	if err = database.Migrate(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return database, nil
}
