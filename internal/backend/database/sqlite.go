package database

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

type SQLiteDatabase struct {
	*sqlStore
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls and
	// serialises writers.
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		sqlStore:         newSQLStore(db, nil, ""),
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) Migrate() error {
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare sqlite migration driver: %w", err)
	}
	src, err := migrationSource(TypeSQLite)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, TypeSQLite, driver)
	if err != nil {
		return fmt.Errorf("migration init failed: %w", err)
	}
	m.Log = &migrateLogger{}
	// m is not closed: closing it would close the shared *sql.DB.
	return applyMigrations(m)
}
