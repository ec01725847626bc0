package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("registration not found")

type DatabaseService interface {
	// Migrate brings the schema to the latest version (idempotent).
	Migrate() error
	DoesDatabaseExist() bool
	Close() error

	// CreateRegistration inserts the row and fills in ID, CreatedAt and UpdatedAt.
	CreateRegistration(ctx context.Context, registration *Registration) error
	// GetAllRegistrations returns every row, newest first.
	GetAllRegistrations(ctx context.Context) ([]*Registration, error)
	GetRegistrationByID(ctx context.Context, id int64) (*Registration, error)
	// UpdateRegistration rewrites the personal fields and, when replaceImage is set,
	// image_filename. The previous image filename is read in the same transaction and
	// returned so the caller can remove the old blob after commit.
	UpdateRegistration(ctx context.Context, registration *Registration, replaceImage bool) (updated *Registration, previousImage *string, err error)
	// DeleteRegistration removes the row and returns it as it was before deletion.
	DeleteRegistration(ctx context.Context, id int64) (*Registration, error)
}
