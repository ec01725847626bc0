package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const registrationColumns = `id, full_name, date_of_birth, gender, email, mobile, address, state, education, image_filename, created_at, updated_at`

const (
	sqlInsertRegistration = `
		INSERT INTO user_registrations (full_name, date_of_birth, gender, email, mobile, address, state, education, image_filename, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	sqlSelectAllRegistrations = `
		SELECT ` + registrationColumns + `
		FROM   user_registrations
		ORDER  BY created_at DESC, id DESC`

	sqlSelectRegistrationByID = `
		SELECT ` + registrationColumns + `
		FROM   user_registrations
		WHERE  id = ?`

	sqlUpdateRegistrationFields = `
		UPDATE user_registrations
		SET    full_name = ?, date_of_birth = ?, gender = ?, email = ?, mobile = ?, address = ?, state = ?, education = ?, updated_at = ?
		WHERE  id = ?`

	sqlUpdateRegistrationWithImage = `
		UPDATE user_registrations
		SET    full_name = ?, date_of_birth = ?, gender = ?, email = ?, mobile = ?, address = ?, state = ?, education = ?, image_filename = ?, updated_at = ?
		WHERE  id = ?`

	sqlDeleteRegistration = `
		DELETE FROM user_registrations WHERE id = ?`
)

// sqlStore holds the statements shared by every dialect. Statements are written with
// '?' placeholders and passed through rebind before execution.
type sqlStore struct {
	db     *sql.DB
	rebind func(query string) string
	// appended to the row read that precedes an update or delete
	lockClause string
	now        func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func newSQLStore(db *sql.DB, rebind func(string) string, lockClause string) *sqlStore {
	if rebind == nil {
		rebind = func(query string) string { return query }
	}
	return &sqlStore{
		db:         db,
		rebind:     rebind,
		lockClause: lockClause,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqlStore) DoesDatabaseExist() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

func (s *sqlStore) CreateRegistration(ctx context.Context, registration *Registration) error {
	now := s.now()
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(sqlInsertRegistration),
		registration.FullName,
		registration.DateOfBirth,
		registration.Gender,
		registration.Email,
		registration.Mobile,
		registration.Address,
		registration.State,
		registration.Education,
		nullableString(registration.ImageFilename),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}

	registration.ID = id
	registration.CreatedAt = now
	registration.UpdatedAt = now
	return nil
}

func (s *sqlStore) GetAllRegistrations(ctx context.Context) ([]*Registration, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(sqlSelectAllRegistrations))
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	registrations := []*Registration{}
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		registrations = append(registrations, registration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return registrations, nil
}

func (s *sqlStore) GetRegistrationByID(ctx context.Context, id int64) (*Registration, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(sqlSelectRegistrationByID), id)
	registration, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration %d: %w", id, err)
	}
	return registration, nil
}

func (s *sqlStore) UpdateRegistration(ctx context.Context, registration *Registration, replaceImage bool) (*Registration, *string, error) {
	var updated *Registration
	var previousImage *string

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanRegistration(tx.QueryRowContext(ctx, s.rebind(sqlSelectRegistrationByID+s.lockClause), registration.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read registration %d: %w", registration.ID, err)
		}

		now := s.now()
		if replaceImage {
			_, err = tx.ExecContext(ctx, s.rebind(sqlUpdateRegistrationWithImage),
				registration.FullName, registration.DateOfBirth, registration.Gender, registration.Email,
				registration.Mobile, registration.Address, registration.State, registration.Education,
				nullableString(registration.ImageFilename), now, registration.ID)
		} else {
			_, err = tx.ExecContext(ctx, s.rebind(sqlUpdateRegistrationFields),
				registration.FullName, registration.DateOfBirth, registration.Gender, registration.Email,
				registration.Mobile, registration.Address, registration.State, registration.Education,
				now, registration.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to update registration %d: %w", registration.ID, err)
		}

		updated = &Registration{
			ID:            current.ID,
			FullName:      registration.FullName,
			DateOfBirth:   registration.DateOfBirth,
			Gender:        registration.Gender,
			Email:         registration.Email,
			Mobile:        registration.Mobile,
			Address:       registration.Address,
			State:         registration.State,
			Education:     registration.Education,
			ImageFilename: current.ImageFilename,
			CreatedAt:     current.CreatedAt,
			UpdatedAt:     now,
		}
		if replaceImage {
			updated.ImageFilename = registration.ImageFilename
			previousImage = current.ImageFilename
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, previousImage, nil
}

func (s *sqlStore) DeleteRegistration(ctx context.Context, id int64) (*Registration, error) {
	var deleted *Registration

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanRegistration(tx.QueryRowContext(ctx, s.rebind(sqlSelectRegistrationByID+s.lockClause), id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read registration %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(sqlDeleteRegistration), id); err != nil {
			return fmt.Errorf("failed to delete registration %d: %w", id, err)
		}
		deleted = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// withTx commits when fn returns nil and rolls back otherwise.
func (s *sqlStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanRegistration(row rowScanner) (*Registration, error) {
	var registration Registration
	var image sql.NullString
	err := row.Scan(
		&registration.ID,
		&registration.FullName,
		&registration.DateOfBirth,
		&registration.Gender,
		&registration.Email,
		&registration.Mobile,
		&registration.Address,
		&registration.State,
		&registration.Education,
		&image,
		&registration.CreatedAt,
		&registration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if image.Valid {
		registration.ImageFilename = &image.String
	}
	return &registration, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
