package core

import (
	"errors"
	"fmt"

	"github.com/jo-hoe/goregister/internal/backend/database"
)

// ErrNotFound is returned by Get and Update when no registration has the requested id.
var ErrNotFound = database.ErrNotFound

const (
	msgNotFound      = "Registration not found"
	msgDatabase      = "Database error"
	msgFetch         = "Error fetching data"
	msgUpload        = "Error uploading file."
	msgDeleteFailed  = "Failed to delete registration"
	msgUnexpected    = "Unexpected error"
	msgImageRequired = "Image upload is required."
	msgNotAnImage    = "File is not an image."
	msgTooLarge      = "File is too large. Maximum size is %dMB."
	msgUnsupported   = "Only JPG, JPEG, PNG & GIF files are allowed."
)

// ValidationError rejects user input. Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StoreError wraps a database or filesystem failure.
type StoreError struct {
	Op      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown in the error banner for err.
func UserMessage(err error) string {
	var validationErr *ValidationError
	var storeErr *StoreError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.As(err, &storeErr):
		return storeErr.Message
	default:
		return msgUnexpected
	}
}
