package database

import "time"

// Registration is one row of user_registrations.
type Registration struct {
	ID            int64     `db:"id"`
	FullName      string    `db:"full_name"`
	DateOfBirth   string    `db:"date_of_birth"` // YYYY-MM-DD
	Gender        string    `db:"gender"`
	Email         string    `db:"email"`
	Mobile        string    `db:"mobile"`
	Address       string    `db:"address"`
	State         string    `db:"state"`
	Education     string    `db:"education"`
	ImageFilename *string   `db:"image_filename"` // nil means no image
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// HasImageReference reports whether the row names a blob at all.
func (r *Registration) HasImageReference() bool {
	return r.ImageFilename != nil && *r.ImageFilename != ""
}
