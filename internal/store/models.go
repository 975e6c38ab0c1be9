package store

import (
	"time"
)

// User is an account that can be granted access to locations.
// The UUID is the only externally visible identifier; the row id is
// never exposed because row ids can be reused after deletion.
type User struct {
	ID        int       `db:"id" json:"-"`
	UUID      string    `db:"uuid"`
	Email     string    `db:"email"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

// Location is a path prefix for which access control rules are defined.
// Rules apply to the path and all sub-paths unless a more specific
// location exists.
type Location struct {
	Path       string    `db:"path"`
	UUID       string    `db:"uuid"`
	OpenAccess bool      `db:"open_access"`
	CreatedAt  time.Time `db:"created_at"`
}

// Permission grants one user access to one location. At most one
// permission exists per (location, user) pair.
type Permission struct {
	LocationPath string    `db:"location_path"`
	UserUUID     string    `db:"user_uuid"`
	CreatedAt    time.Time `db:"created_at"`
}
