package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DB is a Store backed by a SQL database.
type DB struct {
	*sqlx.DB
}

var _ Store = (*DB)(nil)

// Config holds database connection configuration.
type Config struct {
	Driver           string
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// NewConnection opens a database connection with pooling configured.
func NewConnection(cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = "postgres"
	}

	db, err := sqlx.Connect(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &DB{db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	uuid TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS locations (
	path TEXT PRIMARY KEY,
	uuid TEXT NOT NULL UNIQUE,
	open_access BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS permissions (
	location_path TEXT NOT NULL REFERENCES locations(path) ON DELETE CASCADE,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (location_path, user_id)
);
`

// InitSchema creates the tables if they do not exist.
func (db *DB) InitSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint
// violation. The unique indexes back the duplicate checks atomically,
// so concurrent creates for the same key cannot both succeed.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// CreateUser inserts a new user, filling in the generated row id.
func (db *DB) CreateUser(u *User) error {
	query := `INSERT INTO users (uuid, email, active, created_at)
	          VALUES ($1, $2, $3, $4) RETURNING id`

	u.CreatedAt = time.Now()
	err := db.Get(&u.ID, query, u.UUID, u.Email, u.Active, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *DB) UserByUUID(uuid string) (*User, error) {
	var u User
	query := `SELECT id, uuid, email, active, created_at FROM users WHERE uuid = $1`

	err := db.Get(&u, query, uuid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (db *DB) UserByEmail(email string) (*User, error) {
	var u User
	query := `SELECT id, uuid, email, active, created_at FROM users WHERE email = $1`

	err := db.Get(&u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (db *DB) Users() ([]User, error) {
	var users []User
	query := `SELECT id, uuid, email, active, created_at FROM users ORDER BY created_at`

	if err := db.Select(&users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the user; the foreign key cascade removes all
// permissions referencing it.
func (db *DB) DeleteUser(uuid string) (bool, error) {
	res, err := db.Exec(`DELETE FROM users WHERE uuid = $1`, uuid)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) CreateLocation(l *Location) error {
	query := `INSERT INTO locations (path, uuid, open_access, created_at)
	          VALUES ($1, $2, $3, $4)`

	l.CreatedAt = time.Now()
	_, err := db.Exec(query, l.Path, l.UUID, l.OpenAccess, l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLocation
		}
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func (db *DB) LocationByPath(path string) (*Location, error) {
	var l Location
	query := `SELECT path, uuid, open_access, created_at FROM locations WHERE path = $1`

	err := db.Get(&l, query, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &l, nil
}

func (db *DB) LocationByUUID(uuid string) (*Location, error) {
	var l Location
	query := `SELECT path, uuid, open_access, created_at FROM locations WHERE uuid = $1`

	err := db.Get(&l, query, uuid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &l, nil
}

func (db *DB) Locations() ([]Location, error) {
	var locations []Location
	query := `SELECT path, uuid, open_access, created_at FROM locations ORDER BY path`

	if err := db.Select(&locations, query); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

func (db *DB) DeleteLocation(uuid string) (bool, error) {
	res, err := db.Exec(`DELETE FROM locations WHERE uuid = $1`, uuid)
	if err != nil {
		return false, fmt.Errorf("failed to delete location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) SetOpenAccess(uuid string, open bool) (*Location, error) {
	var l Location
	query := `UPDATE locations SET open_access = $1 WHERE uuid = $2
	          RETURNING path, uuid, open_access, created_at`

	err := db.Get(&l, query, open, uuid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return &l, nil
}

func (db *DB) CreatePermission(p *Permission) error {
	query := `INSERT INTO permissions (location_path, user_id, created_at)
	          SELECT $1, id, $2 FROM users WHERE uuid = $3`

	p.CreatedAt = time.Now()
	res, err := db.Exec(query, p.LocationPath, p.CreatedAt, p.UserUUID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePermission
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("failed to create permission: user %s does not exist", p.UserUUID)
	}
	return nil
}

func (db *DB) Permission(locationPath, userUUID string) (*Permission, error) {
	var p Permission
	query := `SELECT p.location_path, u.uuid AS user_uuid, p.created_at
	          FROM permissions p JOIN users u ON u.id = p.user_id
	          WHERE p.location_path = $1 AND u.uuid = $2`

	err := db.Get(&p, query, locationPath, userUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

func (db *DB) DeletePermission(locationPath, userUUID string) (bool, error) {
	query := `DELETE FROM permissions WHERE location_path = $1
	          AND user_id = (SELECT id FROM users WHERE uuid = $2)`

	res, err := db.Exec(query, locationPath, userUUID)
	if err != nil {
		return false, fmt.Errorf("failed to delete permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) AllowedUsers(locationPath string) ([]User, error) {
	var users []User
	query := `SELECT u.id, u.uuid, u.email, u.active, u.created_at
	          FROM permissions p JOIN users u ON u.id = p.user_id
	          WHERE p.location_path = $1 ORDER BY u.created_at`

	if err := db.Select(&users, query, locationPath); err != nil {
		return nil, fmt.Errorf("failed to list allowed users: %w", err)
	}
	return users, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
