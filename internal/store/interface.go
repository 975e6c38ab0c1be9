package store

// Store defines the persistence operations the access control core
// needs. Lookups return (nil, nil) when the record does not exist; only
// infrastructure failures produce errors. Implementations must make
// each duplicate-check-then-insert atomic: of two concurrent creates
// for the same key exactly one succeeds, the other observes the
// matching ErrDuplicate error.
type Store interface {
	CreateUser(u *User) error
	UserByUUID(uuid string) (*User, error)
	UserByEmail(email string) (*User, error)
	Users() ([]User, error)
	// DeleteUser removes the user and all permissions referencing it.
	DeleteUser(uuid string) (bool, error)

	CreateLocation(l *Location) error
	LocationByPath(path string) (*Location, error)
	LocationByUUID(uuid string) (*Location, error)
	Locations() ([]Location, error)
	// DeleteLocation removes the location and all its permissions.
	DeleteLocation(uuid string) (bool, error)
	SetOpenAccess(uuid string, open bool) (*Location, error)

	CreatePermission(p *Permission) error
	Permission(locationPath, userUUID string) (*Permission, error)
	DeletePermission(locationPath, userUUID string) (bool, error)
	AllowedUsers(locationPath string) ([]User, error)

	Close() error
}
