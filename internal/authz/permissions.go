package authz

import (
	"errors"
	"fmt"

	"github.com/yarko/wwwhisper/internal/store"
)

// Permissions manages the grants between users and locations. At most
// one permission exists per (location, user) pair.
type Permissions struct {
	store store.Store
}

// NewPermissions creates a permission registry over the given store.
func NewPermissions(s store.Store) *Permissions {
	return &Permissions{store: s}
}

// Grant allows the user to access the location. Granting an existing
// permission is a no-op: the existing permission is returned with
// created=false. Fails with ErrUserNotFound if no user has the given
// UUID.
func (p *Permissions) Grant(location *store.Location, userUUID string) (*store.Permission, bool, error) {
	user, err := p.store.UserByUUID(userUUID)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrUserNotFound, userUUID)
	}

	existing, err := p.store.Permission(location.Path, userUUID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	perm := &store.Permission{LocationPath: location.Path, UserUUID: userUUID}
	if err := p.store.CreatePermission(perm); err != nil {
		if errors.Is(err, store.ErrDuplicatePermission) {
			// Lost a race with a concurrent grant; the permission
			// exists now, return it as not newly created.
			existing, lookupErr := p.store.Permission(location.Path, userUUID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return perm, true, nil
}

// Revoke removes the user's permission for the location. Fails with
// ErrUserNotFound or ErrPermissionNotFound.
func (p *Permissions) Revoke(location *store.Location, userUUID string) error {
	if _, err := p.Get(location, userUUID); err != nil {
		return err
	}
	_, err := p.store.DeletePermission(location.Path, userUUID)
	return err
}

// Get returns the user's permission for the location. Fails with
// ErrUserNotFound if the user does not exist and ErrPermissionNotFound
// if the user exists but holds no grant for the location.
func (p *Permissions) Get(location *store.Location, userUUID string) (*store.Permission, error) {
	user, err := p.store.UserByUUID(userUUID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userUUID)
	}
	perm, err := p.store.Permission(location.Path, userUUID)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrPermissionNotFound, userUUID, location.Path)
	}
	return perm, nil
}

// AllowedUsers returns every user holding a permission for the
// location.
func (p *Permissions) AllowedUsers(location *store.Location) ([]store.User, error) {
	return p.store.AllowedUsers(location.Path)
}
