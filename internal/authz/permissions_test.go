package authz

import (
	"errors"
	"testing"

	"github.com/yarko/wwwhisper/internal/store"
)

type registries struct {
	users       *Users
	locations   *Locations
	permissions *Permissions
}

func newRegistries() registries {
	s := store.NewMemory()
	return registries{
		users:       NewUsers(s),
		locations:   NewLocations(s),
		permissions: NewPermissions(s),
	}
}

func TestPermissions_Grant(t *testing.T) {
	r := newRegistries()

	user, err := r.users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}
	location, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}

	perm, created, err := r.permissions.Grant(location, user.UUID)
	if err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if !created {
		t.Error("first grant should report created=true")
	}
	if perm.LocationPath != "/pub" || perm.UserUUID != user.UUID {
		t.Errorf("permission = %+v", perm)
	}

	// Granting again is a no-op returning the existing permission.
	perm2, created, err := r.permissions.Grant(location, user.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second grant should report created=false")
	}
	if perm2.LocationPath != perm.LocationPath || perm2.UserUUID != perm.UserUUID {
		t.Errorf("second grant = %+v, want the existing permission", perm2)
	}

	allowed, err := r.permissions.AllowedUsers(location)
	if err != nil {
		t.Fatal(err)
	}
	if len(allowed) != 1 {
		t.Errorf("allowed users = %d, want exactly 1", len(allowed))
	}
}

func TestPermissions_Grant_UnknownUser(t *testing.T) {
	r := newRegistries()

	location, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = r.permissions.Grant(location, "no-such-user")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Grant() error = %v, want ErrUserNotFound", err)
	}
}

func TestPermissions_RevokeAndGet(t *testing.T) {
	r := newRegistries()

	user, err := r.users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}
	location, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}

	if err := r.permissions.Revoke(location, user.UUID); !errors.Is(err, ErrPermissionNotFound) {
		t.Errorf("Revoke() before grant error = %v, want ErrPermissionNotFound", err)
	}
	if err := r.permissions.Revoke(location, "no-such-user"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Revoke() unknown user error = %v, want ErrUserNotFound", err)
	}

	if _, _, err := r.permissions.Grant(location, user.UUID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.permissions.Get(location, user.UUID); err != nil {
		t.Errorf("Get() after grant error = %v", err)
	}

	if err := r.permissions.Revoke(location, user.UUID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := r.permissions.Get(location, user.UUID); !errors.Is(err, ErrPermissionNotFound) {
		t.Errorf("Get() after revoke error = %v, want ErrPermissionNotFound", err)
	}
}

func TestPermissions_CascadeOnUserDelete(t *testing.T) {
	r := newRegistries()

	user, err := r.users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}
	location, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.permissions.Grant(location, user.UUID); err != nil {
		t.Fatal(err)
	}

	if _, err := r.users.Delete(user.UUID); err != nil {
		t.Fatal(err)
	}

	_, err = r.permissions.Get(location, user.UUID)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() after user delete error = %v, want ErrUserNotFound", err)
	}

	allowed, err := r.permissions.AllowedUsers(location)
	if err != nil {
		t.Fatal(err)
	}
	if len(allowed) != 0 {
		t.Errorf("allowed users = %d, want 0 after cascade", len(allowed))
	}
}

func TestPermissions_CascadeOnLocationDelete(t *testing.T) {
	r := newRegistries()

	user, err := r.users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}
	location, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.permissions.Grant(location, user.UUID); err != nil {
		t.Fatal(err)
	}

	if _, err := r.locations.Delete(location.UUID); err != nil {
		t.Fatal(err)
	}

	_, err = r.permissions.Get(location, user.UUID)
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Errorf("Get() after location delete error = %v, want ErrPermissionNotFound", err)
	}
}
