package authz

import (
	"errors"
	"testing"

	"github.com/yarko/wwwhisper/internal/store"
)

func TestUsers_Create(t *testing.T) {
	users := NewUsers(store.NewMemory())

	u, err := users.Create("Foo@Example.COM")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.Email != "foo@example.com" {
		t.Errorf("email = %q, want lower-cased", u.Email)
	}
	if u.UUID == "" {
		t.Error("user should get a generated uuid")
	}
	if !u.Active {
		t.Error("new user should be active")
	}
}

func TestUsers_Create_InvalidEmail(t *testing.T) {
	users := NewUsers(store.NewMemory())

	for _, email := range []string{
		"",
		"foo",
		"foo@",
		"@example.com",
		"foo@example",
		"foo bar@example.com",
		"foo@exam ple.com",
	} {
		if _, err := users.Create(email); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidEmail", email, err)
		}
	}
}

func TestUsers_Create_Duplicate(t *testing.T) {
	users := NewUsers(store.NewMemory())

	if _, err := users.Create("foo@example.com"); err != nil {
		t.Fatal(err)
	}
	// Same email in a different case is still a duplicate.
	_, err := users.Create("FOO@example.com")
	if !errors.Is(err, store.ErrDuplicateUser) {
		t.Errorf("Create() error = %v, want ErrDuplicateUser", err)
	}
}

func TestUsers_UniqueIdentifiers(t *testing.T) {
	users := NewUsers(store.NewMemory())

	a, err := users.Create("a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	b, err := users.Create("b@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if a.UUID == b.UUID {
		t.Error("distinct users must get distinct identifiers")
	}
}

func TestUsers_FindByEmail(t *testing.T) {
	users := NewUsers(store.NewMemory())

	created, err := users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}

	found, err := users.FindByEmail("FOO@Example.com")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.UUID != created.UUID {
		t.Errorf("FindByEmail() = %+v, want user %s", found, created.UUID)
	}

	// Malformed email is not found, never an error.
	found, err = users.FindByEmail("not-an-email")
	if err != nil || found != nil {
		t.Errorf("FindByEmail(malformed) = %v, %v, want nil, nil", found, err)
	}

	found, err = users.FindByEmail("missing@example.com")
	if err != nil || found != nil {
		t.Errorf("FindByEmail(missing) = %v, %v, want nil, nil", found, err)
	}
}

func TestUsers_Delete(t *testing.T) {
	users := NewUsers(store.NewMemory())

	u, err := users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}

	existed, err := users.Delete(u.UUID)
	if err != nil || !existed {
		t.Fatalf("Delete() = %v, %v, want true, nil", existed, err)
	}

	existed, err = users.Delete(u.UUID)
	if err != nil || existed {
		t.Errorf("second Delete() = %v, %v, want false, nil", existed, err)
	}

	// The email is free for reuse after deletion.
	if _, err := users.Create("foo@example.com"); err != nil {
		t.Errorf("Create() after delete error = %v", err)
	}
}
