// Package authz implements path-based access control: users,
// locations (protected path prefixes), permissions granting users
// access to locations, and the decision function over them.
package authz

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/yarko/wwwhisper/internal/store"
)

// Email validation regexp as used by BrowserID.
var emailRe = regexp.MustCompile(
	"^[\\w.!#$%&'*+\\-/=?^`{|}~]+@[a-z0-9-]+(\\.[a-z0-9-]+)+$")

// Users manages user accounts. Each user is identified externally by a
// random UUID assigned once at creation.
type Users struct {
	store store.Store
}

// NewUsers creates a user registry over the given store.
func NewUsers(s store.Store) *Users {
	return &Users{store: s}
}

// encodeEmail lower-cases and validates an email address.
func encodeEmail(email string) (string, error) {
	encoded := strings.ToLower(email)
	if !emailRe.MatchString(encoded) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return encoded, nil
}

// Create adds a user with the given email. The email is lower-cased
// and validated; a user with the same email must not already exist.
func (u *Users) Create(email string) (*store.User, error) {
	encoded, err := encodeEmail(email)
	if err != nil {
		return nil, err
	}
	user := &store.User{
		UUID:   uuid.NewString(),
		Email:  encoded,
		Active: true,
	}
	if err := u.store.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindByUUID returns the user with the given identifier, or nil.
func (u *Users) FindByUUID(id string) (*store.User, error) {
	return u.store.UserByUUID(id)
}

// FindByEmail returns the user with the given email, or nil. A
// malformed email is treated as not found, never as an error.
func (u *Users) FindByEmail(email string) (*store.User, error) {
	encoded, err := encodeEmail(email)
	if err != nil {
		return nil, nil
	}
	return u.store.UserByEmail(encoded)
}

// List returns all users.
func (u *Users) List() ([]store.User, error) {
	return u.store.Users()
}

// Delete removes the user and all permissions granted to it. Reports
// whether the user existed.
func (u *Users) Delete(id string) (bool, error) {
	return u.store.DeleteUser(id)
}
