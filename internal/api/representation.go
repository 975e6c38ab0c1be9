package api

import (
	"github.com/yarko/wwwhisper/internal/store"
)

// Resource representations returned by the admin API. Entities are
// identified by urn:uuid ids and carry self links so clients never
// construct resource URLs themselves.

// UserResource is the external representation of a user.
type UserResource struct {
	ID    string `json:"id"`
	Self  string `json:"self"`
	Email string `json:"email"`
}

// LocationResource is the external representation of a location.
type LocationResource struct {
	ID           string         `json:"id"`
	Self         string         `json:"self"`
	Path         string         `json:"path"`
	OpenAccess   bool           `json:"openAccess"`
	AllowedUsers []UserResource `json:"allowedUsers"`
}

// PermissionResource is the external representation of a permission.
type PermissionResource struct {
	Self string       `json:"self"`
	User UserResource `json:"user"`
}

// representer builds representations with absolute self links rooted
// at the configured site URL.
type representer struct {
	siteURL string
}

func urnFromUUID(uuid string) string {
	return "urn:uuid:" + uuid
}

func (r representer) user(u *store.User) UserResource {
	return UserResource{
		ID:    urnFromUUID(u.UUID),
		Self:  r.siteURL + "/admin/api/users/" + u.UUID,
		Email: u.Email,
	}
}

func (r representer) users(us []store.User) []UserResource {
	out := make([]UserResource, len(us))
	for i := range us {
		out[i] = r.user(&us[i])
	}
	return out
}

func (r representer) location(l *store.Location, allowed []store.User) LocationResource {
	return LocationResource{
		ID:           urnFromUUID(l.UUID),
		Self:         r.siteURL + "/admin/api/locations/" + l.UUID,
		Path:         l.Path,
		OpenAccess:   l.OpenAccess,
		AllowedUsers: r.users(allowed),
	}
}

func (r representer) permission(l *store.Location, u *store.User) PermissionResource {
	return PermissionResource{
		Self: r.siteURL + "/admin/api/locations/" + l.UUID + "/allowed-users/" + u.UUID,
		User: r.user(u),
	}
}
