package authz

import (
	"github.com/google/uuid"

	"github.com/yarko/wwwhisper/internal/store"
	"github.com/yarko/wwwhisper/internal/urlpath"
)

// Locations manages protected path prefixes. Rules defined for a
// location apply to the location and its sub-paths unless a more
// specific location exists; the more specific location then takes
// precedence.
type Locations struct {
	store store.Store
}

// NewLocations creates a location registry over the given store.
func NewLocations(s store.Store) *Locations {
	return &Locations{store: s}
}

// Create registers a location for the given canonical path. The path
// must be absolute and normalized, without fragment, query or
// parameter parts, and not already registered. New locations are not
// open access.
func (l *Locations) Create(path string) (*store.Location, error) {
	if err := urlpath.Validate(path); err != nil {
		return nil, err
	}
	location := &store.Location{
		Path: path,
		UUID: uuid.NewString(),
	}
	if err := l.store.CreateLocation(location); err != nil {
		return nil, err
	}
	return location, nil
}

// FindByPath returns the location registered for exactly path, or nil.
func (l *Locations) FindByPath(path string) (*store.Location, error) {
	return l.store.LocationByPath(path)
}

// FindByUUID returns the location with the given identifier, or nil.
func (l *Locations) FindByUUID(id string) (*store.Location, error) {
	return l.store.LocationByUUID(id)
}

// All returns every registered location.
func (l *Locations) All() ([]store.Location, error) {
	return l.store.Locations()
}

// Delete removes the location and all its permissions. Reports whether
// the location existed.
func (l *Locations) Delete(id string) (bool, error) {
	return l.store.DeleteLocation(id)
}

// SetOpenAccess toggles unauthenticated access to a location. When a
// location is open every request under it is allowed without checking
// identity. Returns the updated location, or ErrLocationNotFound.
func (l *Locations) SetOpenAccess(id string, open bool) (*store.Location, error) {
	location, err := l.store.SetOpenAccess(id, open)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrLocationNotFound
	}
	return location, nil
}
