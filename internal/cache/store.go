// Package cache wraps a store with read caching. Most traffic is
// read-only authorization checks, so cached location and permission
// lookups rarely need to be refreshed; any write invalidates them.
package cache

import (
	"sync"

	"github.com/yarko/wwwhisper/internal/store"
)

// Store caches the location list and permission lookups of an
// underlying store. Reads of the location set always observe one
// consistent snapshot.
type Store struct {
	store.Store

	mu          sync.RWMutex
	gen         uint64           // bumped by every invalidation
	locations   []store.Location // nil when invalid
	permissions map[permKey]*permEntry
}

type permKey struct {
	locationPath string
	userUUID     string
}

// permEntry distinguishes a cached miss from an uncached key.
type permEntry struct {
	permission *store.Permission
}

var _ store.Store = (*Store)(nil)

// New wraps the given store with caching.
func New(s store.Store) *Store {
	return &Store{
		Store:       s,
		permissions: make(map[permKey]*permEntry),
	}
}

// invalidate drops all cached reads. Called on every write; writes are
// rare compared to authorization checks, so wholesale invalidation is
// cheaper than tracking.
func (c *Store) invalidate() {
	c.mu.Lock()
	c.gen++
	c.locations = nil
	c.permissions = make(map[permKey]*permEntry)
	c.mu.Unlock()
}

// Fills record the generation observed before the underlying read and
// are skipped when a write invalidated in between. Without the check a
// slow read could install pre-write state after the write's
// invalidation and serve revoked access until the next write.

func (c *Store) Locations() ([]store.Location, error) {
	c.mu.RLock()
	cached := c.locations
	gen := c.gen
	c.mu.RUnlock()
	if cached != nil {
		out := make([]store.Location, len(cached))
		copy(out, cached)
		return out, nil
	}

	locations, err := c.Store.Locations()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.locations = locations
	}
	c.mu.Unlock()

	out := make([]store.Location, len(locations))
	copy(out, locations)
	return out, nil
}

func (c *Store) Permission(locationPath, userUUID string) (*store.Permission, error) {
	key := permKey{locationPath: locationPath, userUUID: userUUID}

	c.mu.RLock()
	entry, ok := c.permissions[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return entry.permission, nil
	}

	p, err := c.Store.Permission(locationPath, userUUID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.permissions[key] = &permEntry{permission: p}
	}
	c.mu.Unlock()
	return p, nil
}

func (c *Store) CreateUser(u *store.User) error {
	err := c.Store.CreateUser(u)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *Store) DeleteUser(uuid string) (bool, error) {
	existed, err := c.Store.DeleteUser(uuid)
	if existed {
		c.invalidate()
	}
	return existed, err
}

func (c *Store) CreateLocation(l *store.Location) error {
	err := c.Store.CreateLocation(l)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *Store) DeleteLocation(uuid string) (bool, error) {
	existed, err := c.Store.DeleteLocation(uuid)
	if existed {
		c.invalidate()
	}
	return existed, err
}

func (c *Store) SetOpenAccess(uuid string, open bool) (*store.Location, error) {
	l, err := c.Store.SetOpenAccess(uuid, open)
	if l != nil {
		c.invalidate()
	}
	return l, err
}

func (c *Store) CreatePermission(p *store.Permission) error {
	err := c.Store.CreatePermission(p)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *Store) DeletePermission(locationPath, userUUID string) (bool, error) {
	existed, err := c.Store.DeletePermission(locationPath, userUUID)
	if existed {
		c.invalidate()
	}
	return existed, err
}
