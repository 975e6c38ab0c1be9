package store

import (
	"sync"
	"time"
)

// Memory is an in-process Store guarded by a single lock. It backs
// deployments that run without a database and the test suites. The
// lock makes every duplicate-check-then-insert atomic and gives
// readers a consistent view of the location set.
type Memory struct {
	mu          sync.RWMutex
	nextUserID  int
	users       map[string]*User     // keyed by uuid
	emails      map[string]string    // email -> uuid
	locations   map[string]*Location // keyed by path
	locationIDs map[string]string    // uuid -> path
	permissions map[permKey]*Permission
}

type permKey struct {
	locationPath string
	userUUID     string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*User),
		emails:      make(map[string]string),
		locations:   make(map[string]*Location),
		locationIDs: make(map[string]string),
		permissions: make(map[permKey]*Permission),
	}
}

func (m *Memory) CreateUser(u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emails[u.Email]; exists {
		return ErrDuplicateUser
	}
	m.nextUserID++
	u.ID = m.nextUserID
	u.CreatedAt = time.Now()
	stored := *u
	m.users[u.UUID] = &stored
	m.emails[u.Email] = u.UUID
	return nil
}

func (m *Memory) UserByUUID(uuid string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[uuid]
	if !exists {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *Memory) UserByEmail(email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uuid, exists := m.emails[email]
	if !exists {
		return nil, nil
	}
	copied := *m.users[uuid]
	return &copied, nil
}

func (m *Memory) Users() ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, nil
}

func (m *Memory) DeleteUser(uuid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, exists := m.users[uuid]
	if !exists {
		return false, nil
	}
	delete(m.users, uuid)
	delete(m.emails, u.Email)
	for key := range m.permissions {
		if key.userUUID == uuid {
			delete(m.permissions, key)
		}
	}
	return true, nil
}

func (m *Memory) CreateLocation(l *Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.locations[l.Path]; exists {
		return ErrDuplicateLocation
	}
	l.CreatedAt = time.Now()
	stored := *l
	m.locations[l.Path] = &stored
	m.locationIDs[l.UUID] = l.Path
	return nil
}

func (m *Memory) LocationByPath(path string) (*Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, exists := m.locations[path]
	if !exists {
		return nil, nil
	}
	copied := *l
	return &copied, nil
}

func (m *Memory) LocationByUUID(uuid string) (*Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path, exists := m.locationIDs[uuid]
	if !exists {
		return nil, nil
	}
	copied := *m.locations[path]
	return &copied, nil
}

func (m *Memory) Locations() ([]Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	locations := make([]Location, 0, len(m.locations))
	for _, l := range m.locations {
		locations = append(locations, *l)
	}
	return locations, nil
}

func (m *Memory) DeleteLocation(uuid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, exists := m.locationIDs[uuid]
	if !exists {
		return false, nil
	}
	delete(m.locations, path)
	delete(m.locationIDs, uuid)
	for key := range m.permissions {
		if key.locationPath == path {
			delete(m.permissions, key)
		}
	}
	return true, nil
}

func (m *Memory) SetOpenAccess(uuid string, open bool) (*Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, exists := m.locationIDs[uuid]
	if !exists {
		return nil, nil
	}
	m.locations[path].OpenAccess = open
	copied := *m.locations[path]
	return &copied, nil
}

func (m *Memory) CreatePermission(p *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := permKey{locationPath: p.LocationPath, userUUID: p.UserUUID}
	if _, exists := m.permissions[key]; exists {
		return ErrDuplicatePermission
	}
	p.CreatedAt = time.Now()
	stored := *p
	m.permissions[key] = &stored
	return nil
}

func (m *Memory) Permission(locationPath, userUUID string) (*Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.permissions[permKey{locationPath: locationPath, userUUID: userUUID}]
	if !exists {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (m *Memory) DeletePermission(locationPath, userUUID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := permKey{locationPath: locationPath, userUUID: userUUID}
	if _, exists := m.permissions[key]; !exists {
		return false, nil
	}
	delete(m.permissions, key)
	return true, nil
}

func (m *Memory) AllowedUsers(locationPath string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []User
	for key := range m.permissions {
		if key.locationPath != locationPath {
			continue
		}
		if u, exists := m.users[key.userUUID]; exists {
			users = append(users, *u)
		}
	}
	return users, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
