package connection

import (
	"sync"

	"ssohub/pkg/logging"
)

// Registry is the deduplicated set of connection identities. It is the
// unit of ownership: connections are values looked up by identity key and
// are never linked to each other.
//
// The registry is safe for concurrent use. Every mutation is atomic per
// identity key; Replace is a single swap under the write lock, never a
// field-by-field update.
type Registry struct {
	mu       sync.RWMutex
	resolver CredentialResolver
	conns    map[string]Connection
	order    []string
}

// NewRegistry creates an empty registry whose connections resolve
// credentials through resolver.
func NewRegistry(resolver CredentialResolver) *Registry {
	return &Registry{
		resolver: resolver,
		conns:    make(map[string]Connection),
	}
}

// NewConnection constructs the connection variant for profile without
// registering it.
func (r *Registry) NewConnection(profile Profile) Connection {
	return New(profile, r.resolver)
}

// InsertOrGet returns the registered connection with profile's identity
// key, constructing and inserting one if absent. It is idempotent: an
// existing entry is returned unchanged.
func (r *Registry) InsertOrGet(profile Profile) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := profile.IdentityKey()
	if existing, ok := r.conns[key]; ok {
		return existing
	}

	conn := New(profile, r.resolver)
	r.conns[key] = conn
	r.order = append(r.order, key)
	logging.Debug("Registry", "Registered connection %s (%s)", key, profile.Kind)
	return conn
}

// Replace atomically swaps the entry at identityKey with conn. The old
// value is discarded. If no entry exists at identityKey the connection is
// inserted.
func (r *Registry) Replace(identityKey string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[identityKey]; !ok {
		r.order = append(r.order, identityKey)
	}
	r.conns[identityKey] = conn
	logging.Debug("Registry", "Replaced connection %s", identityKey)
}

// Remove deletes the entry at identityKey. Removing an absent key is a
// no-op.
func (r *Registry) Remove(identityKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[identityKey]; !ok {
		return
	}
	delete(r.conns, identityKey)
	for i, key := range r.order {
		if key == identityKey {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logging.Debug("Registry", "Removed connection %s", identityKey)
}

// Get returns the connection registered at identityKey.
func (r *Registry) Get(identityKey string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[identityKey]
	return conn, ok
}

// Find returns the first registered connection matching startURL and
// region, in insertion order, regardless of session name. This is the
// legacy-style lookup used by login.
func (r *Registry) Find(startURL, region string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.order {
		conn := r.conns[key]
		if conn.StartURL() == startURL && conn.Region() == region {
			return conn, true
		}
	}
	return nil, false
}

// FindBySessionName returns the registered connection with the given
// session name.
func (r *Registry) FindBySessionName(sessionName string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.order {
		conn := r.conns[key]
		if conn.SessionName() == sessionName {
			return conn, true
		}
	}
	return nil, false
}

// List returns all registered connections in insertion order.
func (r *Registry) List() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connection, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.conns[key])
	}
	return out
}

// LoadState clears the registry and rebuilds it from the persisted list.
// Exact structural duplicates collapse to a single entry; when two
// distinct profiles share an identity key the first occurrence wins.
// First-seen order is preserved.
func (r *Registry) LoadState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns = make(map[string]Connection)
	r.order = nil

	for _, profile := range state.Profiles {
		key := profile.IdentityKey()
		if _, ok := r.conns[key]; ok {
			continue
		}
		r.conns[key] = New(profile, r.resolver)
		r.order = append(r.order, key)
	}
	logging.Debug("Registry", "Loaded %d connections from persisted state", len(r.order))
}

// Serialize returns the persisted form of the registry: one profile per
// registered connection, in insertion order. Resolved credential settings
// are never part of the serialized state.
func (r *Registry) Serialize() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := State{Profiles: make([]Profile, 0, len(r.order))}
	for _, key := range r.order {
		state.Profiles = append(state.Profiles, r.conns[key].Profile())
	}
	return state
}
