package auth

import (
	"ssohub/internal/connection"
	"ssohub/internal/events"
	"ssohub/pkg/logging"
)

// Manager builds connections from profiles and keeps the registry
// synchronized with session-change notifications from the external
// profile source.
type Manager struct {
	registry    *connection.Registry
	bus         *events.Bus
	unsubscribe func()
}

// NewManager creates a manager over registry and subscribes it to
// session-change notifications on bus.
func NewManager(registry *connection.Registry, bus *events.Bus) *Manager {
	m := &Manager{registry: registry, bus: bus}
	m.unsubscribe = bus.SubscribeSessionChanges(m.handleSessionChange)
	return m
}

// Close removes the session-change subscription.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// CreateConnection registers a connection for profile. Calling it twice
// with the same profile yields the same identity.
func (m *Manager) CreateConnection(profile connection.Profile) connection.Connection {
	return m.registry.InsertOrGet(profile)
}

// ListConnections returns all registered connections in insertion order.
func (m *Manager) ListConnections() []connection.Connection {
	return m.registry.List()
}

// DeleteConnection removes the connection at identityKey. Unknown keys
// are a no-op.
func (m *Manager) DeleteConnection(identityKey string) {
	m.registry.Remove(identityKey)
}

// LoadState rebuilds the registry from persisted state, deduplicating
// structurally identical entries.
func (m *Manager) LoadState(state connection.State) {
	m.registry.LoadState(state)
}

// Serialize returns the persisted form of the registry.
func (m *Manager) Serialize() connection.State {
	return m.registry.Serialize()
}

// handleSessionChange applies one session-change notification to the
// registry. Mutations are synchronous within the handler: once the
// publish returns, ListConnections reflects the change.
func (m *Manager) handleSessionChange(ev events.SessionChange) {
	name := ev.Profile.SessionName

	switch ev.Op {
	case events.SessionAdded:
		if existing, ok := m.registry.FindBySessionName(name); ok {
			m.registry.Replace(existing.ID(), m.registry.NewConnection(ev.Profile))
		} else {
			m.registry.InsertOrGet(ev.Profile)
		}
		logging.Debug("Auth", "Session %q added", name)

	case events.SessionModified:
		existing, ok := m.registry.FindBySessionName(name)
		if !ok {
			// Unknown session: not an error.
			return
		}
		m.registry.Replace(existing.ID(), m.registry.NewConnection(ev.Profile))
		logging.Debug("Auth", "Session %q modified", name)

	case events.SessionRemoved:
		existing, ok := m.registry.FindBySessionName(name)
		if !ok {
			return
		}
		m.registry.Remove(existing.ID())
		logging.Debug("Auth", "Session %q removed", name)
	}
}
