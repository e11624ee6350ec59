package auth

import (
	"sync"

	"ssohub/internal/connection"
	"ssohub/internal/events"
	"ssohub/pkg/logging"
)

// ConnectionManager tracks the single active connection for an execution
// context. The active reference points into the registry; the manager
// never owns the connection.
type ConnectionManager struct {
	mu     sync.Mutex
	bus    *events.Bus
	active connection.Connection
}

// NewConnectionManager creates a manager with no active connection.
func NewConnectionManager(bus *events.Bus) *ConnectionManager {
	return &ConnectionManager{bus: bus}
}

// SwitchConnection makes conn the active connection (nil for none) and
// publishes an active-connection-changed event. Publication happens on
// every call, even when conn is already active.
func (m *ConnectionManager) SwitchConnection(conn connection.Connection) {
	m.mu.Lock()
	m.active = conn
	m.mu.Unlock()

	if conn != nil {
		logging.Info("Auth", "Active connection switched to %s", conn.ID())
	} else {
		logging.Info("Auth", "Active connection cleared")
	}
	m.bus.PublishActiveConnection(events.ActiveConnectionChanged{Connection: conn})
}

// ActiveConnection returns the active connection, or nil when none is
// active.
func (m *ConnectionManager) ActiveConnection() connection.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
