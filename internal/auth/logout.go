package auth

import (
	"ssohub/internal/connection"
	"ssohub/internal/events"
	"ssohub/internal/telemetry"
	"ssohub/pkg/logging"
)

// LogoutCoordinator invalidates a connection's provider, deactivates the
// connection, and signals completion.
type LogoutCoordinator struct {
	bus       *events.Bus
	conns     *ConnectionManager
	telemetry telemetry.Emitter
}

// NewLogoutCoordinator wires a coordinator over its collaborators.
func NewLogoutCoordinator(bus *events.Bus, conns *ConnectionManager, emitter telemetry.Emitter) *LogoutCoordinator {
	return &LogoutCoordinator{bus: bus, conns: conns, telemetry: emitter}
}

// Logout signs out of conn. Effects run in order, each exactly once:
// a provider-invalidated broadcast for the connection's identity, a
// switch away from the connection if it is active, and the onComplete
// callback. A connection with no live provider still gets the broadcast;
// providers ignore non-matching IDs.
func (c *LogoutCoordinator) Logout(conn connection.Connection, md *Metadata, onComplete func()) {
	c.bus.PublishProviderInvalidated(events.ProviderInvalidated{ProviderID: conn.ID()})

	if active := c.conns.ActiveConnection(); active != nil && active.ID() == conn.ID() {
		c.conns.SwitchConnection(nil)
	}

	var sourceID, source string
	if md != nil {
		sourceID = md.SourceID
		source = md.Source
	}
	c.telemetry.Emit(telemetry.New("auth_logout", "Succeeded", sourceID, source))
	logging.Info("Auth", "Logged out of %s", conn.ID())

	if onComplete != nil {
		onComplete()
	}
}
