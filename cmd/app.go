package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"ssohub/internal/auth"
	"ssohub/internal/config"
	"ssohub/internal/connection"
	"ssohub/internal/events"
	"ssohub/internal/provider"
	"ssohub/internal/telemetry"
)

const userConfigDir = ".config/ssohub"

// app wires the auth components for one CLI invocation.
type app struct {
	configDir string
	bus       *events.Bus
	registry  *connection.Registry
	factory   *provider.SSOFactory
	manager   *auth.Manager
	conns     *auth.ConnectionManager
	login     *auth.LoginCoordinator
	logout    *auth.LogoutCoordinator
}

func configDirOrDefault() (string, error) {
	if dir := os.Getenv("SSOHUB_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, userConfigDir), nil
}

// newApp builds the component graph, loads the persisted registry state,
// and applies the sso-session profiles from the user configuration.
func newApp() (*app, error) {
	configDir, err := configDirOrDefault()
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	factory := provider.NewSSOFactory(filepath.Join(configDir, "cache"), bus)
	registry := connection.NewRegistry(factory)
	manager := auth.NewManager(registry, bus)
	conns := auth.NewConnectionManager(bus)
	emitter := telemetry.LogEmitter{}

	a := &app{
		configDir: configDir,
		bus:       bus,
		registry:  registry,
		factory:   factory,
		manager:   manager,
		conns:     conns,
		login:     auth.NewLoginCoordinator(registry, conns, factory, emitter),
		logout:    auth.NewLogoutCoordinator(bus, conns, emitter),
	}

	state, err := connection.LoadStateFile(a.statePath())
	if err != nil {
		return nil, err
	}
	manager.LoadState(state)

	// Session profiles flow through the same notifications the watcher
	// emits, so a cold start and a live edit take the same path.
	sessions, err := config.LoadSessions(a.sessionsPath())
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		bus.PublishSessionChange(events.SessionChange{Op: events.SessionAdded, Profile: s.Profile()})
	}

	return a, nil
}

func (a *app) statePath() string {
	return filepath.Join(a.configDir, "connections.yaml")
}

func (a *app) sessionsPath() string {
	return filepath.Join(a.configDir, "sessions.yaml")
}

// saveState persists the registry.
func (a *app) saveState() error {
	return connection.SaveStateFile(a.statePath(), a.manager.Serialize())
}

func (a *app) close() {
	a.manager.Close()
	a.factory.Close()
}
