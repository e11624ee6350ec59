package auth

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"ssohub/internal/connection"
	"ssohub/internal/events"
	"ssohub/internal/provider"
	"ssohub/internal/telemetry"
)

// fakeProvider counts every call so tests can assert the exact provider
// side effects of each login branch.
type fakeProvider struct {
	mu    sync.Mutex
	id    string
	state provider.State

	stateCalls   int
	resolveCalls int
	reauthCalls  int

	resolveErr error
	reauthErr  error

	// block, when non-nil, holds Reauthenticate until closed.
	block chan struct{}
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) State() provider.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateCalls++
	return p.state
}

func (p *fakeProvider) ResolveToken(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolveCalls++
	if p.resolveErr != nil {
		return nil, p.resolveErr
	}
	p.state = provider.StateAuthorized
	return &oauth2.Token{AccessToken: "token"}, nil
}

func (p *fakeProvider) Reauthenticate(ctx context.Context) error {
	p.mu.Lock()
	p.reauthCalls++
	block := p.block
	err := p.reauthErr
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.state = provider.StateAuthorized
	p.mu.Unlock()
	return nil
}

func (p *fakeProvider) calls() (state, resolve, reauth int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateCalls, p.resolveCalls, p.reauthCalls
}

// fakeFactory hands out one fakeProvider per identity and scope set,
// mirroring the production factory's caching.
type fakeFactory struct {
	mu        sync.Mutex
	providers map[string]*fakeProvider
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{providers: make(map[string]*fakeProvider)}
}

func factoryKey(id string, scopes []string) string {
	return id + "|" + strings.Join(scopes, " ")
}

func (f *fakeFactory) ProviderFor(conn connection.Connection) (provider.TokenProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := factoryKey(conn.ID(), conn.Scopes())
	if p, ok := f.providers[key]; ok {
		return p, nil
	}
	p := &fakeProvider{id: conn.ID(), state: provider.StateNotAuthenticated}
	f.providers[key] = p
	return p, nil
}

// prepare registers a provider for the given identity and scope set
// before the coordinator asks for it.
func (f *fakeFactory) prepare(id string, scopes []string, state provider.State) *fakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &fakeProvider{id: id, state: state}
	f.providers[factoryKey(id, scopes)] = p
	return p
}

type testEnv struct {
	bus      *events.Bus
	registry *connection.Registry
	factory  *fakeFactory
	manager  *Manager
	conns    *ConnectionManager
	login    *LoginCoordinator
	logout   *LogoutCoordinator
	recorder *telemetry.Recorder
}

func newTestEnv() *testEnv {
	bus := events.NewBus()
	factory := newFakeFactory()
	registry := connection.NewRegistry(nil)
	recorder := &telemetry.Recorder{}
	conns := NewConnectionManager(bus)

	return &testEnv{
		bus:      bus,
		registry: registry,
		factory:  factory,
		manager:  NewManager(registry, bus),
		conns:    conns,
		login:    NewLoginCoordinator(registry, conns, factory, recorder),
		logout:   NewLogoutCoordinator(bus, conns, recorder),
		recorder: recorder,
	}
}

const (
	testStartURL = "https://acme.awsapps.com/start"
	testRegion   = "eu-west-1"
)

func (e *testEnv) registerConnection(scopes ...string) connection.Connection {
	return e.registry.InsertOrGet(connection.Profile{
		Kind:      connection.KindManaged,
		SsoRegion: testRegion,
		StartURL:  testStartURL,
		Scopes:    scopes,
	})
}
