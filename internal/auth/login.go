package auth

import (
	"context"

	"ssohub/internal/connection"
	"ssohub/internal/provider"
	"ssohub/internal/telemetry"
	"ssohub/pkg/logging"
)

// Metadata carries optional caller-supplied telemetry fields for a login
// request.
type Metadata struct {
	// SourceID identifies the feature that initiated the login. The
	// default sentinel is recorded when empty.
	SourceID string

	// Source is recorded only when set.
	Source string
}

// LoginCoordinator decides, per login request, whether an existing
// connection is reused as-is, silently refreshed, interactively
// reauthorized, or replaced by a scope-merged successor.
type LoginCoordinator struct {
	registry  *connection.Registry
	conns     *ConnectionManager
	providers provider.Factory
	telemetry telemetry.Emitter
}

// NewLoginCoordinator wires a coordinator over its collaborators.
func NewLoginCoordinator(registry *connection.Registry, conns *ConnectionManager, providers provider.Factory, emitter telemetry.Emitter) *LoginCoordinator {
	return &LoginCoordinator{registry: registry, conns: conns, providers: providers, telemetry: emitter}
}

// LoginSso runs the login decision procedure for (startURL, region,
// scopes). The precedence is fixed: reuse an authorized connection whose
// scopes cover the request, else silently refresh or interactively
// reauthorize an existing connection, else merge scopes or create a new
// connection, which always reauthorizes.
//
// Reuse and refresh complete before LoginSso returns. Interactive
// authorization continues in the background; the returned Task reports
// the outcome. When logins for the same identity race, the last
// completion determines the active connection.
func (c *LoginCoordinator) LoginSso(ctx context.Context, startURL, region string, scopes []string, md *Metadata) *Task {
	existing, ok := c.registry.Find(startURL, region)
	if !ok {
		return c.addConnection(ctx, startURL, region, scopes, md)
	}

	prov, err := c.providers.ProviderFor(existing)
	if err != nil {
		c.emit("auth_reuseConnection", "Failed", md)
		return completedTask(nil, newError("loginSso", err))
	}

	switch prov.State() {
	case provider.StateAuthorized:
		if scopesSubset(scopes, existing.Scopes()) {
			// The only branch with no provider side effect beyond the
			// state query.
			c.conns.SwitchConnection(existing)
			c.emit("auth_reuseConnection", "Succeeded", md)
			return completedTask(existing, nil)
		}
		return c.mergeScopes(ctx, existing, scopes, md)

	case provider.StateNeedsRefresh:
		if _, err := prov.ResolveToken(ctx); err != nil {
			c.emit("auth_refreshConnection", "Failed", md)
			return completedTask(nil, newError("resolveToken", err))
		}
		c.conns.SwitchConnection(existing)
		c.emit("auth_refreshConnection", "Succeeded", md)
		return completedTask(existing, nil)

	default:
		return c.authorize(ctx, existing, prov, "auth_reauthenticateConnection", md)
	}
}

// addConnection handles a login with no existing (startURL, region)
// match: register a new managed connection and run the interactive flow.
func (c *LoginCoordinator) addConnection(ctx context.Context, startURL, region string, scopes []string, md *Metadata) *Task {
	profile := connection.Profile{
		Kind:      connection.KindManaged,
		SsoRegion: region,
		StartURL:  startURL,
		Scopes:    normalizeScopes(scopes),
	}
	conn := c.registry.InsertOrGet(profile)

	prov, err := c.providers.ProviderFor(conn)
	if err != nil {
		c.emit("auth_addConnection", "Failed", md)
		return completedTask(nil, newError("createConnection", err))
	}
	return c.authorize(ctx, conn, prov, "auth_addConnection", md)
}

// mergeScopes replaces an authorized-but-insufficient connection with a
// successor carrying the scope union. Union is the only transformation:
// previously granted scopes are never dropped. The successor is committed
// to the registry before the interactive flow runs (provisional) and
// promoted to active only on success.
func (c *LoginCoordinator) mergeScopes(ctx context.Context, existing connection.Connection, requested []string, md *Metadata) *Task {
	mergedProfile := existing.Profile()
	mergedProfile.Scopes = scopeUnion(existing.Scopes(), requested)

	merged := c.registry.NewConnection(mergedProfile)
	c.registry.Replace(existing.ID(), merged)
	logging.Info("Auth", "Merging scopes for %s: %d -> %d", existing.ID(), len(existing.Scopes()), len(merged.Scopes()))

	prov, err := c.providers.ProviderFor(merged)
	if err != nil {
		c.emit("auth_modifyConnection", "Failed", md)
		return completedTask(nil, newError("mergeScopes", err))
	}
	return c.authorize(ctx, merged, prov, "auth_modifyConnection", md)
}

// authorize runs the interactive reauthorization as a cancellable
// background task and switches to conn on success.
func (c *LoginCoordinator) authorize(parent context.Context, conn connection.Connection, prov provider.TokenProvider, eventName string, md *Metadata) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := newTask(cancel)

	go func() {
		defer cancel()

		if err := prov.Reauthenticate(ctx); err != nil {
			logging.Error("Auth", err, "Authorization failed for %s", conn.ID())
			c.emit(eventName, "Failed", md)
			t.complete(nil, newError("reauthenticate", err))
			return
		}
		c.conns.SwitchConnection(conn)
		c.emit(eventName, "Succeeded", md)
		t.complete(conn, nil)
	}()

	return t
}

func (c *LoginCoordinator) emit(name, result string, md *Metadata) {
	var sourceID, source string
	if md != nil {
		sourceID = md.SourceID
		source = md.Source
	}
	c.telemetry.Emit(telemetry.New(name, result, sourceID, source))
}

// scopesSubset reports whether every requested scope is already granted.
func scopesSubset(requested, granted []string) bool {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// scopeUnion appends the requested scopes not already granted, preserving
// the order of the granted set.
func scopeUnion(granted, requested []string) []string {
	out := make([]string, 0, len(granted)+len(requested))
	seen := make(map[string]struct{}, len(granted)+len(requested))
	for _, s := range granted {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range requested {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func normalizeScopes(scopes []string) []string {
	return scopeUnion(nil, scopes)
}
