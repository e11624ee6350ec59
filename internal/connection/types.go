package connection

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Kind discriminates the connection variants in the persisted state.
type Kind string

const (
	// KindManaged is a bearer connection created directly by the
	// application, optionally carrying a session name.
	KindManaged Kind = "managed-sso"

	// KindProfile is a bearer connection derived from an sso-session
	// profile in the user configuration, keyed by its session name.
	KindProfile Kind = "profile-sso"

	// KindLegacy is a bearer connection identified by start URL and region
	// only, predating named sessions.
	KindLegacy Kind = "legacy-sso"
)

// Profile is the identity descriptor for an SSO connection. Two profiles
// are equal iff all fields match, including scope order; equality drives
// deduplication of the persisted state.
type Profile struct {
	Kind        Kind     `yaml:"type" json:"type"`
	SsoRegion   string   `yaml:"ssoRegion" json:"ssoRegion"`
	StartURL    string   `yaml:"startUrl" json:"startUrl"`
	Scopes      []string `yaml:"scopes" json:"scopes"`
	SessionName string   `yaml:"sessionName,omitempty" json:"sessionName,omitempty"`
}

// Equal reports full structural equality with other.
func (p Profile) Equal(other Profile) bool {
	if p.Kind != other.Kind || p.SsoRegion != other.SsoRegion ||
		p.StartURL != other.StartURL || p.SessionName != other.SessionName {
		return false
	}
	if len(p.Scopes) != len(other.Scopes) {
		return false
	}
	for i := range p.Scopes {
		if p.Scopes[i] != other.Scopes[i] {
			return false
		}
	}
	return true
}

// IdentityKey derives the registry key for the profile. The key is stable
// across process restarts so a persisted profile and a live token provider
// resolve to the same identity.
//
// Profile-derived connections and named managed connections are keyed by
// session name; everything else is keyed by region and start URL.
func (p Profile) IdentityKey() string {
	if p.Kind == KindProfile || (p.Kind == KindManaged && p.SessionName != "") {
		return fmt.Sprintf("sso-session;%s", p.SessionName)
	}
	return fmt.Sprintf("sso;%s;%s", p.SsoRegion, p.StartURL)
}

// TokenSource yields the current bearer token for a connection,
// refreshing it if needed.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// CredentialSettings exposes the resolved bearer credential of a
// connection. It is produced on demand by a CredentialResolver and must
// never appear in any serialized form of a connection.
type CredentialSettings struct {
	providerID string
	source     TokenSource
}

// NewCredentialSettings wraps a token source under the provider identity
// that produced it.
func NewCredentialSettings(providerID string, source TokenSource) *CredentialSettings {
	return &CredentialSettings{providerID: providerID, source: source}
}

// ProviderID returns the identity of the token provider backing these
// settings.
func (s *CredentialSettings) ProviderID() string {
	return s.providerID
}

// Token returns the current bearer token, refreshing it when necessary.
func (s *CredentialSettings) Token(ctx context.Context) (*oauth2.Token, error) {
	return s.source.Token(ctx)
}

// CredentialResolver resolves the credential settings for a connection.
// The token provider layer implements this; connections delegate to it so
// that identity data and credential material stay separate.
type CredentialResolver interface {
	ResolveCredentialSettings(ctx context.Context, conn Connection) (*CredentialSettings, error)
}

// Connection is one registered SSO authorization context. Implementations
// are value-like: they carry identity fields only and resolve credentials
// through the registry's resolver.
type Connection interface {
	// ID is the deterministic identity key of the connection.
	ID() string

	// Label is a human-readable name for display.
	Label() string

	Kind() Kind
	Region() string
	StartURL() string
	SessionName() string
	Scopes() []string

	// Profile returns the originating identity descriptor. Serialization
	// reads only this.
	Profile() Profile

	// ResolveCredentialSettings resolves the bearer credential for this
	// connection.
	ResolveCredentialSettings(ctx context.Context) (*CredentialSettings, error)
}

type baseConnection struct {
	profile  Profile
	resolver CredentialResolver
}

func (c *baseConnection) ID() string          { return c.profile.IdentityKey() }
func (c *baseConnection) Kind() Kind          { return c.profile.Kind }
func (c *baseConnection) Region() string      { return c.profile.SsoRegion }
func (c *baseConnection) StartURL() string    { return c.profile.StartURL }
func (c *baseConnection) SessionName() string { return c.profile.SessionName }
func (c *baseConnection) Profile() Profile    { return c.profile }

func (c *baseConnection) Scopes() []string {
	scopes := make([]string, len(c.profile.Scopes))
	copy(scopes, c.profile.Scopes)
	return scopes
}

func (c *baseConnection) resolve(ctx context.Context, conn Connection) (*CredentialSettings, error) {
	if c.resolver == nil {
		return nil, fmt.Errorf("no credential resolver configured for connection %s", conn.ID())
	}
	return c.resolver.ResolveCredentialSettings(ctx, conn)
}

// ManagedConnection is a bearer connection created by the application.
type ManagedConnection struct {
	baseConnection
}

func (c *ManagedConnection) Label() string {
	if c.profile.SessionName != "" {
		return fmt.Sprintf("IAM Identity Center (%s)", c.profile.SessionName)
	}
	return fmt.Sprintf("IAM Identity Center (%s)", c.profile.StartURL)
}

func (c *ManagedConnection) ResolveCredentialSettings(ctx context.Context) (*CredentialSettings, error) {
	return c.resolve(ctx, c)
}

// ProfileConnection is a bearer connection derived from an sso-session
// profile in the user configuration.
type ProfileConnection struct {
	baseConnection
}

func (c *ProfileConnection) Label() string {
	return fmt.Sprintf("sso-session: %s", c.profile.SessionName)
}

func (c *ProfileConnection) ResolveCredentialSettings(ctx context.Context) (*CredentialSettings, error) {
	return c.resolve(ctx, c)
}

// LegacyConnection is a bearer connection identified by start URL and
// region only. Its session name is always empty.
type LegacyConnection struct {
	baseConnection
}

func (c *LegacyConnection) Label() string {
	return fmt.Sprintf("IAM Identity Center (%s)", c.profile.StartURL)
}

func (c *LegacyConnection) ResolveCredentialSettings(ctx context.Context) (*CredentialSettings, error) {
	return c.resolve(ctx, c)
}

// New constructs the connection variant declared by the profile's Kind.
// Legacy profiles have their session name cleared.
func New(profile Profile, resolver CredentialResolver) Connection {
	switch profile.Kind {
	case KindProfile:
		return &ProfileConnection{baseConnection{profile: profile, resolver: resolver}}
	case KindLegacy:
		profile.SessionName = ""
		return &LegacyConnection{baseConnection{profile: profile, resolver: resolver}}
	default:
		return &ManagedConnection{baseConnection{profile: profile, resolver: resolver}}
	}
}

// Equal reports whether two connections are identical by full comparison
// of their originating profiles.
func Equal(a, b Connection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Profile().Equal(b.Profile())
}
