package provider

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"ssohub/internal/connection"
)

// State is the authorization state of a token provider.
type State int

const (
	// StateNotAuthenticated means no credential exists; an interactive
	// authorization flow is required.
	StateNotAuthenticated State = iota

	// StateNeedsRefresh means the access token expired but a refresh
	// credential exists; a silent token exchange suffices.
	StateNeedsRefresh

	// StateAuthorized means a valid access token exists.
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateAuthorized:
		return "authorized"
	case StateNeedsRefresh:
		return "needs-refresh"
	case StateNotAuthenticated:
		return "not-authenticated"
	default:
		return "unknown"
	}
}

// ErrReauthRequired is returned by ResolveToken when silent refresh is not
// possible and a full interactive authorization is needed.
var ErrReauthRequired = errors.New("reauthentication required")

// TokenProvider obtains and refreshes bearer tokens for one connection
// identity.
type TokenProvider interface {
	// ID is the connection identity this provider serves.
	ID() string

	// State reports the current authorization state. It performs no
	// side effects.
	State() State

	// ResolveToken returns a valid access token, silently exchanging the
	// stored refresh credential if the access token expired.
	ResolveToken(ctx context.Context) (*oauth2.Token, error)

	// Reauthenticate runs the full interactive authorization flow. It may
	// block on out-of-process user interaction and honors ctx
	// cancellation.
	Reauthenticate(ctx context.Context) error
}

// Factory acquires the token provider for a connection. Injecting the
// factory lets tests substitute a fake provider without intercepting
// construction.
type Factory interface {
	ProviderFor(conn connection.Connection) (TokenProvider, error)
}
