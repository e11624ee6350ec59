// Package provider implements bearer-token acquisition for SSO
// connections.
//
// TokenProvider is the boundary the auth coordinators program against: a
// tri-state authorization state, a silent ResolveToken exchange, and an
// interactive Reauthenticate flow. Providers are acquired through a
// Factory so tests can substitute fakes.
//
// DeviceFlowProvider is the production implementation, built on the AWS
// SSO-OIDC device-authorization grant: client registration, device
// authorization, browser hand-off, and token polling, with registrations
// and tokens cached on disk. Token refresh uses the refresh-token grant
// and coalesces concurrent callers through a singleflight group.
package provider
