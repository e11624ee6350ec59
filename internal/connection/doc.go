// Package connection defines the SSO connection identity model and the
// deduplicated registry that owns it.
//
// A Profile is the identity descriptor (region, start URL, scopes,
// optional session name). A Connection is one of three variants over the
// same capability set: managed (application-created), profile (derived
// from an sso-session in the user configuration), and legacy (identified
// by start URL and region only). The identity key derived from a profile
// is deterministic, so a persisted profile and a live token provider
// resolve to the same registry slot across restarts.
//
// Connections carry identity data only. Bearer credentials are resolved on
// demand through a CredentialResolver and never enter the serialized
// state.
package connection
