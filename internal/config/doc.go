// Package config reads the sso-session profiles from the user
// configuration and watches them for changes.
//
// The session file (~/.config/ssohub/sessions.yaml) is the external
// profile source: its entries become profile-derived connections in the
// registry. The Watcher turns file edits into session-changed
// notifications on the event bus, keyed by session name, which the auth
// manager applies to the registry.
package config
