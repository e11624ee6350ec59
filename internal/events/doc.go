// Package events provides the typed publish/subscribe bus connecting the
// connection registry, the auth manager, and the token provider layer.
//
// Three topics exist:
//
//   - session-changed: an sso-session profile was added, modified, or
//     removed in the external profile source
//   - provider-invalidated: a token provider must discard its credentials
//   - active-connection-changed: the active connection switched (possibly
//     to none)
//
// Delivery is ordered and synchronous within a publish call: a publisher
// returns only after every subscriber registered at publish time has run.
// Subscribers may publish and subscribe reentrantly.
package events
