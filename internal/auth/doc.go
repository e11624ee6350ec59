// Package auth coordinates federated SSO bearer-token identities: it
// keeps the connection registry synchronized with external session
// changes, tracks the single active connection, and runs the login and
// logout decision procedures.
//
// The login procedure evaluates in fixed precedence: reuse an authorized
// connection whose granted scopes cover the request; otherwise silently
// refresh or interactively reauthorize an existing connection; otherwise
// merge scopes into a replacement connection (or create one) and run the
// interactive flow. Scope merge is union-only, so granted access never
// silently shrinks.
//
// Interactive authorization runs as a cancellable background Task. When
// two logins for the same identity race, the last one to complete
// determines the active connection; registry replacement stays atomic so
// the tasks cannot interleave a corrupted merge.
package auth
