// Package logging provides structured logging for ssohub, built on the
// standard slog package.
//
// All log entries carry a subsystem identifier for categorization:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Auth", "created connection %s", id)
//	logging.Error("Provider", err, "token refresh failed")
//
// Subsystems in use: Auth, Registry, Provider, Events, Config, Telemetry.
//
// Credential material (access tokens, refresh tokens, client secrets) must
// never be passed to any logging call; log connection IDs and start URLs
// instead.
package logging
