// Package logging configures the slog loggers used across the daemon and
// CLI, including the console and JSON handlers and the standardized
// attribute keys for connection, filename, and stage context.
package logging
