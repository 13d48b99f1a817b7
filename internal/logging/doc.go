// Package logging wires log/slog with console and JSON handlers, shared
// attribute helpers, standardized field names, and log retention cleanup.
package logging
