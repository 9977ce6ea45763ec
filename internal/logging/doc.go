// Package logging builds slog loggers with console and JSON handlers.
// The console handler lifts the "component" attribute into a message prefix.
package logging
