// Package logging wraps log/slog with the handlers, attribute helpers, and
// standardized field names used across the service.
//
// All packages log through *slog.Logger instances constructed here so output
// format (json or console) and level are controlled in one place. Components
// should derive their logger with NewComponentLogger and attach task context
// with the Field* constants rather than inventing ad hoc keys.
package logging
