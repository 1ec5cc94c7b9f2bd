// Package logging configures structured logging for fieldkit.
//
// It wraps log/slog with a console handler for interactive use, a JSON
// handler for machine consumption, and attribute helpers shared by the
// rest of the codebase. Loggers write to stdout/stderr and to the
// configured log directory.
package logging
