// Package logs provides log file tailing for the CLI and daemon diagnostics.
//
// It supports negative offsets for "last N lines" reads and a bounded
// follow mode used by `fieldkit show --follow`. Callers supply
// context deadlines so polling shuts down cleanly when the CLI exits.
package logs
