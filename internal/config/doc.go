// Package config loads and validates fieldkit configuration.
//
// Configuration lives in a TOML file, by default at
// ~/.config/fieldkit/config.toml, with nested sections per subsystem.
// Load applies defaults, expands paths, and validates the result so the
// rest of the codebase can rely on a well-formed Config.
package config
