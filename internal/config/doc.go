// Package config loads, normalizes, and validates Reelhold configuration
// from TOML files with sensible defaults for every field.
package config
