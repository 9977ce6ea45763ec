// Package config loads, normalizes, and validates battrack configuration
// from TOML files with environment variable overlays for secrets.
package config
