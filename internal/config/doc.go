// Package config loads, validates, and normalizes the TOML configuration
// that drives the vibecast pipeline.
package config
