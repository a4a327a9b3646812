// Package config loads, validates, and normalizes gleaner's TOML
// configuration. Defaults live in defaults.go; Load layers a config file on
// top of them, expands paths, and enforces cross-field invariants.
package config
