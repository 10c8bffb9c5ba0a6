// Package config loads, validates, and normalizes the TOML configuration
// for the spool daemon and CLI.
package config
