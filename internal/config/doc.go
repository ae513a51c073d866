// Package config loads, validates, and normalizes the TOML configuration
// file. All path values are tilde-expanded and absolute after Load; callers
// never see raw user input.
package config
