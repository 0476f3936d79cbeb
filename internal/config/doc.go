// Package config loads Grace server configuration from a JSON file with
// GRACE_* environment overlays, and resolves the OS-specific default data
// directory.
package config
