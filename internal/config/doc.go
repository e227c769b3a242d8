// Package config loads, validates, and defaults the TOML configuration for
// the dubbing pipeline. All tunables (API endpoints, alignment policy, tool
// binaries, directories) live here so the rest of the code never reads files
// or environment on its own.
package config
