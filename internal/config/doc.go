// Package config loads, validates, and defaults the TOML configuration used
// by the daemon and CLI.
//
// Load resolves the config path (explicit flag, then the user config dir,
// then a project-local courier.toml), decodes over Default values, expands
// and normalizes paths, and validates the result. A missing file is not an
// error; defaults apply.
package config
