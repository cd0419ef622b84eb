// Package config loads, validates, and normalizes the service configuration.
//
// Configuration is read from a TOML file (explicit path, then
// ~/.config/converteasy/config.toml, then ./converteasy.toml) layered over
// built-in defaults. All path fields are expanded and made absolute during
// load. The shared task store is selected at runtime by the REDIS_URL
// environment variable or the [store] section; everything else is static for
// the life of the process.
package config
