// Package config loads, normalizes, and validates shipwright configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, exports the optional local settings file into
// the environment, and honours credential fallbacks such as PYPI_TOKEN and
// GITHUB_TOKEN. The Config value is the single explicit source of settings the
// orchestrator receives; nothing downstream reads ambient environment.
package config
