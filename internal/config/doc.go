// Package config loads, normalizes, and validates convocoach configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CONVOCOACH_ANALYSIS_API_KEY. The Config type centralizes every knob the CLI
// and pipeline need: data and log directories, the artifact root served by the
// local object store, analysis provider credentials, and the optional phrase
// catalog override.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
