// Package config provides the configuration for scriptorium runs.
//
// Values are layered, lowest priority first: built-in defaults from
// NewConfig, the YAML file found by FindConfigFile, its ".local" sibling,
// SCRIPTORIUM_* environment variables and finally command line flags.
package config
