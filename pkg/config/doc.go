// Package config handles configuration management for tapkit.
// It supports loading configuration from multiple sources including
// the embedded defaults, a TOML user config file, environment variables,
// and command-line flags.
package config
