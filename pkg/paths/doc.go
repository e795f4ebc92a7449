// Package paths provides centralized path handling for tapkit.
//
// It resolves tapkit's own directories following the XDG Base Directory
// specification and describes the layout of an install prefix.
//
// # Environment Variables
//
//   - TAPKIT_STATE_DIR: Override the state directory (default: $XDG_STATE_HOME/tapkit)
//   - TAPKIT_CACHE_DIR: Override the cache directory (default: $XDG_CACHE_HOME/tapkit)
//   - TAPKIT_CONFIG_DIR: Override the config directory (default: $XDG_CONFIG_HOME/tapkit)
//
// # State Directory Structure
//
//   - packages/<name>.json: one installed-state record per package
//   - locks/<name>.lock: per-package advisory lock files
//   - tapkit.log: the log file
//
// # Prefix Layout
//
// An install prefix contains bin, lib and share. Recipe destinations are
// prefix-relative and must live under one of those three directories.
package paths
