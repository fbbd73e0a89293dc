// Package config holds the settings of a single kv-store node and loads
// them from YAML, JSON or TOML files.
//
// File values are applied over DefaultConfig; command-line flags and
// KVSTORE_* environment variables are layered on top by cmd/kv-store.
package config
