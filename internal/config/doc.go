// Package config loads, normalizes, and validates posterjoin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours
// environment fallbacks such as POSTERJOIN_DATASET_DIR. Dataset file paths
// that are not set explicitly are derived from the dataset directory so a
// stock MovieLens 1M checkout works with a single setting.
//
// Always obtain settings through this package so the fetch and filter runs
// receive absolute paths and clear validation errors.
package config
