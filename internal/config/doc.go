// Package config loads, normalizes, and validates edgarfeed configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EDGARFEED_STORE_DSN and EDGARFEED_USER_AGENT. The Config type centralizes
// every knob the pipeline and CLI need: feed and filing directories, archive
// source and fair-use settings, worker pool sizing, store and blob backends.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
