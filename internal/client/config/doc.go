// Package config loads runtime configuration for the docvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are decoded as YAML, everything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Intervals use timex.Duration, so values can be strings like "300ms" or
// integer nanoseconds:
//
//	data_dir: /var/lib/docvault
//	log_level: debug
//	persist_debounce: 300ms
//	max_upload_size: 52428800
//	stream_interval: 24ms
//	access_token_ttl: 1h
//
// This package does not read environment variables.
package config
