// Package config provides user configuration management for doorbellctl.
//
// This package manages a YAML-based configuration file that names doorbells
// (address, port, token file, wire profile) and holds the timing preferences
// used by the transport and the uploader.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/doorbell/config.yaml or $HOME/.config/doorbell/config.yaml
//   - macOS: $HOME/.config/doorbell/config.yaml
//   - Windows: %LOCALAPPDATA%\doorbell\config.yaml
//
// # Example
//
//	version: 1
//	devices:
//	  front:
//	    address: 192.168.4.69
//	    port: 80
//	    token_file: front.token
//	preferences:
//	  default_device: front
//	  backoff_ms: 500
//	  pacing_ms: 1200
//	  dial_timeout_ms: 5000
//	  read_timeout_ms: 5000
//	  max_attempts: 0
//
// # Security
//
// The token itself is never written here; see package credentials.
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
