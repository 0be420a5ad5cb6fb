// Package config handles loading and parsing the carradio configuration file.
//
// # Overview
//
// carradio needs to know where the radio backend accepts actions and where it
// pushes state. Everything else (log destination and verbosity) is optional.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/carradio/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/carradio/config.toml
//   - Backend: 127.0.0.1:7488
//   - Resource: CR-VehicleRadio (action URLs are <backend>/<resource>/<action>)
//   - Push URL: derived from the backend host as ws://<host>/push
//   - Log file: ~/.local/share/carradio/carradio.log
//
// # TOML Format
//
//	backend_url = "http://127.0.0.1:7488"
//	resource = "CR-VehicleRadio"
//	push_url = "ws://127.0.0.1:7488/push"
//	discover = false
//	log_file = "~/.local/share/carradio/carradio.log"
//	log_level = "info"
//
// All fields are optional. Tilde expansion is performed on log_file. When
// discover is set, the caller browses mDNS for a backend and replaces the
// configured address through WithBackend.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// Missing config files are NOT an error. carradio talks to a local backend on
// the default port without any configuration.
package config
