// Package config handles configuration loading for hearth-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. Fields left unset fall back to defaults that talk to a
// local Ollama.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "127.0.0.1:5000"
//
// Backend:
//
//	backend:
//	  url: "http://127.0.0.1:11434"
//	  model: "qwen3:8b"
//	  timeout: "90s"
//
// Persona (empty path uses the embedded default):
//
//	persona:
//	  path: "/etc/hearth/persona.toml"
//
// Transcript sink:
//
//	transcript:
//	  driver: "sqlite"   # sqlite, file
//	  path: "data/transcripts.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backend:
//	  model: "${HEARTH_MODEL}"
//
// Duration values use Go's time.ParseDuration syntax (ns, us, ms, s, m, h).
package config
