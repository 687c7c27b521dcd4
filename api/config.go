/*
config.go - Server configuration

PURPOSE:
  Optional TOML config file for the server, with defaults suitable for
  local development. Precedence: defaults < config file < command-line
  flags (applied in cmd/server).
*/
package api

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig controls persistence.
type DatabaseConfig struct {
	Path string `toml:"path"` // SQLite path; ":memory:" for in-memory
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Path: "streaks.db",
		},
	}
}

// LoadConfig reads the TOML config at path, falling back to defaults
// when the file does not exist. An empty path always yields defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
