// Package daemon holds the long-running service configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration, loaded from TOML.
type Config struct {
	Bank     BankConfig     `toml:"bank"`
	Storage  StorageConfig  `toml:"storage"`
	API      APIConfig      `toml:"api"`
	Sessions SessionsConfig `toml:"sessions"`
}

// BankConfig identifies the bank and its singular owner.
type BankConfig struct {
	OwnerID  int64  `toml:"owner_id"`
	Currency string `toml:"currency"`
}

// StorageConfig locates the durable state files.
type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
	RolesPath    string `toml:"roles_path"`
}

// APIConfig is the ops HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SessionsConfig tunes the interactive view registry.
type SessionsConfig struct {
	Expiry string `toml:"expiry"` // Go duration string
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".riverbank")
	return Config{
		Bank: BankConfig{
			OwnerID:  1768830793,
			Currency: "units",
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(base, "bank.db"),
			RolesPath:    filepath.Join(base, "roles.toml"),
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Sessions: SessionsConfig{
			Expiry: "60s",
		},
	}
}

// DefaultConfigPath is where LoadConfig looks when given an empty path.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".riverbank", "config.toml")
}

// LoadConfig reads the TOML config at path, layered over defaults. A missing
// file yields the defaults; a malformed file is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the host:port string for the ops listener.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// ExpiryWindow parses the session expiry duration, falling back to 60s on an
// empty or malformed value.
func (c Config) ExpiryWindow() time.Duration {
	d, err := time.ParseDuration(c.Sessions.Expiry)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}
