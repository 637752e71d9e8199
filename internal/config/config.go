// Package config loads user preferences from an XDG-located TOML file.
// Environment variables always win over file values; the file exists for
// settings people do not want to thread through their shell profile.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all claudeline preferences.
type Config struct {
	General GeneralConfig `toml:"general"`
	Remote  RemoteConfig  `toml:"remote"`
}

// GeneralConfig holds scan and output preferences.
type GeneralConfig struct {
	// Output selects the default render style: "text" or "json".
	Output string `toml:"output"`
	// ExtraRoots are additional directories scanned for transcripts, on
	// top of the standard Claude config locations.
	ExtraRoots []string `toml:"extra_roots,omitempty"`
	// LookbackHours bounds transcript discovery by file mtime.
	LookbackHours *int `toml:"lookback_hours,omitempty"`
}

// RemoteConfig holds usage-endpoint preferences.
type RemoteConfig struct {
	FetchUsage *bool `toml:"fetch_usage,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{Output: "text"},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "claudeline")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "claudeline")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
