// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName        = "sotto"
	configFileName = "config.json"
)

// Config represents the application configuration.
type Config struct {
	// SocketPath overrides the default host daemon socket location.
	SocketPath string `json:"socket_path,omitempty"`

	// PreferredDevice is passed to start_recording / enable_listening when
	// set; empty means the host picks its default input.
	PreferredDevice string `json:"preferred_device,omitempty"`

	// ModelType selects which speech model the client tracks and offers to
	// download.
	ModelType string `json:"model_type"`

	// HotkeyEnabled turns the global push-to-talk shortcut on.
	HotkeyEnabled bool `json:"hotkey_enabled"`

	// HotkeyChord is the shortcut key list, e.g. ["ctrl","shift","space"].
	HotkeyChord []string `json:"hotkey_chord,omitempty"`
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ModelType == "" {
		cfg.ModelType = defaultConfig().ModelType
	}

	return &cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func defaultConfig() *Config {
	return &Config{
		ModelType:     "tdt",
		HotkeyEnabled: true,
	}
}

func configPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName, configFileName), nil
}
