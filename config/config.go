package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DeviceConfig defines how to reach the instrument
type DeviceConfig struct {
	Address   string  `json:"address,omitempty"`   // instrument resource address
	Channels  []int   `json:"channels,omitempty"`  // analog channels in use
	ClockRate float64 `json:"clockRate,omitempty"` // sample clock in Hz
	Simulate  bool    `json:"simulate,omitempty"`  // use the built-in simulator
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastContainer string `json:"lastContainer,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Device       DeviceConfig `json:"device,omitempty"`
	ContainerDir string       `json:"containerDir,omitempty"`
	UI           UIConfig     `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Channels:  []int{1, 2},
			ClockRate: 1.2e9,
			Simulate:  true,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "awgctl"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Device.Channels) == 0 {
		cfg.Device.Channels = DefaultConfig().Device.Channels
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
