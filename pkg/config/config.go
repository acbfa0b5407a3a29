// Package config handles configuration for app-use.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// App settings
	Backend  string `yaml:"backend"`  // appium, flutter, react-native
	Platform string `yaml:"platform"` // android or ios (appium backend)

	// Snapshot settings
	ViewportExpansion int  `yaml:"viewportExpansion"` // px margin for addressability
	Screenshots       bool `yaml:"screenshots"`       // attach screenshots to snapshots

	// Logging
	LogPath  string `yaml:"logPath"`
	LogLevel string `yaml:"logLevel"`
}

// Defaults applied to fields the file leaves empty.
const (
	DefaultBackend  = "appium"
	DefaultLogLevel = "info"
)

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
