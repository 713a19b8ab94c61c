package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	ServerURL      string `toml:"server_url"`
	DataDir        string `toml:"data_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GetXDGDataHome returns XDG_DATA_HOME or default path
func GetXDGDataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// GetCacheDir returns the application cache directory under
// XDG_CACHE_HOME or its default path
func GetCacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "karuta")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".cache", "karuta")
}

// GetDefaultDataDir returns the default catalog data directory
func GetDefaultDataDir() string {
	return filepath.Join(GetXDGDataHome(), "karuta")
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() string {
	return filepath.Join(GetXDGConfigHome(), "karuta", "config.toml")
}

// LoadConfig loads the config file
func LoadConfig() (*Config, error) {
	configPath := GetConfigFilePath()

	// Create default config if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig()
	}

	var config Config
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return nil, fmt.Errorf("error decoding config file: %v", err)
	}

	return &config, nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig() (*Config, error) {
	configPath := GetConfigFilePath()
	configDir := filepath.Dir(configPath)

	// Ensure the config directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating config directory: %v", err)
	}

	// Create default config
	config := &Config{
		ServerURL:      "http://localhost:8080",
		DataDir:        GetDefaultDataDir(),
		TimeoutSeconds: 30,
	}

	// Create the file
	file, err := os.Create(configPath)
	if err != nil {
		return nil, fmt.Errorf("error creating config file: %v", err)
	}
	defer file.Close()

	// Encode the config to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return nil, fmt.Errorf("error encoding config: %v", err)
	}

	return config, nil
}

// ResolvedDataDir returns the configured data directory, falling back
// to the XDG default when unset
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return GetDefaultDataDir()
}

// Timeout returns the configured remote timeout
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
