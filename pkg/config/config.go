/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Memory backends
const (
	BackendFile = "file"
	BackendWasm = "wasm"
)

// Config represents the savelayout configuration
type Config struct {
	Memory  Memory  `yaml:"memory"`
	Journal Journal `yaml:"journal"`
	Codec   Codec   `yaml:"codec"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Memory selects the memory image to edit
type Memory struct {
	Path    string `yaml:"path"`
	Backend string `yaml:"backend"`
	// Wasm backend only: exported memory name and the guest window
	Export string `yaml:"export,omitempty"`
	Offset uint32 `yaml:"offset,omitempty"`
	Size   uint32 `yaml:"size,omitempty"`
}

// Journal configures the edit history
type Journal struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Sync    bool   `yaml:"sync"`
}

// Codec contains decoding policy
type Codec struct {
	LenientStrings bool `yaml:"lenient_strings"`
}

// Server contains REST API configuration
type Server struct {
	Port        int      `yaml:"port"`
	Bind        string   `yaml:"bind"`
	APIKey      string   `yaml:"api_key"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Memory: Memory{
			Path:    "./wram.bin",
			Backend: BackendFile,
		},
		Journal: Journal{
			Enabled: true,
			Dir:     "./journal",
		},
		Server: Server{
			Port:   8080,
			Bind:   "127.0.0.1",
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for values the tools cannot use
func (c *Config) Validate() error {
	var errs []error

	if c.Memory.Path == "" {
		errs = append(errs, errors.New("memory.path is required"))
	}
	switch c.Memory.Backend {
	case BackendFile, BackendWasm:
	default:
		errs = append(errs, fmt.Errorf("memory.backend %q must be %s or %s", c.Memory.Backend, BackendFile, BackendWasm))
	}

	if c.Journal.Enabled && c.Journal.Dir == "" {
		errs = append(errs, errors.New("journal.dir is required when the journal is enabled"))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new configuration with a generated API key
func BootstrapConfig(configPath string, memoryPath string) (*Config, error) {
	config := DefaultConfig()
	if memoryPath != "" {
		config.Memory.Path = memoryPath
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./savelayout.yaml"
	}

	// For Linux/macOS, use ~/.config/savelayout/config.yaml
	configDir := filepath.Join(homeDir, ".config", "savelayout")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
