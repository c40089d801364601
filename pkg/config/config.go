/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/

// Package config loads and saves the on-disk YAML configuration for an
// eventkv-backed process: where its data directory lives, how the Store
// inside it is tuned, and how it logs.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/freyja-labs/eventkv/pkg/storeerr"
)

// Config is the top-level configuration for an eventkv-backed process.
type Config struct {
	DataDir string  `yaml:"data_dir"`
	Store   Store   `yaml:"store"`
	Logging Logging `yaml:"logging"`
}

// Store configures the pkg/store.Store a process opens over DataDir.
type Store struct {
	// BufferSize is the initial payload buffer size in bytes.
	BufferSize int `yaml:"buffer_size"`

	// ForceCRC32 makes every frame use CRC32C regardless of payload size.
	ForceCRC32 bool `yaml:"force_crc32"`

	// SaveMode selects how Save retires obsolete generation files: "sync",
	// "async_clear", or "fork_save" (degrades to async_clear).
	SaveMode string `yaml:"save_mode"`

	// CreateDir creates DataDir at construction time if it is missing.
	CreateDir bool `yaml:"create_dir"`

	// DeleteData wipes any existing generation files in DataDir before
	// loading, discarding prior history.
	DeleteData bool `yaml:"delete_data"`
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Store: Store{
			BufferSize: 512 * 1024,
			ForceCRC32: false,
			SaveMode:   "sync",
			CreateDir:  true,
			DeleteData: false,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. configPath is
// resolved to an absolute path first so error messages name the file
// unambiguously regardless of the caller's working directory. DataDir is
// returned exactly as written in the file; a relative DataDir is not
// resolved.
func LoadConfig(configPath string) (*Config, error) {
	configPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, storeerr.Wrapf(storeerr.ErrConfig, "resolve config path %q", configPath)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, storeerr.Wrapf(storeerr.ErrConfig, "config file %q does not exist", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, storeerr.Wrapf(storeerr.ErrIoRead, "read config file %q", configPath)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, storeerr.Wrapf(storeerr.ErrConfig, "parse config file %q", configPath)
	}

	return &config, nil
}

// SaveConfig saves the configuration to the specified path. It writes the
// marshalled YAML to a sibling temp file and renames it into place, the
// same crash-safe write-then-rename sequence pkg/store/store.go uses for
// snapshot files, so a process killed mid-write never leaves configPath
// holding a truncated document.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return storeerr.Wrapf(storeerr.ErrDirectoryCreateFailed, "create config directory %q", configDir)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return storeerr.Wrap(err, "marshal config")
	}

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return storeerr.Wrapf(storeerr.ErrIoWrite, "write config temp file %q", tmpPath)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		return storeerr.Wrapf(storeerr.ErrIoRename, "rename config temp file into %q", configPath)
	}

	return nil
}

// BootstrapConfig creates a new configuration file with default values if
// one does not already exist at configPath, overriding DataDir when given.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	if err := SaveConfig(config, configPath); err != nil {
		return nil, storeerr.Wrap(err, "save bootstrap config")
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the
// current platform.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./eventkv.yaml"
	}

	configDir := filepath.Join(homeDir, ".config", "eventkv")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
