package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first.
// Environment variables:
//   - MANTIS_CONFIG_PATH: config file location (default: ~/.config/mantis.toml)
//   - MANTIS_HOME: base directory for mantis data (default: ~/.local/share/mantis)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"data_dir":    filepath.Join(baseDir, "data"),
	}, nil
}

// getConfigPath returns the config file path, checking MANTIS_CONFIG_PATH
// first, then falling back to ~/.config/mantis.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("MANTIS_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "mantis.toml"), nil
}

// getBaseDir returns the base directory for mantis data, checking
// MANTIS_HOME first, then falling back to the XDG default
// ~/.local/share/mantis.
func getBaseDir() (string, error) {
	if path := os.Getenv("MANTIS_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "mantis"), nil
}
