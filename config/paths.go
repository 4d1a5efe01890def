// ABOUTME: XDG-based lookup of the default siteview config file.
// ABOUTME: Checks XDG_CONFIG_HOME first, then falls back to ~/.config/siteview/siteview.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigName is the file name looked up in the config directory.
const DefaultConfigName = "siteview.yaml"

// DefaultConfigDir returns the directory searched for DefaultConfigName.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "siteview"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", "siteview"), nil
}

// FindConfigFile returns explicit when set. Otherwise it returns the default
// config file if one exists, or "" to run on defaults and environment alone.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, DefaultConfigName)
	if !fileExists(p) {
		return ""
	}
	return p
}
