// Package xdg resolves per-user state, data, and config directories.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "murmur"

// StateDir returns $XDG_STATE_HOME/murmur or ~/.local/state/murmur.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", ".local", "state")
}

// DataDir returns $XDG_DATA_HOME/murmur or ~/.local/share/murmur.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", ".local", "share")
}

// ConfigDir returns $XDG_CONFIG_HOME/murmur or ~/.config/murmur.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

func resolve(env string, homeFallback ...string) (string, error) {
	if base := strings.TrimSpace(os.Getenv(env)); base != "" {
		return filepath.Join(base, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for %s: %w", env, err)
	}
	parts := append([]string{home}, homeFallback...)
	return filepath.Join(append(parts, appDir)...), nil
}

// RuntimeDir returns $XDG_RUNTIME_DIR. There is no fallback because the
// directory must be private to the user session.
func RuntimeDir() (string, error) {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set")
	}
	return dir, nil
}
