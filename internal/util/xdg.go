package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "abcta"

// GetXDGDataDir returns the XDG data directory for abcta.
// It respects XDG_DATA_HOME if set, otherwise falls back to ~/.local/share/abcta
func GetXDGDataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", appName), nil
}

// ProfilePath returns the file holding the named browser profile.
func ProfilePath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid profile name %q", name)
	}

	dir, err := GetXDGDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles", name+".json"), nil
}
