package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/invdash/invdash/internal/constants"
)

func configDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", constants.AppName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.AppName), nil
}

// StateDirectory holds the preference store and the file snapshot cache.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\invdash
//   - Unix: ~/.config/invdash/state
func StateDirectory() string {
	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, constants.AppName)
		}
	}
	dir, err := configDirectory()
	if err != nil {
		return filepath.Join(os.TempDir(), constants.AppName+"-state")
	}
	return filepath.Join(dir, "state")
}

// LogDirectory returns where the rotating log file goes when enabled
// without an explicit path.
func LogDirectory() string {
	dir, err := configDirectory()
	if err != nil {
		return filepath.Join(os.TempDir(), constants.AppName+"-logs")
	}
	return filepath.Join(dir, "logs")
}

// EnsureDir creates dir with owner-only permissions.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
