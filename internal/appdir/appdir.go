// Package appdir locates the promptq data directory, which holds the
// configuration file, the default spool directory and the log file.
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// DirEnv overrides the data directory.
	DirEnv = "PROMPTQ_DIR"

	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "config.yaml"

	// SpoolDirName is the name of the default spool subdirectory.
	SpoolDirName = "spool"

	// LogFileName is the name of the default log file.
	LogFileName = "promptq.log"
)

var (
	cachedDir string
	mu        sync.RWMutex
)

// Dir returns the data directory:
//  1. $PROMPTQ_DIR if set
//  2. otherwise the platform default:
//     - macOS: ~/Library/Application Support/promptq
//     - Linux: $XDG_DATA_HOME/promptq or ~/.local/share/promptq
//     - Windows: %APPDATA%\promptq
//
// The directory is not created; see EnsureDir.
func Dir() (string, error) {
	mu.RLock()
	if cachedDir != "" {
		dir := cachedDir
		mu.RUnlock()
		return dir, nil
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if cachedDir != "" {
		return cachedDir, nil
	}

	dir, err := resolveDir()
	if err != nil {
		return "", err
	}

	cachedDir = dir
	return dir, nil
}

func resolveDir() (string, error) {
	if envDir := os.Getenv(DirEnv); envDir != "" {
		return envDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "promptq"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "promptq"), nil
	default:
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		return filepath.Join(dataDir, "promptq"), nil
	}
}

// EnsureDir creates the data directory and its spool subdirectory.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	spool := filepath.Join(dir, SpoolDirName)
	if err := os.MkdirAll(spool, 0755); err != nil {
		return fmt.Errorf("failed to create spool directory %s: %w", spool, err)
	}
	return nil
}

// ConfigPath returns the path of the default configuration file.
func ConfigPath() (string, error) {
	return join(ConfigFileName)
}

// SpoolDir returns the path of the default spool directory.
func SpoolDir() (string, error) {
	return join(SpoolDirName)
}

// LogPath returns the path of the default log file.
func LogPath() (string, error) {
	return join(LogFileName)
}

func join(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ResetCache clears the cached directory path.
// This is primarily useful for testing.
func ResetCache() {
	mu.Lock()
	defer mu.Unlock()
	cachedDir = ""
}
