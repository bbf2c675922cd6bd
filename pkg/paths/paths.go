package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the user's config directory for model-switcher.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory. This is a best-effort fallback and
// not intended to be a security boundary.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".model-switcher-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", "model-switcher"))
}

// GetDataDir returns the user's data directory for model-switcher (history, journal, logs).
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".model-switcher"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".model-switcher"))
}

// GetOpenClawDir returns the directory holding the agent gateway's own state,
// where its openclaw.json lives.
func GetOpenClawDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".openclaw"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".openclaw"))
}

// GetHomeDir returns the user's home directory.
//
// Returns an empty string if the home directory cannot be determined.
func GetHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Clean(homeDir)
}
