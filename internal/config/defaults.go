package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath returns the default directory for sttgate
// configuration files (registry overlay, future settings).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "sttgate", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "sttgate")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "sttgate")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "sttgate")
		}
		return filepath.Join(home, ".config", "sttgate")
	}
}

// DefaultHTTPPort is the HTTP port used when neither a flag nor the
// PORT environment variable is set.
func DefaultHTTPPort() int {
	return DefaultPort
}
