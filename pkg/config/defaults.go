package config

import (
	"os"
	"path/filepath"
)

// configDir returns ~/.config/filetail, or "." without a home directory.
func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", "filetail")
}

// defaultDBPath returns the default journal database path.
//
// Returns: ~/.config/filetail/journal.db.
func defaultDBPath() string {
	return filepath.Join(configDir(), "journal.db")
}

// DefaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/filetail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// SearchPaths returns the configuration file candidates in order of
// precedence. FILETAIL_CONFIG, when set, comes first.
func SearchPaths() []string {
	var paths []string
	if env := os.Getenv(EnvConfig); env != "" {
		paths = append(paths, env)
	}

	return append(paths,
		"./filetail.yaml",
		DefaultConfigPath(),
		"/etc/filetail/config.yaml",
	)
}
