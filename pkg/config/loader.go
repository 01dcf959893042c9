package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig      = "FILETAIL_CONFIG"
	EnvJournalDB   = "FILETAIL_JOURNAL_DB"
	EnvLogLevel    = "FILETAIL_LOG_LEVEL"
	EnvMetricsAddr = "FILETAIL_METRICS_ADDR"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)

	// Path returns the configuration file Load reads, or "" when only
	// defaults and environment apply.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, the first existing file from SearchPaths is used.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	// Start with default configuration
	cfg := Default()

	// Load from file if it exists
	if configPath := l.Path(); configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// If file is specified but can't be loaded, return error
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
			// Otherwise, just use defaults
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	// Apply environment variable overrides
	cfg = l.applyEnvVars(cfg)

	// Validate final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}

	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are non-zero.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	// Merge tailer config
	if override.Tailer.SizePollAttempts > 0 {
		result.Tailer.SizePollAttempts = override.Tailer.SizePollAttempts
	}
	if override.Tailer.SizePollInterval > 0 {
		result.Tailer.SizePollInterval = override.Tailer.SizePollInterval
	}
	if override.Tailer.StartTimeout > 0 {
		result.Tailer.StartTimeout = override.Tailer.StartTimeout
	}
	if override.Tailer.MaxReadSize > 0 {
		result.Tailer.MaxReadSize = override.Tailer.MaxReadSize
	}

	// Merge watcher config
	if override.Watcher.MaxBatch > 0 {
		result.Watcher.MaxBatch = override.Watcher.MaxBatch
	}
	if override.Watcher.BufferSize > 0 {
		result.Watcher.BufferSize = override.Watcher.BufferSize
	}

	// Merge journal config
	// Enabled is a bool, so we always take the override value
	result.Journal.Enabled = override.Journal.Enabled
	if override.Journal.DBPath != "" {
		result.Journal.DBPath = expandHome(override.Journal.DBPath)
	}
	if override.Journal.Timeout > 0 {
		result.Journal.Timeout = override.Journal.Timeout
	}

	// Merge metrics config
	if override.Metrics.Addr != "" {
		result.Metrics.Addr = override.Metrics.Addr
	}

	// Merge output config
	if override.Output.Format != "" {
		result.Output.Format = override.Output.Format
	}
	if override.Output.Color != "" {
		result.Output.Color = override.Output.Color
	}

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - FILETAIL_CONFIG: Path to config file (see SearchPaths)
//   - FILETAIL_JOURNAL_DB: Path to journal database; enables the journal
//   - FILETAIL_LOG_LEVEL: Log level
//   - FILETAIL_METRICS_ADDR: Listen address for /metrics
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if dbPath := os.Getenv(EnvJournalDB); dbPath != "" {
		result.Journal.DBPath = expandHome(dbPath)
		result.Journal.Enabled = true
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(strings.TrimSpace(logLevel))
	}

	if addr := os.Getenv(EnvMetricsAddr); addr != "" {
		result.Metrics.Addr = addr
	}

	return &result
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
