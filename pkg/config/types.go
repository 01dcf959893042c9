// Package config provides configuration management for filetail.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Journal: %s\n", cfg.Journal.DBPath)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Tailer.SizePollAttempts must be > 0
// - Tailer.SizePollInterval must be > 0
// - Tailer.StartTimeout must be > 0
// - Tailer.MaxReadSize must be > 0
// - Watcher.MaxBatch and Watcher.BufferSize must be > 0
// - Journal.DBPath must be set when the journal is enabled
// - Journal.Timeout must be > 0.
type Config struct {
	// Tail engine settings
	Tailer TailerConfig `yaml:"tailer" json:"tailer"`

	// Notification source settings
	Watcher WatcherConfig `yaml:"watcher" json:"watcher"`

	// Event journal settings
	Journal JournalConfig `yaml:"journal" json:"journal"`

	// Prometheus endpoint settings
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Event output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TailerConfig contains tail engine settings.
type TailerConfig struct {
	// Size polls per modify event while the size still equals the cursor
	SizePollAttempts int `yaml:"size_poll_attempts" json:"size_poll_attempts"`

	// Delay between size polls
	SizePollInterval time.Duration `yaml:"size_poll_interval" json:"size_poll_interval"`

	// How long to wait for the tailer to start
	StartTimeout time.Duration `yaml:"start_timeout" json:"start_timeout"`

	// Largest chunk passed to one receive
	MaxReadSize int `yaml:"max_read_size" json:"max_read_size"`
}

// WatcherConfig contains notification source settings.
type WatcherConfig struct {
	// Maximum events returned per batch
	MaxBatch int `yaml:"max_batch" json:"max_batch"`

	// fsnotify event buffer
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// JournalConfig contains event journal settings.
type JournalConfig struct {
	// Record events for later inspection with "filetail stats"
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path to BoltDB database file
	DBPath string `yaml:"db_path" json:"db_path"`

	// How long to wait for the database lock
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// MetricsConfig contains Prometheus endpoint settings.
type MetricsConfig struct {
	// Listen address for /metrics; empty disables the endpoint
	Addr string `yaml:"addr" json:"addr"`
}

// OutputConfig contains event output settings.
type OutputConfig struct {
	// Event format (text, json)
	Format string `yaml:"format" json:"format"`

	// Color mode (auto, always, never)
	Color string `yaml:"color" json:"color"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Returns an error if any invariant is violated:
//   - Invalid poll settings, read size or timeouts (must be > 0)
//   - Invalid batch or buffer size (must be > 0)
//   - Journal enabled without a database path
//   - Invalid output format or color mode
//   - Invalid log level or format
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	// Validate tailer config
	if c.Tailer.SizePollAttempts <= 0 {
		return ErrInvalidPollAttempts
	}
	if c.Tailer.SizePollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Tailer.StartTimeout <= 0 {
		return ErrInvalidStartTimeout
	}
	if c.Tailer.MaxReadSize <= 0 {
		return ErrInvalidMaxReadSize
	}

	// Validate watcher config
	if c.Watcher.MaxBatch <= 0 {
		return ErrInvalidMaxBatch
	}
	if c.Watcher.BufferSize <= 0 {
		return ErrInvalidBufferSize
	}

	// Validate journal config
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return ErrNoJournalPath
	}
	if c.Journal.Timeout <= 0 {
		return ErrInvalidJournalTimeout
	}

	// Validate output config
	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Output.Format] {
		return ErrInvalidOutputFormat
	}

	validColors := map[string]bool{
		"auto":   true,
		"always": true,
		"never":  true,
	}
	if !validColors[c.Output.Color] {
		return ErrInvalidColorMode
	}

	// Validate logging config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Tailer: TailerConfig{
			SizePollAttempts: 20,
			SizePollInterval: 100 * time.Millisecond,
			StartTimeout:     2 * time.Second,
			MaxReadSize:      1 << 20,
		},
		Watcher: WatcherConfig{
			MaxBatch:   64,
			BufferSize: 256,
		},
		Journal: JournalConfig{
			Enabled: false,
			DBPath:  defaultDBPath(),
			Timeout: 1 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
