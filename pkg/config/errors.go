package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidPollAttempts is returned when size poll attempts is <= 0.
	ErrInvalidPollAttempts = errors.New("invalid size poll attempts: must be > 0")

	// ErrInvalidPollInterval is returned when size poll interval is <= 0.
	ErrInvalidPollInterval = errors.New("invalid size poll interval: must be > 0")

	// ErrInvalidStartTimeout is returned when start timeout is <= 0.
	ErrInvalidStartTimeout = errors.New("invalid start timeout: must be > 0")

	// ErrInvalidMaxReadSize is returned when max read size is <= 0.
	ErrInvalidMaxReadSize = errors.New("invalid max read size: must be > 0")

	// ErrInvalidMaxBatch is returned when max batch is <= 0.
	ErrInvalidMaxBatch = errors.New("invalid max batch: must be > 0")

	// ErrInvalidBufferSize is returned when the watcher buffer size is <= 0.
	ErrInvalidBufferSize = errors.New("invalid watcher buffer size: must be > 0")

	// ErrNoJournalPath is returned when the journal is enabled without a path.
	ErrNoJournalPath = errors.New("journal enabled but no database path specified")

	// ErrInvalidJournalTimeout is returned when journal timeout is <= 0.
	ErrInvalidJournalTimeout = errors.New("invalid journal timeout: must be > 0")

	// ErrInvalidOutputFormat is returned when output format is not recognized.
	ErrInvalidOutputFormat = errors.New("invalid output format: must be text or json")

	// ErrInvalidColorMode is returned when color mode is not recognized.
	ErrInvalidColorMode = errors.New("invalid color mode: must be auto, always, or never")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
