// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration. Logs go to stderr
// so the mapping table can be written to stdout without interleaving.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Individual submission attempts (ids, from, to)
//   - Parsed row counts per response
//
// Info: Normal operation events
//   - Run start/completion with chunk counts
//   - Per-chunk completion with cumulative queried count
//   - Chunks restored from a checkpoint
//
// Warn: Conditions that don't abort the run
//   - Failed attempts and retry waits
//   - Exhausted chunks (skipped, run continues)
//   - Checkpoint store errors (run falls back to resubmission)
//
// Error: Conditions that abort the run
//   - Invalid configuration
//   - Unreadable input or unwritable output
//
// Context Fields:
//   - chunk: zero-based chunk index in submission order
//   - attempt: attempt number within a chunk (1-based)
//   - status: HTTP status code from the service
//   - error_class: failure classification (network, server, rate_limit, client, malformed)
//   - rows: mapping rows parsed or aggregated
//   - queried: cumulative identifiers submitted so far
//   - from, to: namespace codes
//   - delay: configured inter-attempt/inter-chunk wait
