// Package logger builds the zerolog logger shared by the CLI and the API server.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level  string    // debug, info, warn, error
	Pretty bool      // console output instead of JSON
	Output io.Writer // defaults to os.Stderr; stdout is reserved for command output
}

// New creates a structured logger and sets the global level.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// FromFormat maps the logging.format config value onto Pretty.
func FromFormat(level, format string) Config {
	return Config{Level: level, Pretty: strings.EqualFold(format, "text")}
}

// SetGlobalLogger sets the package-level logger.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
