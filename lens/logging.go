package lens

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ErrorLogPrefix is prepended to fatal messages printed by the commands.
const ErrorLogPrefix = "!! "

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// Logger returns the package logger.
func Logger() *zerolog.Logger {
	return &logger
}

// SetLogger replaces the package logger, it must be called before any grouping work starts.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// SetLogLevel sets the package logger level from its name (debug, info, warn, error, disabled).
func SetLogLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger = logger.Level(lvl)
	return nil
}
