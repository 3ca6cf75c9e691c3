// Package logger provides leveled logging for the loractl application.
//
// The package exposes a printf-style API (Debug, Info, Warn, Error) used
// throughout the codebase. Output goes to stderr through a zerolog console
// writer so training output on stdout stays clean for piping.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.TimeOnly,
}).With().Timestamp().Logger()

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SetVerbose enables or disables debug-level output.
//
// This is wired to the CLI's --verbose flag. When disabled (the default),
// Debug calls are suppressed.
func SetVerbose(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Debug logs a message at debug level.
func Debug(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

// Info logs a message at info level.
func Info(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}

// Warn logs a message at warning level.
func Warn(format string, args ...interface{}) {
	log.Warn().Msgf(format, args...)
}

// Error logs a message at error level.
func Error(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
}
