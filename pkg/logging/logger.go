// Package logging provides structured logging for the gatelink runtime using zerolog.
// Console output is used when stderr is a terminal and JSON output otherwise, so
// the same binary reads well interactively and feeds log pipelines in production.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("subscription_id", id).Msg("Event channel ready")
//
//	ctx := logging.WithSession(context.Background(), "https://gw.example.com/api")
//	logging.FromContext(ctx).Debug().Msg("Keep-alive sent")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger is configured from the LOG_* environment at startup.
var defaultLogger = NewLoggerFromConfig(ConfigFromEnv())

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger // Also update zerolog's global logger
}

// OrDefault returns logger, or the default logger when logger is nil.
func OrDefault(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		return Default()
	}
	return logger
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
