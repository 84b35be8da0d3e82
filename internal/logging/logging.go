// Package logging builds the structured loggers shared by the service.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures a logger.
type Options struct {
	Level  string    // debug, info, warn, error (default: info)
	Format string    // console or json (default: console)
	Writer io.Writer // default: os.Stderr
}

// New returns a logger for the given options.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	logger := &log.Logger{
		Level:      ParseLevel(opts.Level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		logger.Writer = &log.IOWriter{Writer: w}
	default:
		logger.Writer = &log.ConsoleWriter{
			Writer:      w,
			ColorOutput: w == os.Stderr || w == os.Stdout,
		}
	}
	return logger
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.ErrorLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// ParseLevel maps a level name to a phuslu level. Unknown names map to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ValidLevel reports whether level is a recognized level name.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
