package main

import (
	"errors"
	"os"

	doc2pdf "github.com/alnah/go-doc2pdf"
	"github.com/alnah/go-doc2pdf/internal/config"
)

// Exit codes for the doc2pdf command.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Clean shutdown
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags or config
	ExitIO      = 3 // Listener or filesystem failure
	ExitEngine  = 4 // No conversion engine could start
)

// exitCodeFor returns the exit code for err. Wrapped errors are matched with
// errors.Is, so callers must wrap with %w.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, ErrNoEngines) || errors.Is(err, doc2pdf.ErrBrowserConnect) {
		return ExitEngine
	}

	// Config errors first: a missing config file also matches os.ErrNotExist.
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, config.ErrInvalidEnv) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	if errors.Is(err, ErrListen) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	return ExitGeneral
}
