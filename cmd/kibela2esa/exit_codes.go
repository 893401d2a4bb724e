package main

import (
	"errors"
	"os"

	flag "github.com/spf13/pflag"

	kibela2esa "github.com/alnah/go-kibela2esa"
	"github.com/alnah/go-kibela2esa/internal/checkpoint"
	"github.com/alnah/go-kibela2esa/internal/config"
	"github.com/alnah/go-kibela2esa/internal/esa"
	"github.com/alnah/go-kibela2esa/internal/kibela"
)

// Exit codes for the kibela2esa CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0 // Every document migrated
	ExitGeneral     = 1 // General error, or some documents failed
	ExitUsage       = 2 // Invalid flags, config, or validation
	ExitIO          = 3 // Export not found, permission denied
	ExitDestination = 4 // Destination or network errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Destination errors (exit 4)
	var apiErr *esa.APIError
	if errors.Is(err, kibela2esa.ErrDestination) || errors.As(err, &apiErr) {
		return ExitDestination
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, kibela2esa.ErrNoExports) ||
		errors.Is(err, kibela2esa.ErrReport) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, flag.ErrHelp) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrConfigInvalid) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, checkpoint.ErrUnknownDriver) ||
		errors.Is(err, checkpoint.ErrMissingDSN) ||
		errors.Is(err, esa.ErrMissingTeam) ||
		errors.Is(err, esa.ErrMissingToken) ||
		errors.Is(err, kibela.ErrMissingBaseURL) ||
		errors.Is(err, kibela2esa.ErrNoSourceTeam) ||
		errors.Is(err, ErrMissingSecrets) ||
		errors.Is(err, ErrInvalidFlag) ||
		errors.Is(err, ErrUnexpectedArgs) {
		return ExitUsage
	}

	return ExitGeneral
}
