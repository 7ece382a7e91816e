package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/randomizedcoder/go-monitord/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	if !slices.Contains(OutputFormats, cfg.OutputFormat) {
		errs = append(errs, ValidationError{
			Field:   "output_format",
			Message: fmt.Sprintf("must be one of: %s (got %q)", strings.Join(OutputFormats, ", "), cfg.OutputFormat),
		})
	}

	if cfg.DBusAddress == "" {
		errs = append(errs, ValidationError{
			Field:   "dbus_address",
			Message: "must not be empty",
		})
	}

	if cfg.DBusTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "dbus_timeout",
			Message: "must be positive",
		})
	}

	// A zero interval would spin the daemon loop.
	if cfg.Daemon && cfg.RefreshInterval < time.Second {
		errs = append(errs, ValidationError{
			Field:   "daemon_stats_refresh_secs",
			Message: fmt.Sprintf("must be at least 1s in daemon mode (got %v)", cfg.RefreshInterval),
		})
	}

	if cfg.BootEnabled && cfg.NumSlowestUnits < 1 {
		errs = append(errs, ValidationError{
			Field:   "num_slowest_units",
			Message: "must be at least 1 when boot blame is enabled",
		})
	}

	if cfg.NetworkdEnabled && cfg.LinkStateDir == "" {
		errs = append(errs, ValidationError{
			Field:   "link_state_dir",
			Message: "must not be empty when networkd is enabled",
		})
	}

	if cfg.VarlinkEnabled && cfg.VarlinkSocketPath == "" {
		errs = append(errs, ValidationError{
			Field:   "socket_path",
			Message: "must not be empty when varlink is enabled",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if !logging.ValidLevel(cfg.LogLevel) {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}

	if cfg.TUIEnabled && !cfg.Daemon {
		errs = append(errs, ValidationError{
			Field:   "tui",
			Message: "requires daemon mode",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
