package pumpwatch

import (
	"errors"
	"log/slog"
	"time"
)

// watcherConfig holds mutable state during Watcher construction.
type watcherConfig struct {
	endpoint        *Endpoint
	pollingInterval time.Duration
	logger          *slog.Logger
	displays        []func(Label)
	statusCallbacks []func(StatusResult)
	dashboard       bool
	port            int
	title           string
}

// Option configures a [Watcher] during construction.
// Options return an error if validation fails.
type Option func(*watcherConfig) error

// WithEndpoint sets the status endpoint to poll. Exactly one endpoint is
// required; a second WithEndpoint is an error.
func WithEndpoint(e Endpoint) Option {
	return func(cfg *watcherConfig) error {
		if cfg.endpoint != nil {
			return errors.New("endpoint already configured")
		}
		cfg.endpoint = &e
		return nil
	}
}

// WithPollingInterval overrides the poll cadence. The interval is fixed
// for the life of the Watcher. Defaults to [DefaultPollingInterval].
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithLogger sets the [slog.Logger]. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *watcherConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithDisplay registers a display-update function.
//
// The function receives one of [LabelError], [LabelPaused], [LabelRunning]
// or [LabelEnabled] for every resolved poll; polls classified as
// [LabelNone] are not displayed. Displays run in registration order on a
// single goroutine and must not block. Panics are recovered and logged.
//
// Nil displays are silently ignored.
func WithDisplay(display func(Label)) Option {
	return func(cfg *watcherConfig) error {
		if display == nil {
			return nil
		}
		cfg.displays = append(cfg.displays, display)
		return nil
	}
}

// WithStatusCallback registers a function called with the full
// [StatusResult] of every resolved poll, including [LabelNone] results.
// Callbacks run after displays, in registration order, and must not block.
// Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(StatusResult)) Option {
	return func(cfg *watcherConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}

// WithDashboard serves the web indicator on the given port while the
// Watcher runs.
//
// Returns an error if the port is outside 1-65535.
func WithDashboard(port int) Option {
	return func(cfg *watcherConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.dashboard = true
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "Pump Status".
func WithTitle(title string) Option {
	return func(cfg *watcherConfig) error {
		cfg.title = title
		return nil
	}
}
