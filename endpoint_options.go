package pumpwatch

import (
	"errors"
	"time"
)

// endpointConfig holds mutable state during endpoint construction.
type endpointConfig struct {
	name      string
	headers   map[string]string
	timeout   time.Duration
	extractor StatusExtractor
}

// EndpointOption configures an [Endpoint] during construction.
// Options return an error if validation fails.
type EndpointOption func(*endpointConfig) error

// WithName sets the display name used in logs and on the dashboard.
//
// Returns an error if the name is empty.
func WithName(name string) EndpointOption {
	return func(cfg *endpointConfig) error {
		if name == "" {
			return errors.New("endpoint name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithHeaders adds custom HTTP headers to poll requests, for controllers
// behind authentication.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	ep, err := pumpwatch.NewEndpoint(url,
//	    pumpwatch.WithHeaders("Authorization", "Bearer token123"),
//	)
func WithHeaders(keyValues ...string) EndpointOption {
	return func(cfg *endpointConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout bounds each status request.
//
// Without a timeout a hung request never resolves and later ticks poll
// independently. With one, an expired request is displayed as
// [LabelError] like any other transport failure.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) EndpointOption {
	return func(cfg *endpointConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithExtractor sets a custom [StatusExtractor] for this endpoint.
// Nil restores [PumpStatusExtractor].
//
// Example:
//
//	ep, err := pumpwatch.NewEndpoint(url,
//	    pumpwatch.WithExtractor(pumpwatch.StateFieldExtractor("pump.state")),
//	)
func WithExtractor(e StatusExtractor) EndpointOption {
	return func(cfg *endpointConfig) error {
		cfg.extractor = e
		return nil
	}
}
