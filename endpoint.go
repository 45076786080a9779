package pumpwatch

import (
	"errors"
	"net/url"
	"time"
)

const defaultEndpointName = "pump"

// Endpoint is the pump status URL to poll.
//
// Endpoint is immutable after creation via [NewEndpoint]. Configure it with
// [EndpointOption] functions such as [WithName], [WithHeaders],
// [WithTimeout] and [WithExtractor].
type Endpoint struct {
	name      string
	url       string
	headers   map[string]string
	timeout   time.Duration
	extractor StatusExtractor
}

// Name returns the endpoint's display name. Defaults to "pump".
func (e Endpoint) Name() string {
	return e.name
}

// URL returns the status URL.
func (e Endpoint) URL() string {
	return e.url
}

// Headers returns a copy of the custom HTTP headers sent with every poll.
// Returns nil if no custom headers are set.
func (e Endpoint) Headers() map[string]string {
	return copyMap(e.headers)
}

// Timeout returns the per-request timeout. Zero means requests are never
// abandoned, which is the default.
func (e Endpoint) Timeout() time.Duration {
	return e.timeout
}

// Extractor returns the endpoint's [StatusExtractor], or nil when
// [PumpStatusExtractor] applies.
func (e Endpoint) Extractor() StatusExtractor {
	return e.extractor
}

// NewEndpoint creates an [Endpoint] for the given status URL.
//
// The rawURL must be an absolute http:// or https:// URL, typically ending
// in /pump_status.
//
// Example:
//
//	ep, err := pumpwatch.NewEndpoint("http://raspberrypi.local:5000/pump_status",
//	    pumpwatch.WithName("syringe-1"),
//	)
func NewEndpoint(rawURL string, opts ...EndpointOption) (Endpoint, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme == "" {
		return Endpoint{}, errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Endpoint{}, errors.New("URL scheme must be http or https, got " + parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return Endpoint{}, errors.New("URL must have a host")
	}

	cfg := &endpointConfig{
		name:    defaultEndpointName,
		headers: make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Endpoint{}, err
		}
	}

	return Endpoint{
		name:      cfg.name,
		url:       rawURL,
		headers:   cfg.headers,
		timeout:   cfg.timeout,
		extractor: cfg.extractor,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
