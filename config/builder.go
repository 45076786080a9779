package config

import (
	"errors"
	"sort"

	"github.com/jpalmerr/pumpwatch"
)

// BuildEndpoint converts the pump section into an SDK Endpoint.
func BuildEndpoint(cfg *Config) (pumpwatch.Endpoint, error) {
	statusURL := cfg.StatusURL()
	if statusURL == "" {
		return pumpwatch.Endpoint{}, errors.New("pump.url is required unless the simulator is enabled")
	}

	opts := []pumpwatch.EndpointOption{
		pumpwatch.WithName(cfg.Pump.Name),
	}

	if cfg.Pump.Timeout != 0 {
		opts = append(opts, pumpwatch.WithTimeout(cfg.Pump.Timeout.Duration()))
	}

	if len(cfg.Pump.Headers) > 0 {
		opts = append(opts, pumpwatch.WithHeaders(mapToKeyValuePairs(cfg.Pump.Headers)...))
	}

	if extractor := buildExtractor(cfg.Pump.Extractor); extractor != nil {
		opts = append(opts, pumpwatch.WithExtractor(extractor))
	}

	return pumpwatch.NewEndpoint(statusURL, opts...)
}

// BuildOptions converts parsed configuration into watcher options.
//
// Displays, status callbacks and the logger are left to the caller.
func BuildOptions(cfg *Config) ([]pumpwatch.Option, error) {
	ep, err := BuildEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	opts := []pumpwatch.Option{pumpwatch.WithEndpoint(ep)}
	if cfg.Title != "" {
		opts = append(opts, pumpwatch.WithTitle(cfg.Title))
	}
	if cfg.DashboardEnabled() {
		opts = append(opts, pumpwatch.WithDashboard(cfg.Port))
	}
	return opts, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildExtractor converts ExtractorConfig to a StatusExtractor function.
// Returns nil for default/empty extractors (SDK uses PumpStatusExtractor).
func buildExtractor(ec ExtractorConfig) pumpwatch.StatusExtractor {
	switch ec.Type {
	case "state":
		return pumpwatch.StateFieldExtractor(ec.Path)
	default:
		return nil
	}
}
