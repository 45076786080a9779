// Package config provides YAML configuration parsing for pumpwatch.
//
// This package enables running pumpwatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Bench Pump
//	port: 8080
//
//	pump:
//	  name: syringe-1
//	  url: http://${PUMP_HOST:-raspberrypi.local}:5000/pump_status
//	  timeout: 2s
//	  extractor: default
//
//	simulator:
//	  enabled: false
//	  port: 5000
//	  syringe_volume_ml: 4
//	  flow_rate_ml_per_s: 0.45
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Parse].
const (
	DefaultPort             = 8080
	DefaultSimulatorPort    = 5000
	DefaultSyringeVolumeML  = 4.0
	DefaultFlowRateMLPerSec = 0.45
)

// Config is the root configuration structure for pumpwatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Pump Status" if not set.
	Title string `yaml:"title"`

	// Port is the dashboard HTTP port. Defaults to 8080.
	Port int `yaml:"port"`

	// Dashboard toggles the web indicator. Defaults to true.
	Dashboard *bool `yaml:"dashboard"`

	// Pump describes the status endpoint to poll.
	Pump PumpConfig `yaml:"pump"`

	// Simulator configures the in-process pump simulator.
	Simulator SimulatorConfig `yaml:"simulator"`
}

// PumpConfig defines the polled pump status endpoint.
type PumpConfig struct {
	// Name is the display name shown in the dashboard. Defaults to "pump".
	Name string `yaml:"name"`

	// URL is the pump status endpoint.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	// May be omitted when the simulator is enabled; see [Config.StatusURL].
	URL string `yaml:"url"`

	// Timeout is the per-request timeout. Zero means no timeout.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Extractor determines how the response is read as pump flags.
	Extractor ExtractorConfig `yaml:"extractor"`
}

// SimulatorConfig configures the simulated syringe pump.
type SimulatorConfig struct {
	// Enabled runs the simulator alongside the watcher in serve.
	Enabled bool `yaml:"enabled"`

	// Port is the simulator HTTP port. Defaults to 5000.
	Port int `yaml:"port"`

	// SyringeVolumeML is the syringe capacity. Defaults to 4 mL.
	SyringeVolumeML float64 `yaml:"syringe_volume_ml"`

	// FlowRateMLPerSec is the dispense rate. Defaults to 0.45 mL/s.
	FlowRateMLPerSec float64 `yaml:"flow_rate_ml_per_s"`
}

// ExtractorConfig specifies how pump flags are read from a response.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	extractor: default
//	extractor: state:pump.state
//
// Structured object:
//
//	extractor:
//	  type: state
//	  path: pump.state
type ExtractorConfig struct {
	// Type is the extractor type: "default" or "state".
	Type string

	// Path is the JSON field path (for type: state).
	Path string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for ExtractorConfig.
func (e *ExtractorConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return e.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type string `yaml:"type"`
			Path string `yaml:"path"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Type = raw.Type
		e.Path = raw.Path
		return nil
	}

	return fmt.Errorf("extractor must be a string or object, got %v", node.Kind)
}

// parseShorthand parses extractor shorthand syntax.
//
// Supported formats:
//   - "default" → read the four boolean flags
//   - "state:path" → map a state string at path to flags
func (e *ExtractorConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		e.Type = s[:idx]
		if e.Type != "state" {
			return fmt.Errorf("unknown extractor type %q", e.Type)
		}
		e.Path = s[idx+1:]
		return nil
	}

	if s != "default" {
		return fmt.Errorf("unknown extractor %q (expected 'default' or 'state:path')", s)
	}
	e.Type = s
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the pump URL and header values.
// Defaults are applied for Port, Pump.Name and the simulator settings.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Pump.Name == "" {
		c.Pump.Name = "pump"
	}
	if c.Simulator.Port == 0 {
		c.Simulator.Port = DefaultSimulatorPort
	}
	if c.Simulator.SyringeVolumeML == 0 {
		c.Simulator.SyringeVolumeML = DefaultSyringeVolumeML
	}
	if c.Simulator.FlowRateMLPerSec == 0 {
		c.Simulator.FlowRateMLPerSec = DefaultFlowRateMLPerSec
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	p := &c.Pump
	if p.URL != "" {
		expanded, err := expandEnvVars(p.URL)
		if err != nil {
			return fmt.Errorf("pump.url: %w", err)
		}
		p.URL = expanded

		parsedURL, err := url.Parse(p.URL)
		if err != nil {
			return fmt.Errorf("pump.url: invalid url: %w", err)
		}
		if parsedURL.Scheme == "" {
			return errors.New("pump.url: url must have a scheme (http:// or https://)")
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("pump.url: url scheme must be http or https, got %q", parsedURL.Scheme)
		}
	}

	for k, v := range p.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("pump.headers[%s]: %w", k, err)
		}
		p.Headers[k] = expanded
	}

	if p.Timeout.Duration() < 0 {
		return fmt.Errorf("pump.timeout cannot be negative, got %s", p.Timeout.Duration())
	}

	if err := validateExtractor(p.Extractor); err != nil {
		return err
	}

	s := c.Simulator
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("simulator.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.SyringeVolumeML < 0 {
		return fmt.Errorf("simulator.syringe_volume_ml must be positive, got %g", s.SyringeVolumeML)
	}
	if s.FlowRateMLPerSec < 0 {
		return fmt.Errorf("simulator.flow_rate_ml_per_s must be positive, got %g", s.FlowRateMLPerSec)
	}
	if s.Enabled && c.DashboardEnabled() && s.Port == c.Port {
		return fmt.Errorf("simulator.port and port are both %d", s.Port)
	}

	return nil
}

// validateExtractor validates an extractor configuration.
func validateExtractor(e ExtractorConfig) error {
	switch e.Type {
	case "", "default":
	case "state":
		if e.Path == "" {
			return errors.New("pump.extractor: type 'state' requires a path")
		}
	default:
		return fmt.Errorf("pump.extractor: unknown extractor type %q", e.Type)
	}
	return nil
}

// DashboardEnabled reports whether the web indicator should be served.
func (c *Config) DashboardEnabled() bool {
	return c.Dashboard == nil || *c.Dashboard
}

// EnableSimulator turns the simulator on, as the serve --simulate flag does.
func (c *Config) EnableSimulator() {
	c.Simulator.Enabled = true
}

// StatusURL returns the URL to poll. Without an explicit pump.url and with
// the simulator enabled, it points at the local simulator.
func (c *Config) StatusURL() string {
	if c.Pump.URL != "" {
		return c.Pump.URL
	}
	if c.Simulator.Enabled {
		return fmt.Sprintf("http://127.0.0.1:%d/pump_status", c.Simulator.Port)
	}
	return ""
}
