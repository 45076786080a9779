package config

import (
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/pumpwatch"
)

func TestBuildEndpoint_Minimal(t *testing.T) {
	cfg := &Config{
		Pump: PumpConfig{
			Name: "pump",
			URL:  "http://raspberrypi.local:5000/pump_status",
		},
	}

	ep, err := BuildEndpoint(cfg)
	if err != nil {
		t.Fatalf("BuildEndpoint() error = %v", err)
	}

	if ep.Name() != "pump" {
		t.Errorf("Name() = %q, want %q", ep.Name(), "pump")
	}
	if ep.URL() != "http://raspberrypi.local:5000/pump_status" {
		t.Errorf("URL() = %q", ep.URL())
	}
	if ep.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", ep.Timeout())
	}
	if ep.Extractor() != nil {
		t.Error("Extractor() should be nil for the default extractor")
	}
}

func TestBuildEndpoint_AllOptions(t *testing.T) {
	cfg := &Config{
		Pump: PumpConfig{
			Name:    "syringe-1",
			URL:     "https://bench.example.com/pump_status",
			Timeout: Duration(2 * time.Second),
			Headers: map[string]string{
				"Authorization": "Bearer token",
				"X-Custom":      "value",
			},
			Extractor: ExtractorConfig{Type: "state", Path: "pump.state"},
		},
	}

	ep, err := BuildEndpoint(cfg)
	if err != nil {
		t.Fatalf("BuildEndpoint() error = %v", err)
	}

	if ep.Name() != "syringe-1" {
		t.Errorf("Name() = %q", ep.Name())
	}
	if ep.Timeout() != 2*time.Second {
		t.Errorf("Timeout() = %v", ep.Timeout())
	}
	wantHeaders := map[string]string{"Authorization": "Bearer token", "X-Custom": "value"}
	if !reflect.DeepEqual(ep.Headers(), wantHeaders) {
		t.Errorf("Headers() = %v, want %v", ep.Headers(), wantHeaders)
	}
	if ep.Extractor() == nil {
		t.Fatal("Extractor() = nil, want state extractor")
	}

	status, err := ep.Extractor()([]byte(`{"pump": {"state": "dispensing"}}`), http.StatusOK)
	if err != nil || !status.Running {
		t.Errorf("state extractor = %+v, %v", status, err)
	}
}

func TestBuildEndpoint_SimulatorURL(t *testing.T) {
	cfg := &Config{
		Pump:      PumpConfig{Name: "pump"},
		Simulator: SimulatorConfig{Enabled: true, Port: 5001},
	}

	ep, err := BuildEndpoint(cfg)
	if err != nil {
		t.Fatalf("BuildEndpoint() error = %v", err)
	}
	if ep.URL() != "http://127.0.0.1:5001/pump_status" {
		t.Errorf("URL() = %q", ep.URL())
	}
}

func TestBuildEndpoint_MissingURL(t *testing.T) {
	_, err := BuildEndpoint(&Config{Pump: PumpConfig{Name: "pump"}})
	if err == nil || !strings.Contains(err.Error(), "pump.url is required") {
		t.Errorf("BuildEndpoint() error = %v", err)
	}
}

func TestBuildOptions(t *testing.T) {
	cfg, err := Parse([]byte(`
title: Bench
port: 9191
pump:
  url: http://localhost:5000/pump_status
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}
	// endpoint, title, dashboard
	if len(opts) != 3 {
		t.Errorf("len(opts) = %d, want 3", len(opts))
	}

	w, err := pumpwatch.New(opts...)
	if err != nil {
		t.Fatalf("pumpwatch.New() error = %v", err)
	}
	if w.Endpoint().URL() != "http://localhost:5000/pump_status" {
		t.Errorf("Endpoint().URL() = %q", w.Endpoint().URL())
	}
	if w.PollingInterval() != pumpwatch.DefaultPollingInterval {
		t.Errorf("PollingInterval() = %v", w.PollingInterval())
	}
}

func TestBuildOptions_DashboardDisabled(t *testing.T) {
	cfg, err := Parse([]byte("dashboard: false\npump:\n  url: http://localhost:5000/pump_status\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}
	if len(opts) != 1 {
		t.Errorf("len(opts) = %d, want only the endpoint", len(opts))
	}
}

func TestMapToKeyValuePairs_Sorted(t *testing.T) {
	got := mapToKeyValuePairs(map[string]string{"b": "2", "a": "1"})
	want := []string{"a", "1", "b", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mapToKeyValuePairs() = %v, want %v", got, want)
	}
}
