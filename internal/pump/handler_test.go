package pump

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestServer(t *testing.T) (*httptest.Server, *Pump, *fakeClock) {
	t.Helper()
	p, clock := newTestPump(t)
	h := NewHandler(p, quietLogger())
	h.limiter = rate.NewLimiter(rate.Inf, 1)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, p, clock
}

func do(t *testing.T, method, url string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestHandler_Status(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/pump_status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	for _, flag := range []string{"error", "paused", "running", "enabled"} {
		assert.Equal(t, false, body[flag], flag)
	}
}

func TestHandler_RunDefaultVolume(t *testing.T) {
	srv, p, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/run_pump")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["running"])
	assert.Equal(t, true, body["enabled"])
	assert.Equal(t, DefaultRunVolumeML, p.Status().TargetML)
}

func TestHandler_RunViaGet(t *testing.T) {
	srv, p, _ := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/run_pump?volume=1.5")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.5, p.Status().TargetML)
}

func TestHandler_RunErrors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		setup    func(*Pump)
		wantCode int
	}{
		{"not a number", "?volume=lots", nil, http.StatusBadRequest},
		{"zero", "?volume=0", nil, http.StatusBadRequest},
		{"too large", "?volume=9", nil, http.StatusBadRequest},
		{"already running", "?volume=1", func(p *Pump) { _ = p.Run(1) }, http.StatusConflict},
		{"faulted", "?volume=1", func(p *Pump) { p.Fault("stall") }, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, p, _ := newTestServer(t)
			if tt.setup != nil {
				tt.setup(p)
			}
			resp, body := do(t, http.MethodPost, srv.URL+"/run_pump"+tt.query)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestHandler_Commands(t *testing.T) {
	srv, p, _ := newTestServer(t)

	_, body := do(t, http.MethodPost, srv.URL+"/enable")
	assert.Equal(t, true, body["enabled"])

	require.NoError(t, p.Run(2))
	_, body = do(t, http.MethodPost, srv.URL+"/pause")
	assert.Equal(t, true, body["paused"])

	_, body = do(t, http.MethodPost, srv.URL+"/resume")
	assert.Equal(t, false, body["paused"])

	resp, _ := do(t, http.MethodPost, srv.URL+"/disable")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "disable while running")

	_, body = do(t, http.MethodPost, srv.URL+"/fault?message=stall")
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "stall", body["fault"])

	_, body = do(t, http.MethodPost, srv.URL+"/reset")
	assert.Equal(t, false, body["error"])
	assert.Equal(t, false, body["enabled"])
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/pump_status", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/pause")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandler_RateLimit(t *testing.T) {
	p, _ := newTestPump(t)
	srv := httptest.NewServer(NewHandler(p, quietLogger()))
	defer srv.Close()

	codes := make(map[int]int)
	for i := 0; i < commandBurst+5; i++ {
		resp, _ := do(t, http.MethodPost, srv.URL+"/enable")
		codes[resp.StatusCode]++
		if resp.StatusCode == http.StatusTooManyRequests {
			assert.Equal(t, "1", resp.Header.Get("Retry-After"))
		}
	}
	assert.GreaterOrEqual(t, codes[http.StatusOK], commandBurst)
	assert.NotZero(t, codes[http.StatusTooManyRequests])

	// status reads are not limited
	resp, _ := do(t, http.MethodGet, srv.URL+"/pump_status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListenAndServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	p, _ := newTestPump(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, port, NewHandler(p, quietLogger()), quietLogger()) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/pump_status", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("ListenAndServe did not return after cancellation")
	}
}

func TestListenAndServe_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	p, _ := newTestPump(t)
	err = ListenAndServe(context.Background(), port, NewHandler(p, quietLogger()), quietLogger())
	assert.ErrorContains(t, err, "failed to bind")
}
