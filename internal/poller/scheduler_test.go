package poller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// okServer returns a server answering every request with a running status.
func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"running": true}`))
	}))
	t.Cleanup(server.Close)
	return server
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and is a safe no-op.
func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler := NewScheduler(Target{Name: "pump", URL: "http://127.0.0.1:1"}, time.Minute, testLogger())

	// this must not panic
	scheduler.Stop()
}

// TestScheduler_StopTwice verifies that Stop() is idempotent.
func TestScheduler_StopTwice(t *testing.T) {
	server := okServer(t)
	scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, time.Minute, testLogger())
	scheduler.Start(context.Background())

	go func() {
		for range scheduler.Results() {
		}
	}()

	scheduler.Stop()
	scheduler.Stop()
}

// TestScheduler_StopAfterStart verifies the normal lifecycle: Start followed
// by Stop results in clean shutdown with the results channel closed.
func TestScheduler_StopAfterStart(t *testing.T) {
	server := okServer(t)
	scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, time.Minute, testLogger())
	scheduler.Start(context.Background())

	// the immediate poll must arrive
	select {
	case <-scheduler.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for immediate poll")
	}

	scheduler.Stop()

	select {
	case _, ok := <-scheduler.Results():
		if ok {
			t.Error("expected results channel to be closed after Stop()")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for results channel to close")
	}
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not cause a race condition or panic.
// Run with: go test -race ./internal/poller/...
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	server := okServer(t)

	for i := 0; i < 100; i++ {
		scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, time.Minute, testLogger())

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			scheduler.Start(context.Background())
		}()

		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()

		wg.Wait()

		// Stop may have run first, in which case Start was a no-op
		scheduler.Stop()
		for range scheduler.Results() {
		}
	}
}

// TestScheduler_StartTwice verifies that a second Start does not spawn a
// second ticker.
func TestScheduler_StartTwice(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, time.Hour, testLogger())
	scheduler.Start(context.Background())
	scheduler.Start(context.Background()) // second call should be no-op

	select {
	case <-scheduler.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for immediate poll")
	}

	// give a duplicate immediate poll the chance to show up
	time.Sleep(100 * time.Millisecond)
	scheduler.Stop()

	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

// TestScheduler_StopBeforeStartThenStart verifies that Start after Stop is
// handled gracefully.
func TestScheduler_StopBeforeStartThenStart(t *testing.T) {
	scheduler := NewScheduler(Target{Name: "pump", URL: "http://127.0.0.1:1"}, time.Minute, testLogger())

	scheduler.Stop()
	scheduler.Start(context.TODO())
	scheduler.Stop()

	if _, ok := <-scheduler.Results(); ok {
		t.Error("expected closed results channel")
	}
}

// TestScheduler_ContextCancellation verifies that cancelling the parent
// context closes the results channel without a call to Stop.
func TestScheduler_ContextCancellation(t *testing.T) {
	server := okServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, time.Minute, testLogger())
	scheduler.Start(ctx)

	cancel()

	closed := make(chan struct{})
	go func() {
		for range scheduler.Results() {
		}
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("results channel not closed after parent context cancellation")
	}

	scheduler.Stop()
}

// TestScheduler_TicksAtInterval verifies that polls repeat at the interval
// and are numbered in start order.
func TestScheduler_TicksAtInterval(t *testing.T) {
	server := okServer(t)

	scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, 20*time.Millisecond, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	seen := make(map[uint64]bool)
	timeout := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case result := <-scheduler.Results():
			if result.Error != nil {
				t.Fatalf("unexpected error: %v", result.Error)
			}
			if result.Name != "pump" || result.URL != server.URL {
				t.Errorf("result identifies %q %q", result.Name, result.URL)
			}
			if result.Sequence == 0 {
				t.Error("Sequence = 0, want numbering from 1")
			}
			seen[result.Sequence] = true
		case <-timeout:
			t.Fatalf("received %d polls, want at least 3", len(seen))
		}
	}

	if !seen[1] {
		t.Error("expected the immediate poll to carry sequence 1")
	}
}

// TestScheduler_SlowFetchDoesNotBlockNextTick verifies fire-and-forget
// semantics: while the first request hangs, later ticks still poll and
// their results arrive first.
func TestScheduler_SlowFetchDoesNotBlockNextTick(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		_, _ = w.Write([]byte(`{"enabled": true}`))
	}))
	defer server.Close()
	defer close(release)

	scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, 20*time.Millisecond, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	select {
	case result := <-scheduler.Results():
		if result.Sequence == 1 {
			t.Fatal("hung first request resolved before later ticks")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("later ticks were blocked by the hung request")
	}
}

// TestScheduler_StopAbandonsHungRequest verifies that Stop does not wait
// forever on a request that never resolves.
func TestScheduler_StopAbandonsHungRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	scheduler := NewScheduler(Target{Name: "pump", URL: server.URL}, time.Hour, testLogger())
	scheduler.Start(context.Background())

	// let the request reach the server
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked on a hung request")
	}
}

// TestScheduler_TimeoutReportsError verifies that an optional timeout turns
// a hung request into a transport error.
func TestScheduler_TimeoutReportsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	target := Target{Name: "pump", URL: server.URL, Timeout: 50 * time.Millisecond}
	scheduler := NewScheduler(target, time.Hour, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	select {
	case result := <-scheduler.Results():
		if result.Error == nil {
			t.Error("expected timeout error")
		}
		if result.StatusCode != 0 {
			t.Errorf("StatusCode = %d, want 0", result.StatusCode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout did not resolve the request")
	}
}

// TestScheduler_HeadersSent verifies that target headers reach the server.
func TestScheduler_HeadersSent(t *testing.T) {
	got := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case got <- r.Header.Get("Authorization"):
		default:
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	target := Target{
		Name:    "pump",
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer abc"},
	}
	scheduler := NewScheduler(target, time.Hour, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	select {
	case header := <-got:
		if header != "Bearer abc" {
			t.Errorf("Authorization = %q, want %q", header, "Bearer abc")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached server")
	}
}
