package pumpwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/pumpwatch/dashboard"
	"github.com/jpalmerr/pumpwatch/internal/poller"
	"github.com/jpalmerr/pumpwatch/internal/server"
	"github.com/jpalmerr/pumpwatch/internal/store"
)

// DefaultPollingInterval is the fixed cadence at which the pump is polled.
const DefaultPollingInterval = time.Second

// Watcher polls a pump's status endpoint and drives its displays.
//
// The typical lifecycle is:
//
//	ep, _ := pumpwatch.NewEndpoint("http://raspberrypi.local:5000/pump_status")
//	w, err := pumpwatch.New(
//	    pumpwatch.WithEndpoint(ep),
//	    pumpwatch.WithDisplay(func(l pumpwatch.Label) { fmt.Println(l) }),
//	)
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	w.Start(ctx) // blocks until ctx is cancelled
type Watcher struct {
	endpoint        Endpoint
	pollingInterval time.Duration
	logger          *slog.Logger
	displays        []func(Label)
	statusCallbacks []func(StatusResult)
	dashboard       bool
	port            int
	title           string
	store           *store.MemoryStore
}

// New creates a [Watcher]. [WithEndpoint] is required.
func New(opts ...Option) (*Watcher, error) {
	cfg := &watcherConfig{
		pollingInterval: DefaultPollingInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.endpoint == nil {
		return nil, errors.New("an endpoint is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		endpoint:        *cfg.endpoint,
		pollingInterval: cfg.pollingInterval,
		logger:          logger,
		displays:        cfg.displays,
		statusCallbacks: cfg.statusCallbacks,
		dashboard:       cfg.dashboard,
		port:            cfg.port,
		title:           cfg.title,
		store:           store.NewMemoryStore(),
	}, nil
}

// Start polls the endpoint and drives displays until ctx is cancelled.
//
// The endpoint is polled immediately and then every polling interval. When
// [WithDashboard] was given, the indicator page is served for the same
// lifetime.
//
// Returns nil on graceful shutdown, or an error if the dashboard cannot
// bind its port.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("pumpwatch starting",
		"endpoint", w.endpoint.name,
		"url", w.endpoint.url,
		"interval", w.pollingInterval.String(),
	)

	if ctx.Err() != nil {
		return nil
	}

	scheduler := poller.NewScheduler(w.target(), w.pollingInterval, w.logger)
	scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := range scheduler.Results() {
			w.handle(r)
		}
	}()

	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()
	}

	if w.dashboard {
		httpServer := server.NewServer(w.store, w.port, dashboard.Assets, w.title, w.logger)
		if err := httpServer.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		w.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", w.port))
	}

	<-ctx.Done()
	cleanup()
	w.logger.Info("pumpwatch stopped")
	return nil
}

// Endpoint returns the polled endpoint.
func (w *Watcher) Endpoint() Endpoint {
	return w.endpoint
}

// PollingInterval returns the poll cadence.
func (w *Watcher) PollingInterval() time.Duration {
	return w.pollingInterval
}

// Label returns the label currently displayed, or [LabelNone] before the
// first displayable poll.
func (w *Watcher) Label() Label {
	snap, ok := w.store.Get(w.endpoint.name)
	if !ok {
		return LabelNone
	}
	return Label(snap.Label)
}

// target converts the endpoint to the poller's representation.
func (w *Watcher) target() poller.Target {
	return poller.Target{
		Name:    w.endpoint.name,
		URL:     w.endpoint.url,
		Headers: copyMap(w.endpoint.headers),
		Timeout: w.endpoint.timeout,
	}
}

// handle interprets one poll and fans the outcome out to the store,
// displays and callbacks, in that order.
func (w *Watcher) handle(r poller.Result) {
	result := StatusResult{
		EndpointName: r.Name,
		URL:          r.URL,
		Latency:      r.Latency,
		CheckedAt:    r.CheckedAt,
		StatusCode:   r.StatusCode,
		Sequence:     r.Sequence,
	}

	if r.Error != nil {
		result.Label = LabelError
		result.Error = r.Error
	} else {
		result.Label, result.Status, result.Error = w.safeInterpret(r.Body, r.StatusCode)
	}

	logAttrs := []any{
		"label", result.Label,
		"endpoint", result.EndpointName,
		"sequence", result.Sequence,
		"latency_ms", result.Latency.Milliseconds(),
	}
	switch {
	case result.Error != nil:
		w.logger.Warn("pump status poll failed", append(logAttrs, "status_code", result.StatusCode, "error", result.Error.Error())...)
	case result.Label == LabelNone:
		w.logger.Debug("pump status matched no flag", logAttrs...)
	default:
		w.logger.Debug("pump status polled", logAttrs...)
	}

	if result.Label != LabelNone {
		w.store.Update(toSnapshot(result))
		for _, display := range w.displays {
			w.invokeSafe("display", func() { display(result.Label) })
		}
	}

	for _, cb := range w.statusCallbacks {
		w.invokeSafe("status callback", func() { cb(result) })
	}
}

// safeInterpret runs the endpoint's extractor with panic recovery. A panic
// is logged with a correlation ID and reported as [LabelError].
func (w *Watcher) safeInterpret(body []byte, statusCode int) (label Label, status PumpStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			w.logger.Error("extractor panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			label = LabelError
			status = PumpStatus{}
			err = fmt.Errorf("extractor panic (correlation_id: %s)", correlationID)
		}
	}()
	return Interpret(w.endpoint.extractor, body, statusCode)
}

// invokeSafe calls fn, logging rather than propagating a panic.
func (w *Watcher) invokeSafe(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(kind+" panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"endpoint", w.endpoint.name,
			)
		}
	}()
	fn()
}

// toSnapshot converts a result to its stored, JSON-facing form.
func toSnapshot(r StatusResult) store.Snapshot {
	snap := store.Snapshot{
		Name:           r.EndpointName,
		URL:            r.URL,
		Label:          r.Label.String(),
		ResponseTimeMs: r.Latency.Milliseconds(),
		CheckedAt:      r.CheckedAt,
		Sequence:       r.Sequence,
	}

	if r.Error != nil {
		msg := r.Error.Error()
		snap.Error = &msg
		return snap
	}

	snap.Flags = map[string]bool{
		"error":   r.Status.Error,
		"paused":  r.Status.Paused,
		"running": r.Status.Running,
		"enabled": r.Status.Enabled,
	}
	return snap
}
