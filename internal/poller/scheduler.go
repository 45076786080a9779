package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// resultBuffer absorbs short stalls in the consumer without blocking fetches.
const resultBuffer = 16

// Target describes the status endpoint to poll.
type Target struct {
	// Name is the display name of the endpoint.
	Name string

	// URL is the status URL.
	URL string

	// Headers are sent with every request.
	Headers map[string]string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
}

// Result is the raw outcome of one fetch.
type Result struct {
	// Name and URL identify the polled target.
	Name string
	URL  string

	// Sequence numbers fetches from 1 in the order they were started.
	Sequence uint64

	// StartedAt is when the tick fired; CheckedAt is when the fetch resolved.
	StartedAt time.Time
	CheckedAt time.Time

	Response
}

// Scheduler polls a single [Target] at a fixed interval.
//
// Every tick starts an independent fetch in its own goroutine. Fetches are
// not de-duplicated, so a slow request can still be in flight when the next
// one starts, and results are emitted in resolution order.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	target   Target
	interval time.Duration
	client   *Client
	results  chan Result
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight sync.WaitGroup
	seq      atomic.Uint64

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a new polling [Scheduler].
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(target Target, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		target:   target,
		interval: interval,
		client:   NewClient(),
		results:  make(chan Result, resultBuffer),
		logger:   logger,
	}
}

// Results returns a receive-only channel that emits each [Result].
//
// The channel is closed once the scheduler has stopped and every in-flight
// fetch has returned.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Start begins polling in a background goroutine.
//
// The target is polled immediately and then once per interval until
// [Scheduler.Stop] is called or ctx is cancelled. If ctx is nil,
// context.Background() is used. Start is idempotent, and a no-op after Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })
		// in-flight fetches observe pollCtx and return promptly once it is done
		defer s.inflight.Wait()

		s.dispatch(pollCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				s.dispatch(pollCtx)
			}
		}
	}()
}

// Stop halts the scheduler and waits for in-flight fetches to return.
//
// Stop is idempotent, and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	if s.client != nil {
		s.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// dispatch starts one fetch without waiting for it.
func (s *Scheduler) dispatch(ctx context.Context) {
	seq := s.seq.Add(1)
	startedAt := time.Now()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		resp := s.client.Fetch(ctx, s.target.URL, s.target.Headers, s.target.Timeout)
		result := Result{
			Name:      s.target.Name,
			URL:       s.target.URL,
			Sequence:  seq,
			StartedAt: startedAt,
			CheckedAt: time.Now(),
			Response:  resp,
		}

		select {
		case s.results <- result:
		case <-ctx.Done():
			s.logger.Debug("poll result dropped on shutdown", "endpoint", s.target.Name, "sequence", seq)
		}
	}()
}
