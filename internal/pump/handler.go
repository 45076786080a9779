package pump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRunVolumeML is dispensed by /run_pump without a volume.
	DefaultRunVolumeML = 2.0

	// commandRate and commandBurst bound how fast commands reach the motor.
	commandRate  = 5
	commandBurst = 5

	shutdownTimeout = 5 * time.Second
)

// Handler serves the pump's HTTP surface.
//
// Routes:
//   - GET /pump_status: current [Status] as JSON
//   - POST /run_pump?volume=: start a dispense (GET kept for browser links)
//   - POST /pause, /resume, /enable, /disable, /reset
//   - POST /fault?message=: latch a fault
//
// Command routes share one rate limiter and answer 429 when it is
// exhausted. Status reads are never limited.
type Handler struct {
	pump    *Pump
	limiter *rate.Limiter
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewHandler wires the routes for p.
func NewHandler(p *Pump, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		pump:    p,
		limiter: rate.NewLimiter(rate.Limit(commandRate), commandBurst),
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /pump_status", h.handleStatus)
	h.mux.HandleFunc("GET /run_pump", h.limited(h.handleRun))
	h.mux.HandleFunc("POST /run_pump", h.limited(h.handleRun))
	h.mux.HandleFunc("POST /pause", h.limited(h.command(p.Pause)))
	h.mux.HandleFunc("POST /resume", h.limited(h.command(p.Resume)))
	h.mux.HandleFunc("POST /enable", h.limited(h.command(p.Enable)))
	h.mux.HandleFunc("POST /disable", h.limited(h.command(p.Disable)))
	h.mux.HandleFunc("POST /reset", h.limited(h.command(func() error {
		p.Reset()
		return nil
	})))
	h.mux.HandleFunc("POST /fault", h.limited(h.handleFault))

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pump.Status())
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	volume := DefaultRunVolumeML
	if raw := r.URL.Query().Get("volume"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q is not a number", ErrInvalidVolume, raw))
			return
		}
		volume = v
	}

	if err := h.pump.Run(volume); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.pump.Status())
}

func (h *Handler) handleFault(w http.ResponseWriter, r *http.Request) {
	h.pump.Fault(r.URL.Query().Get("message"))
	h.writeJSON(w, http.StatusOK, h.pump.Status())
}

// command adapts a pump operation to a handler returning the new status.
func (h *Handler) command(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(); err != nil {
			h.writeError(w, statusFor(err), err)
			return
		}
		h.writeJSON(w, http.StatusOK, h.pump.Status())
	}
}

// limited rejects requests once the command limiter is exhausted.
func (h *Handler) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			h.logger.Warn("pump command rate limited", "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			h.writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next(w, r)
	}
}

// statusFor maps pump errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidVolume):
		return http.StatusBadRequest
	case errors.Is(err, ErrRunning), errors.Is(err, ErrFaulted),
		errors.Is(err, ErrNotRunning), errors.Is(err, ErrNotPaused):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, err error) {
	h.writeJSON(w, code, map[string]string{"message": err.Error()})
}

// ListenAndServe serves h on port until ctx is cancelled, then shuts down
// gracefully. It returns once the server has stopped.
func ListenAndServe(ctx context.Context, port int, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", port, err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("pump simulator listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("pump simulator: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("pump simulator shutdown: %w", err)
	}
	logger.Info("pump simulator stopped")
	return nil
}
