package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/pumpwatch/internal/pump"
)

// StartMockPump serves a simulated pump on addr and walks it through a
// scripted cycle so every label shows up on the display.
func StartMockPump(ctx context.Context, addr string, logger *slog.Logger) *pump.Pump {
	p, err := pump.New(4, 0.5, pump.WithLogger(logger))
	if err != nil {
		panic(err) // constants above are valid
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           pump.NewHandler(p, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("mock pump server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	go runScript(ctx, p)
	return p
}

// runScript cycles enabled → running → paused → running → error → reset.
func runScript(ctx context.Context, p *pump.Pump) {
	steps := []func(){
		func() { _ = p.Enable() },
		func() { _ = p.Run(2) },
		func() { _ = p.Pause() },
		func() { _ = p.Resume() },
		func() { p.Fault("motor stall") },
		func() { p.Reset() },
	}

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for i := 0; ; i++ {
		steps[i%len(steps)]()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
