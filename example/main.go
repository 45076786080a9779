package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/pumpwatch"
	"github.com/jpalmerr/pumpwatch/internal/console"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// start mock pump (see mock_server.go)
	StartMockPump(ctx, ":5055", logger)

	ep, err := pumpwatch.NewEndpoint("http://localhost:5055/pump_status",
		pumpwatch.WithName("demo syringe"),
	)
	if err != nil {
		slog.Error("failed to create endpoint", "error", err)
		os.Exit(1)
	}

	display := console.New(os.Stdout)
	defer display.Close()

	w, err := pumpwatch.New(
		pumpwatch.WithEndpoint(ep),
		pumpwatch.WithLogger(logger),
		pumpwatch.WithDisplay(display.Show),
		pumpwatch.WithDashboard(8080),
		pumpwatch.WithTitle("pumpwatch demo"),
	)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  pumpwatch demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  The mock pump cycles through every label every few seconds")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := w.Start(ctx); err != nil {
		slog.Error("pumpwatch error", "error", err)
		os.Exit(1)
	}
}
