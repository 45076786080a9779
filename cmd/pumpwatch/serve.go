package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/pumpwatch"
	"github.com/jpalmerr/pumpwatch/config"
	"github.com/jpalmerr/pumpwatch/internal/console"
	"github.com/jpalmerr/pumpwatch/internal/pump"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the watcher.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch a pump and show its label",
	Long: `Watch a pump and show its label.

The watcher will:
  - Load configuration from the specified YAML file
  - Poll the pump status endpoint once a second
  - Print the label on the terminal as it changes
  - Serve the indicator page on the configured port (unless dashboard: false)

With --simulate (or simulator.enabled in the config) a simulated pump is
served on simulator.port and, without pump.url, watched.

The watcher runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pumpwatch serve -c config.yaml
  pumpwatch serve -c config.yaml --simulate`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().Bool("simulate", false, "run a simulated pump alongside the watcher")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if simulate, _ := cmd.Flags().GetBool("simulate"); simulate {
		cfg.EnableSimulator()
	}

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build watcher: %w", err)
	}

	display := console.New(os.Stdout)
	defer display.Close()

	opts = append(opts,
		pumpwatch.WithLogger(logger),
		pumpwatch.WithDisplay(display.Show),
	)

	w, err := pumpwatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	logger.Info("config loaded",
		"pump", w.Endpoint().Name(),
		"url", w.Endpoint().URL(),
		"dashboard", cfg.DashboardEnabled(),
		"simulator", cfg.Simulator.Enabled,
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Simulator.Enabled {
		p, err := newSimulator(cfg.Simulator, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return pump.ListenAndServe(gctx, cfg.Simulator.Port, pump.NewHandler(p, logger), logger)
		})
	}

	g.Go(func() error {
		return w.Start(gctx)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- g.Wait()
	}()

	return awaitShutdown(ctx, errChan, logger)
}
