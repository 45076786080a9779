package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pumpwatch/config"
	"github.com/jpalmerr/pumpwatch/internal/pump"
)

// simulateCmd serves a simulated pump on its own.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated syringe pump",
	Long: `Run a simulated syringe pump with the same HTTP surface as the bench pump.

Routes:
  GET  /pump_status
  POST /run_pump?volume=2
  POST /pause, /resume, /enable, /disable, /reset, /fault

Settings come from the simulator section of the config file when -c is
given; flags override them.

Example:
  pumpwatch simulate
  pumpwatch simulate -c config.yaml --port 5050`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringP("config", "c", "", "path to config file")
	simulateCmd.Flags().Int("port", 0, "listen port (default 5000)")
	simulateCmd.Flags().Float64("syringe-volume", 0, "syringe capacity in mL (default 4)")
	simulateCmd.Flags().Float64("flow-rate", 0, "dispense rate in mL/s (default 0.45)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	sim, err := simulatorSettings(cmd)
	if err != nil {
		return err
	}

	p, err := newSimulator(sim, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- pump.ListenAndServe(ctx, sim.Port, pump.NewHandler(p, logger), logger)
	}()

	return awaitShutdown(ctx, errChan, logger)
}

// simulatorSettings merges the config file (if any) with flag overrides.
func simulatorSettings(cmd *cobra.Command) (config.SimulatorConfig, error) {
	sim := config.SimulatorConfig{
		Port:             config.DefaultSimulatorPort,
		SyringeVolumeML:  config.DefaultSyringeVolumeML,
		FlowRateMLPerSec: config.DefaultFlowRateMLPerSec,
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return sim, fmt.Errorf("failed to load config: %w", err)
		}
		sim = cfg.Simulator
	}

	if cmd.Flags().Changed("port") {
		sim.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("syringe-volume") {
		sim.SyringeVolumeML, _ = cmd.Flags().GetFloat64("syringe-volume")
	}
	if cmd.Flags().Changed("flow-rate") {
		sim.FlowRateMLPerSec, _ = cmd.Flags().GetFloat64("flow-rate")
	}

	if sim.Port < 1 || sim.Port > 65535 {
		return sim, fmt.Errorf("port must be between 1 and 65535, got %d", sim.Port)
	}
	return sim, nil
}

func newSimulator(sim config.SimulatorConfig, logger *slog.Logger) (*pump.Pump, error) {
	p, err := pump.New(sim.SyringeVolumeML, sim.FlowRateMLPerSec, pump.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}
	logger.Info("pump simulator configured",
		"port", sim.Port,
		"syringe_volume_ml", sim.SyringeVolumeML,
		"flow_rate_ml_per_s", sim.FlowRateMLPerSec,
	)
	return p, nil
}

// awaitShutdown waits for the serving goroutine to finish, allowing
// shutdownTimeout for a graceful stop once ctx is cancelled.
func awaitShutdown(ctx context.Context, errChan <-chan error, logger *slog.Logger) error {
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
