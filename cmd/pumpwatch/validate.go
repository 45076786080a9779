package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pumpwatch/config"
)

// validateCmd validates a config file without starting the watcher.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pumpwatch configuration file without starting the watcher.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pumpwatch validate -c config.yaml
  pumpwatch validate --config /etc/pumpwatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ep, err := config.BuildEndpoint(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config is valid!\n")
	_, _ = fmt.Fprintf(out, "  Pump:      %s (%s)\n", ep.Name(), ep.URL())
	if cfg.DashboardEnabled() {
		_, _ = fmt.Fprintf(out, "  Dashboard: port %d\n", cfg.Port)
	} else {
		_, _ = fmt.Fprintf(out, "  Dashboard: off\n")
	}
	if cfg.Simulator.Enabled {
		_, _ = fmt.Fprintf(out, "  Simulator: port %d, %g mL at %g mL/s\n",
			cfg.Simulator.Port, cfg.Simulator.SyringeVolumeML, cfg.Simulator.FlowRateMLPerSec)
	} else {
		_, _ = fmt.Fprintf(out, "  Simulator: off\n")
	}

	return nil
}
