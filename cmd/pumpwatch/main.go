// Package main is the entry point for the pumpwatch CLI.
//
// pumpwatch can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach
// plus a pump simulator and one-shot pump commands.
//
// Usage:
//
//	pumpwatch serve -c config.yaml [--simulate] # Watch a pump
//	pumpwatch simulate -c config.yaml           # Run only the simulator
//	pumpwatch status -u http://pump:5000        # Poll once
//	pumpwatch pump run -u http://pump:5000 --volume 2
//	pumpwatch validate -c config.yaml           # Validate configuration
//	pumpwatch version                           # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pumpwatch",
	Short: "Show what a syringe pump is doing",
	Long: `pumpwatch polls a syringe pump's status endpoint once a second and shows
one label: error, paused, running or enabled.

Quick start:
  1. Create a config file (pumpwatch.yaml)
  2. Run: pumpwatch serve -c pumpwatch.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  pump:
    url: http://raspberrypi.local:5000/pump_status

No pump at hand? Run: pumpwatch serve -c pumpwatch.yaml --simulate`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger on stderr for CLI use.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pumpwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "pumpwatch %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "log every poll")
	rootCmd.AddCommand(versionCmd)
}
