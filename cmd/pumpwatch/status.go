package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pumpwatch"
	"github.com/jpalmerr/pumpwatch/internal/pumpclient"
)

const defaultPumpURL = "http://127.0.0.1:5000"

var errPumpFault = errors.New("pump reports an error")

// statusCmd polls a pump once.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Poll a pump once and print its label",
	Long: `Poll a pump's /pump_status once and print its label.

Exit codes:
  0 - the pump was read and reports no error
  1 - the pump could not be read or reports an error

Example:
  pumpwatch status -u http://raspberrypi.local:5000`,
	SilenceUsage: true,
	RunE:         runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("url", "u", defaultPumpURL, "pump base URL")
	statusCmd.Flags().Duration("timeout", pumpclient.DefaultTimeout, "request timeout")
	statusCmd.Flags().BoolP("verbose", "v", false, "also print the raw flags")
}

func runStatus(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout+time.Second)
	defer cancel()

	label, status, err := pumpclient.New(baseURL, timeout).Status(ctx)
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, label)
	if err != nil {
		return err
	}
	if verbose {
		_, _ = fmt.Fprintf(out, "error=%t paused=%t running=%t enabled=%t\n",
			status.Error, status.Paused, status.Running, status.Enabled)
	}
	if label == pumpwatch.LabelError {
		return errPumpFault
	}
	return nil
}
