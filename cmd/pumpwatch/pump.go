package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pumpwatch"
	"github.com/jpalmerr/pumpwatch/internal/pump"
	"github.com/jpalmerr/pumpwatch/internal/pumpclient"
)

// pumpCmd groups one-shot pump commands.
var pumpCmd = &cobra.Command{
	Use:   "pump",
	Short: "Send a command to a pump",
	Long: `Send a command to a pump (or the simulator) and print its new state.

Example:
  pumpwatch pump run -u http://raspberrypi.local:5000 --volume 1.5
  pumpwatch pump pause -u http://raspberrypi.local:5000`,
}

var pumpRunCmd = &cobra.Command{
	Use:          "run",
	Short:        "Dispense a volume",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		volume, _ := cmd.Flags().GetFloat64("volume")
		return withPumpClient(cmd, func(ctx context.Context, c *pumpclient.Client) (pump.Status, error) {
			return c.Run(ctx, volume)
		})
	},
}

func init() {
	rootCmd.AddCommand(pumpCmd)

	pumpCmd.PersistentFlags().StringP("url", "u", defaultPumpURL, "pump base URL")
	pumpCmd.PersistentFlags().Duration("timeout", pumpclient.DefaultTimeout, "request timeout")

	pumpRunCmd.Flags().Float64("volume", pump.DefaultRunVolumeML, "volume to dispense in mL")
	pumpCmd.AddCommand(pumpRunCmd)

	for _, name := range pumpclient.Commands {
		pumpCmd.AddCommand(&cobra.Command{
			Use:          name,
			Short:        fmt.Sprintf("Send %s to the pump", name),
			SilenceUsage: true,
			Args:         cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPumpClient(cmd, func(ctx context.Context, c *pumpclient.Client) (pump.Status, error) {
					return c.Command(ctx, name)
				})
			},
		})
	}
}

func withPumpClient(cmd *cobra.Command, call func(context.Context, *pumpclient.Client) (pump.Status, error)) error {
	baseURL, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout+time.Second)
	defer cancel()

	st, err := call(ctx, pumpclient.New(baseURL, timeout))
	if err != nil {
		return err
	}
	printPumpStatus(cmd.OutOrStdout(), st)
	return nil
}

func printPumpStatus(out io.Writer, st pump.Status) {
	label := pumpwatch.Classify(pumpwatch.PumpStatus{
		Error:   st.Error,
		Paused:  st.Paused,
		Running: st.Running,
		Enabled: st.Enabled,
	})
	_, _ = fmt.Fprintf(out, "pump %s", label)
	if st.Running {
		_, _ = fmt.Fprintf(out, " (%.2f of %.2f mL)", st.DispensedML, st.TargetML)
	}
	if st.Fault != "" {
		_, _ = fmt.Fprintf(out, ": %s", st.Fault)
	}
	_, _ = fmt.Fprintln(out)
}
