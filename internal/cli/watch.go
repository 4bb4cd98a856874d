package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"typescope/pkg/output"
)

func newWatchCmd(a *app) *cobra.Command {
	var count int
	var interval int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a summary line for every snapshot received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.FormatFromCmd(cmd)
			if err != nil {
				return err
			}
			printer := output.NewPrinter(format, cmd.OutOrStdout())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if interval > 0 {
				if err := client.SetInterval(interval); err != nil {
					return fmt.Errorf("failed to set interval: %w", err)
				}
			}

			for n := 0; count == 0 || n < count; n++ {
				snap, err := client.Next(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("failed to read snapshot: %w", err)
				}
				if err := printer.Summary(snap); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many snapshots (0 = until interrupted)")
	cmd.Flags().IntVar(&interval, "interval", 0, "send INTERVAL:<ms> before watching (duplex only)")
	output.AddFormatFlag(cmd)
	return cmd
}
