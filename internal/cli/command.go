package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"typescope/pkg/viewer"
)

func newIntervalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interval <ms>",
		Short: "Set the agent's streaming interval",
		Long: `Sends INTERVAL:<ms> to the agent. The agent applies a 100ms floor and
ignores values that are negative or do not fit in 32 bits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil || ms < 0 {
				return fmt.Errorf("invalid interval %q: must be a non-negative number of milliseconds", args[0])
			}
			return a.send(cmd, func(c *viewer.Client) error {
				return c.SetInterval(int(ms))
			}, fmt.Sprintf("Requested interval %dms", ms))
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the agent to send a snapshot now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.send(cmd, func(c *viewer.Client) error {
				return c.Refresh()
			}, "Refresh requested")
		},
	}
}

// send connects, runs fn and reports done
func (a *app) send(cmd *cobra.Command, fn func(*viewer.Client) error, done string) error {
	client, err := a.dial(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	if err := fn(client); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
	return nil
}
