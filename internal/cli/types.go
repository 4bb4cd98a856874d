package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"typescope/pkg/output"
)

func newTypesCmd(a *app) *cobra.Command {
	var filter string
	var members bool

	cmd := &cobra.Command{
		Use:   "types",
		Short: "Show the types in the next snapshot",
		Long: `Reads one snapshot from the agent and lists its types. --filter keeps types
whose full name contains the text (case-insensitive); --members also lists
fields, properties and methods.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.FormatFromCmd(cmd)
			if err != nil {
				return err
			}

			client, err := a.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Agent.Timeout)
			defer cancel()
			snap, err := client.Next(ctx)
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}

			return output.NewPrinter(format, cmd.OutOrStdout()).Types(snap, filter, members)
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only types whose full name contains this text")
	cmd.Flags().BoolVarP(&members, "members", "m", false, "include fields, properties and methods")
	output.AddFormatFlag(cmd)
	return cmd
}
