// Package cli implements the typescope viewer commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"typescope/pkg/viewer"
)

// app holds state shared by the commands of one root
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	cfg     *Config
	logger  zerolog.Logger
}

// NewRootCmd builds the typescope command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "typescope",
		Short: "Watch type-system snapshots streamed by a typescope agent",
		Long: `A viewer for typescope agents. Connects to the agent's streaming endpoint,
decodes length-prefixed snapshot frames and shows the types they describe.
In duplex mode it can also change the streaming interval or request a refresh.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a.cfg, err = LoadConfig(a.v, a.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if a.verbose {
				a.logger = log.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.typescope/config.yaml)")
	flags.String("transport", "", "agent transport (unix|tcp|fifo|websocket)")
	flags.String("address", "", "agent address (socket path, host:port or FIFO path)")
	flags.String("path", "", "websocket endpoint path")
	flags.Duration("timeout", 0, "connect and first-frame timeout")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log connection details")

	a.v.BindPFlag("agent.transport", flags.Lookup("transport"))
	a.v.BindPFlag("agent.address", flags.Lookup("address"))
	a.v.BindPFlag("agent.path", flags.Lookup("path"))
	a.v.BindPFlag("agent.timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(
		newWatchCmd(a),
		newTypesCmd(a),
		newIntervalCmd(a),
		newRefreshCmd(a),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dial connects within the configured timeout
func (a *app) dial(ctx context.Context) (*viewer.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Agent.Timeout)
	defer cancel()

	client, err := viewer.Dial(ctx, a.cfg.Agent.Endpoint(), viewer.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to agent: %w", err)
	}
	return client, nil
}
