// Command dotarl trains agents to walk down the lane of a MOBA game,
// either in the simulated lane or in the game itself through a bot
// connected to the bridge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/dotarl/config"
)

var log = logging.MustGetLogger("dotarl")

var (
	configFile string
	verbose    bool
	conf       *config.Config
)

const logFormat = `%{time:15:04:05.000} - %{module} - %{level} - %{message}`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dotarl",
		Short:         "Train lane walking agents with shaped rewards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)

			c, err := config.FromYaml(configFile)
			if err != nil {
				return err
			}
			conf = c
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"YAML configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log debug messages")

	root.AddCommand(
		DQNCommand(),
		PGCommand(),
		PGReplayCommand(),
		ShaperCommand(),
		BridgeCommand(),
		PlotCommand(),
	)
	return root
}

func setupLogging(verbose bool) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend,
		logging.MustStringFormatter(logFormat))

	leveled := logging.AddModuleLevel(formatted)
	if verbose {
		leveled.SetLevel(logging.DEBUG, "")
	} else {
		leveled.SetLevel(logging.INFO, "")
	}
	logging.SetBackend(leveled)
}
