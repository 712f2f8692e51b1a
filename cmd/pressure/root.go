package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/pressure/internal/config"
	"github.com/katalvlaran/pressure/internal/logging"
	"github.com/katalvlaran/pressure/parse"
	"github.com/katalvlaran/pressure/valve"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "pressure",
		Short: "Pressure finds the best valve opening schedule for a tunnel network",
		Long: `Pressure reads a valve network, collapses it to the valves worth visiting
and searches for the schedule of moves and openings that releases the most
pressure within a time budget.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newSolveCmd(g), newDistancesCmd(g), newHistoryCmd(g), newVersionCmd())

	return root
}

// load resolves the layered configuration: file, environment, then the
// persistent flags. Command-specific flags are applied by the caller.
func (g *globalFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}

	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	return logging.New(level, cfg.Log.Format), nil
}

// readGraph parses the network from the named file, or from stdin when the
// name is empty or "-". It also returns the raw rows for fingerprinting.
func readGraph(cmd *cobra.Command, args []string, undirected bool) ([]valve.Row, *valve.Graph, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	rows, err := parse.Parse(r)
	if err != nil {
		return nil, nil, err
	}
	var opts []valve.Option
	if undirected {
		opts = append(opts, valve.WithUndirected())
	}
	g, err := valve.Build(rows, opts...)
	if err != nil {
		return nil, nil, err
	}

	return rows, g, nil
}
