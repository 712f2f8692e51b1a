package main

import (
	"github.com/spf13/cobra"

	"github.com/katalvlaran/pressure/distance"
)

func newDistancesCmd(g *globalFlags) *cobra.Command {
	var (
		start      string
		undirected bool
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "distances [input]",
		Short: "Print the collapsed distance map",
		Long: `Prints shortest tunnel distances between the valves with a positive flow
rate and the start valve. With --all every valve is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("start") {
				cfg.Start = start
			}
			if cmd.Flags().Changed("undirected") {
				cfg.Undirected = undirected
			}

			_, graph, err := readGraph(cmd, args, cfg.Undirected)
			if err != nil {
				return err
			}
			opts := []distance.Option{distance.WithRequired(cfg.Start)}
			if all {
				opts = append(opts, distance.WithAllNodes())
			}
			dm, err := distance.Resolve(graph, opts...)
			if err != nil {
				return err
			}
			_, err = dm.WriteTo(cmd.OutOrStdout())

			return err
		},
	}
	cmd.Flags().StringVar(&start, "start", "AA", "Start valve kept in the map")
	cmd.Flags().BoolVar(&undirected, "undirected", false, "Treat every tunnel as two-way")
	cmd.Flags().BoolVar(&all, "all", false, "Include zero-flow valves")

	return cmd
}
