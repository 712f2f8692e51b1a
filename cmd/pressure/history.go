package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/pressure/internal/config"
	"github.com/katalvlaran/pressure/store"
)

var errNoHistory = errors.New("history needs a sqlite results store (--cache-dsn or cache.kind: sqlite)")

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		dsn   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs kept in the SQLite results store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cache-dsn") {
				cfg.Cache = config.Cache{Kind: config.CacheSQLite, DSN: dsn}
			}
			if cfg.Cache.Kind != config.CacheSQLite || cfg.Cache.DSN == "" {
				return errNoHistory
			}

			s, err := store.NewSQLite(cfg.Cache.DSN)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "run_id\tcreated_at\tstart\tbudget\tstrategy\tmax_pressure\ttraced")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%t\n",
					r.RunID, r.CreatedAt.Format(time.RFC3339), r.Start, r.Budget, r.Strategy,
					r.MaxPressure, r.Actions != nil)
			}

			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dsn, "cache-dsn", "", "SQLite database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "Newest runs to list (0 lists all)")

	return cmd
}
