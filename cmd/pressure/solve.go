package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/pressure/distance"
	"github.com/katalvlaran/pressure/internal/config"
	"github.com/katalvlaran/pressure/internal/metrics"
	"github.com/katalvlaran/pressure/report"
	"github.com/katalvlaran/pressure/search"
	"github.com/katalvlaran/pressure/store"
	"github.com/katalvlaran/pressure/store/redis"
)

// solveFlags mirror config.Config; only flags set on the command line
// override the file and environment.
type solveFlags struct {
	start       string
	budget      int
	strategy    string
	parallel    int
	timeout     time.Duration
	trace       bool
	format      string
	undirected  bool
	cache       string
	cacheDSN    string
	cacheTTL    time.Duration
	metricsAddr string
}

func newSolveCmd(g *globalFlags) *cobra.Command {
	f := &solveFlags{}
	def := config.Default()
	cmd := &cobra.Command{
		Use:   "solve [input]",
		Short: "Compute the maximum releasable pressure",
		Long: `Reads the valve network from the input file (stdin when omitted or "-")
and prints the maximum pressure that can be released from the start valve
within the budget. With --trace the per-minute schedule is printed too.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			return runSolve(cmd, args, cfg, log)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.start, "start", def.Start, "Start valve")
	fl.IntVar(&f.budget, "budget", def.Budget, "Time budget in minutes")
	fl.StringVar(&f.strategy, "strategy", def.Strategy, "Search strategy (memoized, branch-and-bound)")
	fl.IntVar(&f.parallel, "parallel", def.Parallelism, "Workers for the root fan-out of the memoized search")
	fl.DurationVar(&f.timeout, "timeout", def.Timeout, "Abort the search after this long (0 disables)")
	fl.BoolVar(&f.trace, "trace", def.Trace, "Print the per-minute schedule")
	fl.StringVar(&f.format, "format", def.Format, "Output format (text, json, pretty)")
	fl.BoolVar(&f.undirected, "undirected", def.Undirected, "Treat every tunnel as two-way")
	fl.StringVar(&f.cache, "cache", def.Cache.Kind, "Results store (none, sqlite, redis)")
	fl.StringVar(&f.cacheDSN, "cache-dsn", def.Cache.DSN, "SQLite path or redis:// URL")
	fl.DurationVar(&f.cacheTTL, "cache-ttl", def.Cache.TTL, "Expiry of redis entries (0 keeps them)")
	fl.StringVar(&f.metricsAddr, "metrics-addr", def.MetricsAddr, "Serve Prometheus metrics on this address while solving")

	return cmd
}

func (f *solveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	set := func(name string, fn func()) {
		if fl.Changed(name) {
			fn()
		}
	}
	set("start", func() { cfg.Start = f.start })
	set("budget", func() { cfg.Budget = f.budget })
	set("strategy", func() { cfg.Strategy = f.strategy })
	set("parallel", func() { cfg.Parallelism = f.parallel })
	set("timeout", func() { cfg.Timeout = f.timeout })
	set("trace", func() { cfg.Trace = f.trace })
	set("format", func() { cfg.Format = f.format })
	set("undirected", func() { cfg.Undirected = f.undirected })
	set("cache", func() { cfg.Cache.Kind = f.cache })
	set("cache-dsn", func() { cfg.Cache.DSN = f.cacheDSN })
	set("cache-ttl", func() { cfg.Cache.TTL = f.cacheTTL })
	set("metrics-addr", func() { cfg.MetricsAddr = f.metricsAddr })
}

func runSolve(cmd *cobra.Command, args []string, cfg config.Config, log *slog.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 1) Validated settings.
	strategy, err := search.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	// 2) Network.
	rows, graph, err := readGraph(cmd, args, cfg.Undirected)
	if err != nil {
		return err
	}
	log.Debug("network loaded", "valves", graph.Len(), "total_flow", graph.TotalFlow())

	rec := metrics.New()
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, rec, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	// 3) Results store.
	cache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}
	fp := store.Fingerprint(rows, cfg.Start, cfg.Budget, cfg.Undirected)

	res, hit, err := lookup(ctx, cache, fp, cfg.Trace, log)
	if err != nil {
		return err
	}
	if hit {
		rec.ObserveCached(res.Strategy)
	} else {
		// 4) Search.
		dm, err := distance.Resolve(graph, distance.WithRequired(cfg.Start))
		if err != nil {
			return err
		}
		opts := []search.Option{
			search.WithStrategy(strategy),
			search.WithParallelism(cfg.Parallelism),
			search.WithTimeLimit(cfg.Timeout),
			search.WithLogger(log),
		}
		if cfg.Trace {
			opts = append(opts, search.WithTrace())
		}

		began := time.Now()
		res, err = search.Optimize(ctx, graph, dm, cfg.Start, cfg.Budget, opts...)
		rec.Observe(strategy, res.Stats, time.Since(began), err)
		if err != nil {
			return err
		}
		log.Info("solved",
			"max_pressure", res.MaxPressureReleased,
			"strategy", res.Strategy.String(),
			"expanded", res.Stats.Expanded,
			"elapsed", time.Since(began),
		)

		if cache != nil {
			r := store.NewRecord(fp, cfg.Start, cfg.Budget, res)
			if err := cache.Put(ctx, r); err != nil {
				log.Warn("results store write failed", "error", err)
			} else {
				log.Debug("run stored", "run_id", r.RunID, "fingerprint", fp)
			}
		}
	}

	// 5) Report.
	sum, err := report.New(res, cfg.Budget, graph, cfg.Start)
	if err != nil {
		return err
	}

	return report.Render(cmd.OutOrStdout(), sum, format)
}

// lookup consults the results store. A cached run without a trace cannot
// answer a traced request; a stored trace always holds one action per
// minute of the budget.
func lookup(ctx context.Context, cache store.Cache, fp string, trace bool, log *slog.Logger) (search.Result, bool, error) {
	if cache == nil {
		return search.Result{}, false, nil
	}
	r, ok, err := cache.Get(ctx, fp)
	if err != nil {
		log.Warn("results store read failed", "error", err)
		return search.Result{}, false, nil
	}
	if !ok || (trace && len(r.Actions) != r.Budget) {
		return search.Result{}, false, nil
	}
	res, err := r.Result()
	if err != nil {
		return search.Result{}, false, err
	}
	if !trace {
		res.Actions = nil
	}
	log.Info("answered from results store", "run_id", r.RunID, "max_pressure", r.MaxPressure)

	return res, true, nil
}

func openCache(ctx context.Context, c config.Cache) (store.Cache, error) {
	switch c.Kind {
	case config.CacheSQLite:
		return store.NewSQLite(c.DSN)
	case config.CacheRedis:
		return redis.Dial(ctx, c.DSN, c.TTL)
	default:
		return nil, nil
	}
}

// serveMetrics exposes the recorder's registry on addr until stop is called.
func serveMetrics(addr string, rec *metrics.Recorder, log *slog.Logger) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
