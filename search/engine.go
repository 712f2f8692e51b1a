// SPDX-License-Identifier: MIT

package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/katalvlaran/pressure/distance"
	"github.com/katalvlaran/pressure/valve"
)

// stateKey is the memoization key. The open-set is a bitmask over the
// positive-flow valves; pos is an engine index.
type stateKey struct {
	pos  uint8
	rem  uint16
	open uint64
}

// decision is one collapsed step: idle to the end, open the current valve,
// or walk to a positive-flow valve.
type decision struct {
	kind   ActionKind
	target uint8
}

// outcome is what the memo stores for a state: the best additional release
// from that state onward and the decision that achieves it.
type outcome struct {
	total uint64
	step  decision
}

// branch is a successor state together with the pressure released while
// reaching it.
type branch struct {
	step decision
	pos  int
	open uint64
	rate uint64
	rem  int
	gain uint64
}

// engine holds the read-only data shared by every walker of one run.
// Index 0 is always the start valve; the rest are the other positive-flow
// valves in graph order.
type engine struct {
	g      *valve.Graph
	dm     *distance.Matrix
	n      int
	ids    []string // engine index → valve id
	flow   []uint64 // engine index → flow rate
	bit    []uint64 // engine index → open-set bit; 0 when the valve cannot be opened
	dist   []int    // row-major n×n travel times
	budget int
	opts   Options
	log    *slog.Logger
}

func (e *engine) at(i, j int) int { return e.dist[i*e.n+j] }

// branches lists every legal successor of a state in evaluation order:
// open the current valve first, then moves by ascending engine index.
// Wait is not listed; callers account for idling directly.
func (e *engine) branches(pos int, open, rate uint64, rem int) []branch {
	out := make([]branch, 0, e.n)
	if b := e.bit[pos]; b != 0 && open&b == 0 && rem >= 1 {
		out = append(out, branch{
			step: decision{kind: OpenValve, target: uint8(pos)},
			pos:  pos, open: open | b, rate: rate + e.flow[pos], rem: rem - 1, gain: rate,
		})
	}
	var j, d int
	for j = 0; j < e.n; j++ {
		if j == pos || e.bit[j] == 0 || open&e.bit[j] != 0 {
			continue
		}
		d = e.at(pos, j)
		if d > rem {
			continue
		}
		out = append(out, branch{
			step: decision{kind: MoveTo, target: uint8(j)},
			pos:  j, open: open, rate: rate, rem: rem - d, gain: rate * uint64(d),
		})
	}

	return out
}

// newEngine validates the call and prefetches the collapsed graph.
//
// Validation order:
//  1. g and dm non-nil, dm resolved from g (ErrNilInput / ErrMatrixMismatch).
//  2. start present in g (ErrUnknownStartValve).
//  3. 0 ≤ budget ≤ MaxBudget (ErrInvalidBudget).
//  4. start and every positive-flow valve materialized in dm (ErrMatrixMismatch).
//  5. at most 64 positive-flow valves (ErrTooManyValves).
func newEngine(g *valve.Graph, dm *distance.Matrix, start string, budget int, opts Options) (*engine, error) {
	if g == nil || dm == nil {
		return nil, ErrNilInput
	}
	if dm.Graph() != g {
		return nil, fmt.Errorf("%w: matrix was resolved from another graph", ErrMatrixMismatch)
	}
	if !g.Has(start) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStartValve, start)
	}
	if budget < 0 || budget > MaxBudget {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBudget, budget)
	}

	// Engine nodes: start first, then every positive-flow valve except start.
	si, ok := dm.Index(start)
	if !ok {
		return nil, fmt.Errorf("%w: start valve %q not materialized", ErrMatrixMismatch, start)
	}
	idx := []int{si}
	for _, gi := range g.Useful() {
		id := g.ID(gi)
		if id == start {
			continue
		}
		di, ok := dm.Index(id)
		if !ok {
			return nil, fmt.Errorf("%w: valve %q not materialized", ErrMatrixMismatch, id)
		}
		idx = append(idx, di)
	}
	openable := len(idx) - 1
	if v, _ := g.Lookup(start); v.Flow > 0 {
		openable++
	}
	if openable > maxOpenable {
		return nil, fmt.Errorf("%w: %d", ErrTooManyValves, openable)
	}

	n := len(idx)
	e := &engine{
		g:      g,
		dm:     dm,
		n:      n,
		ids:    make([]string, n),
		flow:   make([]uint64, n),
		bit:    make([]uint64, n),
		dist:   make([]int, n*n),
		budget: budget,
		opts:   opts,
		log:    opts.Logger,
	}
	nodes := dm.Nodes()
	var i, j int
	for i = 0; i < n; i++ {
		e.ids[i] = nodes[idx[i]]
		v, _ := g.Lookup(e.ids[i])
		e.flow[i] = v.Flow
		for j = 0; j < n; j++ {
			e.dist[i*n+j] = dm.At(idx[i], idx[j])
		}
	}
	// Open-set bits are handed out in engine order to every valve that can
	// be opened, the start included when its flow is positive.
	var b int
	for i = 0; i < n; i++ {
		if e.flow[i] == 0 {
			continue
		}
		e.bit[i] = 1 << b
		b++
	}

	return e, nil
}

// Optimize finds the action sequence that maximizes the pressure released
// within budget time units, starting at start with every valve closed.
//
// g and dm must come from the same build: dm = distance.Resolve(g,
// distance.WithRequired(start)). The computation is deterministic; with the
// same inputs the total is always the same. Ties between equally good
// branches are broken by evaluation order, so the trace is one of possibly
// several optimal ones.
//
// Errors: see the package documentation.
//
// Complexity: O(M · 2^K · T) states in the worst case for M materialized
// valves, K positive-flow valves and budget T; each state costs O(M).
func Optimize(ctx context.Context, g *valve.Graph, dm *distance.Matrix, start string, budget int, opts ...Option) (Result, error) {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	e, err := newEngine(g, dm, start, budget, cfg)
	if err != nil {
		return Result{}, err
	}

	if cfg.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TimeLimit)
		defer cancel()
	}
	if err = ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	e.log.Debug("search started",
		"start", start,
		"budget", budget,
		"valves", e.n-1,
		"strategy", cfg.Strategy.String(),
		"parallelism", cfg.Parallelism,
	)
	began := time.Now()

	var (
		total uint64
		plan  []decision
		stats Stats
	)
	switch cfg.Strategy {
	case BranchAndBound:
		total, plan, stats, err = e.runBranchAndBound(ctx)
	case Memoized:
		total, plan, stats, err = e.runMemoized(ctx)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, cfg.Strategy)
	}
	if err != nil {
		e.log.Debug("search aborted", "err", err, "elapsed", time.Since(began))
		return Result{}, err
	}

	res := Result{MaxPressureReleased: total, Strategy: cfg.Strategy, Stats: stats}
	if cfg.Trace {
		if res.Actions, err = e.expand(plan); err != nil {
			return Result{}, err
		}
	}

	e.log.Debug("search finished",
		"max_pressure", total,
		"expanded", stats.Expanded,
		"memo_hits", stats.MemoHits,
		"memo_entries", stats.MemoEntries,
		"pruned", stats.Pruned,
		"elapsed", time.Since(began),
	)

	return res, nil
}
