// SPDX-License-Identifier: MIT

// Package search defines the action model, options, result types and
// sentinel errors of the pressure-release optimizer.
//
// The optimizer explores states (position, open-set, time remaining) over
// the collapsed graph produced by package distance. Three actions exist:
//
//   - Wait:         spend one time unit doing nothing.
//   - OpenValve(v): spend one time unit opening the current valve.
//   - MoveTo(v):    walk one tunnel. On the collapsed graph a single
//     decision walks dist(pos, v) tunnels at once.
//
// Options:
//
//   - Strategy:       Memoized (default) or BranchAndBound.
//   - Parallelism:    number of root branches evaluated concurrently (Memoized only).
//   - TimeLimit:      optional wall-clock budget; 0 disables it.
//   - Trace:          expand the chosen decisions into one Action per time unit.
//   - MemoPartitions: shard count of the memo table when running in parallel.
//   - Logger:         *slog.Logger for debug records (discarded by default).
//
// Errors (sentinel):
//
//	ErrNilInput          - graph or matrix is nil.
//	ErrUnknownStartValve - the start id is not a valve of the graph.
//	ErrInvalidBudget     - the time budget is negative or exceeds MaxBudget.
//	ErrMatrixMismatch    - the matrix was not resolved from this graph, or lacks
//	                       the start valve or a positive-flow valve.
//	ErrTooManyValves     - more than 64 positive-flow valves (open-set bitmask width).
//	ErrAborted           - the context was canceled or the time limit passed.
//	ErrUnknownStrategy   - ParseStrategy received an unknown name.
//	ErrIllegalAction     - Simulate met an action that cannot be taken.
package search

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/katalvlaran/pressure/internal/logging"
)

// Sentinel errors returned by the search package.
var (
	// ErrNilInput indicates a nil graph or distance matrix.
	ErrNilInput = errors.New("search: graph or distance matrix is nil")

	// ErrUnknownStartValve indicates that the start id is not in the graph.
	ErrUnknownStartValve = errors.New("search: unknown start valve")

	// ErrInvalidBudget indicates a negative or oversized time budget.
	ErrInvalidBudget = errors.New("search: invalid time budget")

	// ErrMatrixMismatch indicates that the matrix does not cover the graph.
	ErrMatrixMismatch = errors.New("search: distance matrix does not match graph")

	// ErrTooManyValves indicates that the open-set does not fit a 64-bit mask.
	ErrTooManyValves = errors.New("search: more than 64 valves with positive flow")

	// ErrAborted indicates that the search was canceled before completion.
	ErrAborted = errors.New("search: aborted")

	// ErrUnknownStrategy indicates an unrecognized strategy name.
	ErrUnknownStrategy = errors.New("search: unknown strategy")

	// ErrIllegalAction indicates a trace step that violates the move rules.
	ErrIllegalAction = errors.New("search: illegal action")
)

// MaxBudget is the largest accepted time budget.
const MaxBudget = math.MaxUint16

// maxOpenable is the width of the open-set bitmask.
const maxOpenable = 64

// checkEvery is the number of node expansions between two context checks.
const checkEvery = 4096

// ActionKind tags an Action.
type ActionKind uint8

const (
	// Wait spends one time unit idle.
	Wait ActionKind = iota

	// OpenValve spends one time unit opening the current valve.
	OpenValve

	// MoveTo walks one tunnel to a neighboring valve.
	MoveTo
)

// String returns a lower-case name of the kind.
func (k ActionKind) String() string {
	switch k {
	case Wait:
		return "wait"
	case OpenValve:
		return "open"
	case MoveTo:
		return "move"
	default:
		return fmt.Sprintf("ActionKind(%d)", uint8(k))
	}
}

// MarshalText encodes k by name, so persisted traces read "move", "open"
// and "wait".
func (k ActionKind) MarshalText() ([]byte, error) {
	if k > MoveTo {
		return nil, fmt.Errorf("%w: kind %d", ErrIllegalAction, uint8(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *ActionKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "wait":
		*k = Wait
	case "open":
		*k = OpenValve
	case "move":
		*k = MoveTo
	default:
		return fmt.Errorf("%w: kind %q", ErrIllegalAction, text)
	}

	return nil
}

// Action is what happened during one time unit.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Valve string     `json:"valve,omitempty"` // target of MoveTo / OpenValve; empty for Wait
}

// String renders the action the way the report prints it.
func (a Action) String() string {
	switch a.Kind {
	case MoveTo:
		return "move to " + a.Valve
	case OpenValve:
		return "open " + a.Valve
	default:
		return "wait"
	}
}

// Strategy selects the search algorithm.
type Strategy int

const (
	// Memoized is top-down recursion with a (position, open-set, remaining) memo.
	Memoized Strategy = iota

	// BranchAndBound is forward DFS with an incumbent, an admissible upper
	// bound and a dominance table on the same key.
	BranchAndBound
)

// String returns the configuration name of s.
func (s Strategy) String() string {
	switch s {
	case Memoized:
		return "memoized"
	case BranchAndBound:
		return "branch-and-bound"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "memoized", "memo":
		return Memoized, nil
	case "branch-and-bound", "bnb":
		return BranchAndBound, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Options configures Optimize.
type Options struct {
	Strategy       Strategy
	Parallelism    int
	TimeLimit      time.Duration
	Trace          bool
	MemoPartitions int
	Logger         *slog.Logger
}

// Option is a functional option for Optimize.
type Option func(*Options)

// DefaultOptions returns the sequential memoized configuration without tracing.
func DefaultOptions() Options {
	return Options{
		Strategy:       Memoized,
		Parallelism:    1,
		MemoPartitions: 64,
		Logger:         logging.NewNop(),
	}
}

// WithStrategy selects the search algorithm.
func WithStrategy(s Strategy) Option {
	return func(o *Options) { o.Strategy = s }
}

// WithParallelism evaluates up to n root branches concurrently. Values below
// one mean sequential.
func WithParallelism(n int) Option {
	return func(o *Options) {
		if n < 1 {
			n = 1
		}
		o.Parallelism = n
	}
}

// WithTimeLimit aborts the search with ErrAborted once d has elapsed.
func WithTimeLimit(d time.Duration) Option {
	return func(o *Options) { o.TimeLimit = d }
}

// WithTrace requests the per-time-unit action sequence in Result.Actions.
func WithTrace() Option {
	return func(o *Options) { o.Trace = true }
}

// WithMemoPartitions sets the number of memo shards used in parallel runs.
func WithMemoPartitions(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MemoPartitions = n
		}
	}
}

// WithLogger routes debug records to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Stats counts the work done by one Optimize call.
type Stats struct {
	Expanded    uint64 // states whose successors were generated
	MemoHits    uint64 // states answered from the memo
	Pruned      uint64 // branches cut by dominance or the upper bound
	MemoEntries int    // entries held by the memo at the end
}

func (s *Stats) add(o Stats) {
	s.Expanded += o.Expanded
	s.MemoHits += o.MemoHits
	s.Pruned += o.Pruned
}

// Result is the outcome of Optimize.
//
// MaxPressureReleased is the optimum. Actions is nil unless tracing was
// requested; it then holds exactly one Action per time unit of the budget.
type Result struct {
	MaxPressureReleased uint64
	Actions             []Action
	Strategy            Strategy
	Stats               Stats
}
