// SPDX-License-Identifier: MIT

package search

import (
	"context"

	"github.com/katalvlaran/pressure/internal/partmap"
)

// bnbWalker runs the forward branch-and-bound search.
//
// acc is the pressure released so far. A state is cut when
//   - a previous visit of the same (pos, open, rem) arrived with acc' ≥ acc
//     (dominance), or
//   - the upper bound of every completion does not beat the incumbent.
type bnbWalker struct {
	pacer
	e     *engine
	seen  *partmap.Map[stateKey, uint64] // best acc seen per state
	stats Stats

	best     uint64     // incumbent total
	bestPlan []decision // decisions of the incumbent; idling fills the rest
	path     []decision // decisions on the current DFS path
}

func higherAcc(old, v uint64) bool { return v > old }

// upperBound is an admissible estimate of the best total reachable from a
// state: every still-closed valve j is assumed to open as early as it
// possibly could, dist(pos, j)+1 steps from now, and release until the end.
func (w *bnbWalker) upperBound(pos int, open, rate uint64, rem int, acc uint64) uint64 {
	e := w.e
	ub := acc + rate*uint64(rem)
	var j, left int
	for j = 0; j < e.n; j++ {
		if e.bit[j] == 0 || open&e.bit[j] != 0 {
			continue
		}
		left = rem - e.at(pos, j) - 1
		if left > 0 {
			ub += e.flow[j] * uint64(left)
		}
	}

	return ub
}

func (w *bnbWalker) dfs(pos int, open, rate uint64, rem int, acc uint64) error {
	if err := w.checkpoint(); err != nil {
		return err
	}
	w.stats.Expanded++

	// Idling until the deadline is always a feasible completion.
	if total := acc + rate*uint64(rem); total > w.best {
		w.best = total
		w.bestPlan = append(w.bestPlan[:0], w.path...)
	}
	if rem <= 0 {
		return nil
	}

	k := stateKey{pos: uint8(pos), rem: uint16(rem), open: open}
	if !w.seen.StoreIfBetter(k, acc, higherAcc) {
		w.stats.Pruned++
		return nil
	}
	if w.upperBound(pos, open, rate, rem, acc) <= w.best {
		w.stats.Pruned++
		return nil
	}

	for _, c := range w.e.branches(pos, open, rate, rem) {
		w.path = append(w.path, c.step)
		err := w.dfs(c.pos, c.open, c.rate, c.rem, acc+c.gain)
		w.path = w.path[:len(w.path)-1]
		if err != nil {
			return err
		}
	}

	return nil
}

// runBranchAndBound is sequential; Options.Parallelism does not apply.
func (e *engine) runBranchAndBound(ctx context.Context) (uint64, []decision, Stats, error) {
	w := &bnbWalker{
		pacer: pacer{ctx: ctx},
		e:     e,
		seen:  partmap.New[stateKey, uint64](1, 1<<12),
	}
	if e.opts.Parallelism > 1 {
		e.log.Debug("parallelism ignored by branch-and-bound", "parallelism", e.opts.Parallelism)
	}
	if err := w.dfs(0, 0, 0, e.budget, 0); err != nil {
		return 0, nil, Stats{}, err
	}
	w.stats.MemoEntries = w.seen.Size()

	return w.best, w.bestPlan, w.stats, nil
}
