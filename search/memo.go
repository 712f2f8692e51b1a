// SPDX-License-Identifier: MIT

package search

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/pressure/internal/partmap"
)

var errInconsistentMemo = errors.New("search: memo lost a visited state")

// pacer samples a context every checkEvery node expansions.
type pacer struct {
	ctx   context.Context
	steps uint64
}

// The first call always samples, so a walker started after cancellation
// stops at once.
func (p *pacer) checkpoint() error {
	p.steps++
	if p.steps%checkEvery != 1 {
		return nil
	}
	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}

	return nil
}

// walker evaluates states depth-first. Each goroutine owns one walker;
// walkers of the same run share the engine and the memo.
type walker struct {
	pacer
	e     *engine
	memo  *partmap.Map[stateKey, outcome]
	stats Stats
}

// value returns the best additional release from (pos, open, rem).
//
// The three move classes are scored as:
//
//	wait:   rate·rem                        (idle until the deadline)
//	open:   rate + value(pos, open∪pos, rem−1)
//	move j: rate·d + value(j, open, rem−d)   d = dist(pos, j) ≤ rem
//
// An idle step never helps before a productive one because released flow
// only grows, so Wait is scored as idling for the rest of the budget. The
// first strictly best branch in that order wins.
func (w *walker) value(pos int, open, rate uint64, rem int) (uint64, error) {
	if rem <= 0 {
		return 0, nil
	}
	k := stateKey{pos: uint8(pos), rem: uint16(rem), open: open}
	if o, ok := w.memo.Load(k); ok {
		w.stats.MemoHits++
		return o.total, nil
	}
	if err := w.checkpoint(); err != nil {
		return 0, err
	}
	w.stats.Expanded++

	e := w.e
	best := outcome{total: rate * uint64(rem), step: decision{kind: Wait}}

	// Open the current valve.
	if b := e.bit[pos]; b != 0 && open&b == 0 {
		v, err := w.value(pos, open|b, rate+e.flow[pos], rem-1)
		if err != nil {
			return 0, err
		}
		if v += rate; v > best.total {
			best = outcome{total: v, step: decision{kind: OpenValve, target: uint8(pos)}}
		}
	}

	// Walk to a closed positive-flow valve.
	var (
		j, d int
		v    uint64
		err  error
	)
	for j = 0; j < e.n; j++ {
		if j == pos || e.bit[j] == 0 || open&e.bit[j] != 0 {
			continue
		}
		d = e.at(pos, j)
		if d > rem {
			continue
		}
		if v, err = w.value(j, open, rate, rem-d); err != nil {
			return 0, err
		}
		if v += rate * uint64(d); v > best.total {
			best = outcome{total: v, step: decision{kind: MoveTo, target: uint8(j)}}
		}
	}

	w.memo.StoreIfAbsent(k, best)

	return best.total, nil
}

// runMemoized evaluates the root state, either on one walker or by fanning
// the root branches out over an errgroup that shares a partitioned memo.
func (e *engine) runMemoized(ctx context.Context) (uint64, []decision, Stats, error) {
	parts := 1
	if e.opts.Parallelism > 1 {
		parts = e.opts.MemoPartitions
	}
	memo := partmap.New[stateKey, outcome](parts, 1<<12)

	var (
		total uint64
		stats Stats
		err   error
	)
	if e.opts.Parallelism <= 1 || e.budget == 0 {
		w := &walker{pacer: pacer{ctx: ctx}, e: e, memo: memo}
		total, err = w.value(0, 0, 0, e.budget)
		stats = w.stats
	} else {
		total, stats, err = e.parallelRoot(ctx, memo)
	}
	if err != nil {
		return 0, nil, Stats{}, err
	}
	stats.MemoEntries = memo.Size()
	e.log.Debug("memo filled", "entries", stats.MemoEntries, "partitions", memo.NumPart())

	plan, err := e.replayMemo(memo)
	if err != nil {
		return 0, nil, Stats{}, err
	}

	return total, plan, stats, nil
}

// parallelRoot scores every root branch concurrently and then combines them
// in the same order value would, so the chosen decision is deterministic.
func (e *engine) parallelRoot(ctx context.Context, memo *partmap.Map[stateKey, outcome]) (uint64, Stats, error) {
	children := e.branches(0, 0, 0, e.budget)
	values := make([]uint64, len(children))
	walkers := make([]*walker, len(children))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.opts.Parallelism)
	for i := range children {
		walkers[i] = &walker{pacer: pacer{ctx: gctx}, e: e, memo: memo}
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrAborted, err)
			}
			c := children[i]
			v, err := walkers[i].value(c.pos, c.open, c.rate, c.rem)
			values[i] = v
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return 0, Stats{}, err
	}

	var stats Stats
	stats.Expanded = 1
	best := outcome{step: decision{kind: Wait}}
	for i, c := range children {
		stats.add(walkers[i].stats)
		if v := values[i] + c.gain; v > best.total {
			best = outcome{total: v, step: c.step}
		}
	}
	memo.StoreIfAbsent(stateKey{pos: 0, rem: uint16(e.budget), open: 0}, best)

	return best.total, stats, nil
}

// replayMemo follows the stored decisions from the root until the budget is
// spent or the stored decision is to idle.
func (e *engine) replayMemo(memo *partmap.Map[stateKey, outcome]) ([]decision, error) {
	var (
		plan []decision
		pos  int
		open uint64
		rem  = e.budget
	)
	for rem > 0 {
		o, ok := memo.Load(stateKey{pos: uint8(pos), rem: uint16(rem), open: open})
		if !ok {
			return nil, errInconsistentMemo
		}
		plan = append(plan, o.step)
		switch o.step.kind {
		case Wait:
			return plan, nil
		case OpenValve:
			open |= e.bit[pos]
			rem--
		case MoveTo:
			j := int(o.step.target)
			rem -= e.at(pos, j)
			pos = j
		}
	}

	return plan, nil
}
