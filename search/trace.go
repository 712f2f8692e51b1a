// SPDX-License-Identifier: MIT

package search

import (
	"fmt"

	"github.com/katalvlaran/pressure/valve"
)

// expand turns collapsed decisions into one Action per time unit. A move of
// distance d becomes d MoveTo steps along the shortest tunnel route; the
// time left after the last productive decision is filled with Wait.
func (e *engine) expand(plan []decision) ([]Action, error) {
	out := make([]Action, 0, e.budget)
	pos := 0
loop:
	for _, d := range plan {
		switch d.kind {
		case Wait:
			break loop
		case OpenValve:
			out = append(out, Action{Kind: OpenValve, Valve: e.ids[pos]})
		case MoveTo:
			j := int(d.target)
			hops, err := e.dm.Path(e.ids[pos], e.ids[j])
			if err != nil {
				return nil, err
			}
			for _, h := range hops {
				out = append(out, Action{Kind: MoveTo, Valve: h})
			}
			pos = j
		}
	}
	if len(out) > e.budget {
		return nil, fmt.Errorf("%w: trace of %d steps exceeds budget %d", errInconsistentMemo, len(out), e.budget)
	}
	for len(out) < e.budget {
		out = append(out, Action{Kind: Wait})
	}

	return out, nil
}

// Simulate replays actions from start with every valve closed and returns
// the pressure released within budget. Each time unit first releases the
// flow of the valves already open, then applies the action; time left after
// the last action counts as waiting.
//
// Errors: ErrNilInput, ErrUnknownStartValve, ErrInvalidBudget, or
// ErrIllegalAction when an action walks a missing tunnel, opens a valve other
// than the current one, opens a zero-flow or already open valve, or the
// sequence is longer than budget.
func Simulate(g *valve.Graph, start string, budget int, actions []Action) (uint64, error) {
	if g == nil {
		return 0, ErrNilInput
	}
	pos, ok := g.Index(start)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStartValve, start)
	}
	if budget < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBudget, budget)
	}
	if len(actions) > budget {
		return 0, fmt.Errorf("%w: %d actions for a budget of %d", ErrIllegalAction, len(actions), budget)
	}

	var (
		total, rate uint64
		open        = make(map[int]bool)
	)
	for t, a := range actions {
		total += rate
		switch a.Kind {
		case Wait:
		case MoveTo:
			j, ok := g.Index(a.Valve)
			if !ok || !adjacent(g, pos, j) {
				return 0, fmt.Errorf("%w: minute %d: no tunnel %s→%s", ErrIllegalAction, t+1, g.ID(pos), a.Valve)
			}
			pos = j
		case OpenValve:
			if a.Valve != g.ID(pos) {
				return 0, fmt.Errorf("%w: minute %d: open %s while at %s", ErrIllegalAction, t+1, a.Valve, g.ID(pos))
			}
			if g.Flow(pos) == 0 || open[pos] {
				return 0, fmt.Errorf("%w: minute %d: %s cannot be opened", ErrIllegalAction, t+1, a.Valve)
			}
			open[pos] = true
			rate += g.Flow(pos)
		default:
			return 0, fmt.Errorf("%w: minute %d: %s", ErrIllegalAction, t+1, a.Kind)
		}
	}

	return total + rate*uint64(budget-len(actions)), nil
}

func adjacent(g *valve.Graph, from, to int) bool {
	for _, j := range g.Tunnels(from) {
		if j == to {
			return true
		}
	}

	return false
}
