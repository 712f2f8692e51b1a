// SPDX-License-Identifier: MIT

package valve

import (
	"fmt"
)

// Build constructs an immutable Graph from rows.
//
// Validation runs in two passes:
//  1. Every row is registered; empty and duplicate IDs are rejected.
//  2. Every tunnel is resolved against the registered IDs (deferred
//     reference check), so rows may mention valves defined later.
//
// Duplicate tunnel entries collapse to one edge and self-tunnels are dropped.
// All failures wrap ErrMalformedInput.
//
// Complexity: O(V + E).
func Build(rows []Row, opts ...Option) (*Graph, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	n := len(rows)
	g := &Graph{
		ids:        make([]string, n),
		flow:       make([]uint64, n),
		adj:        make([][]int, n),
		index:      make(map[string]int, n),
		undirected: o.undirected,
	}

	// 1) Register ids.
	var (
		i int
		r Row
	)
	for i, r = range rows {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: row %d has an empty id", ErrMalformedInput, i)
		}
		if _, dup := g.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: valve %q defined twice", ErrMalformedInput, r.ID)
		}
		g.index[r.ID] = i
		g.ids[i] = r.ID
		g.flow[i] = r.Flow
	}

	// 2) Resolve tunnels now that every id is known.
	seen := make([]map[int]struct{}, n)
	for i = range seen {
		seen[i] = make(map[int]struct{})
	}
	link := func(from, to int) {
		if from == to {
			return
		}
		if _, ok := seen[from][to]; ok {
			return
		}
		seen[from][to] = struct{}{}
		g.adj[from] = append(g.adj[from], to)
	}
	for i, r = range rows {
		for _, t := range r.Tunnels {
			j, ok := g.index[t]
			if !ok {
				return nil, fmt.Errorf("%w: valve %q has a tunnel to unknown valve %q", ErrMalformedInput, r.ID, t)
			}
			link(i, j)
			if o.undirected {
				link(j, i)
			}
		}
	}

	return g, nil
}

// Len returns the number of valves.
func (g *Graph) Len() int { return len(g.ids) }

// Index returns the arena index of id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]

	return i, ok
}

// Has reports whether id names a valve of g.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]

	return ok
}

// ID returns the identifier stored at index i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// Flow returns the flow rate of the valve at index i.
func (g *Graph) Flow(i int) uint64 { return g.flow[i] }

// Tunnels returns the indices reachable from i through one tunnel. The
// slice is a copy.
func (g *Graph) Tunnels(i int) []int {
	out := make([]int, len(g.adj[i]))
	copy(out, g.adj[i])

	return out
}

// Valve returns a copy of the valve at index i.
func (g *Graph) Valve(i int) Valve {
	tunnels := make([]string, len(g.adj[i]))
	for k, j := range g.adj[i] {
		tunnels[k] = g.ids[j]
	}

	return Valve{ID: g.ids[i], Flow: g.flow[i], Tunnels: tunnels}
}

// Lookup returns the valve named id.
func (g *Graph) Lookup(id string) (Valve, bool) {
	i, ok := g.index[id]
	if !ok {
		return Valve{}, false
	}

	return g.Valve(i), true
}

// IDs returns all valve IDs in arena order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)

	return out
}

// Useful returns, in arena order, the indices of every valve with a positive
// flow rate plus the extra ids given (typically the start valve). Unknown
// extras are ignored; callers validate them.
func (g *Graph) Useful(extra ...string) []int {
	keep := make([]bool, len(g.ids))
	for _, id := range extra {
		if i, ok := g.index[id]; ok {
			keep[i] = true
		}
	}
	out := make([]int, 0, len(g.ids))
	for i := range g.ids {
		if keep[i] || g.flow[i] > 0 {
			out = append(out, i)
		}
	}

	return out
}

// Undirected reports whether tunnels were mirrored at build time.
func (g *Graph) Undirected() bool { return g.undirected }

// TotalFlow returns the sum of all flow rates.
func (g *Graph) TotalFlow() uint64 {
	var sum uint64
	for _, f := range g.flow {
		sum += f
	}

	return sum
}
