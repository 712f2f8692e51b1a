// SPDX-License-Identifier: MIT

package distance

import (
	"fmt"

	"github.com/katalvlaran/pressure/valve"
)

// Resolve computes shortest travel times between every pair of valves and
// materializes the reduced matrix.
//
// Steps:
//  1. Seed: d[i][i]=0, d[i][j]=1 for each tunnel i→j, +inf otherwise.
//  2. Relax with Floyd–Warshall, fixed k → i → j order, strict improvement.
//  3. Select the materialized nodes (useful valves + Required, or all).
//  4. Copy their pairwise distances; any +inf is ErrDisconnectedGraph.
func Resolve(g *valve.Graph, opts ...Option) (*Matrix, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	for _, id := range o.Required {
		if !g.Has(id) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownValve, id)
		}
	}

	n := g.Len()
	m := &Matrix{g: g}

	// 1) Seed direct distances and next hops.
	m.full = make([]int, n*n)
	m.next = make([]int, n*n)
	var i, j int
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			m.full[i*n+j] = inf
			m.next[i*n+j] = -1
		}
		m.full[i*n+i] = 0
		m.next[i*n+i] = i
		for _, j = range g.Tunnels(i) {
			m.full[i*n+j] = 1
			m.next[i*n+j] = j
		}
	}

	// 2) Close the table.
	floydWarshallInPlace(m.full, m.next, n)

	// 3) Pick the materialized node set.
	if o.AllNodes {
		m.nodes = make([]int, n)
		for i = range m.nodes {
			m.nodes[i] = i
		}
	} else {
		m.nodes = g.Useful(o.Required...)
	}

	// 4) Materialize and check connectivity of every required pair.
	k := len(m.nodes)
	m.d = make([]int, k*k)
	m.pos = make(map[string]int, k)
	var a, b, x int
	for a = 0; a < k; a++ {
		m.pos[g.ID(m.nodes[a])] = a
		for b = 0; b < k; b++ {
			x = m.full[m.nodes[a]*n+m.nodes[b]]
			if x == inf {
				return nil, fmt.Errorf("%w: no path %s→%s",
					ErrDisconnectedGraph, g.ID(m.nodes[a]), g.ID(m.nodes[b]))
			}
			m.d[a*k+b] = x
		}
	}

	return m, nil
}

// floydWarshallInPlace relaxes a row-major n×n table in place and keeps the
// next-hop table in step with every improvement. inf entries are skipped so
// the sum never overflows.
func floydWarshallInPlace(d, next []int, n int) {
	var (
		k, i, j      int
		baseK, baseI int
		ik, kj, cand int
	)
	for k = 0; k < n; k++ {
		baseK = k * n
		for i = 0; i < n; i++ {
			baseI = i * n
			ik = d[baseI+k]
			if ik == inf {
				continue
			}
			for j = 0; j < n; j++ {
				kj = d[baseK+j]
				if kj == inf {
					continue
				}
				cand = ik + kj
				if cand < d[baseI+j] {
					d[baseI+j] = cand
					next[baseI+j] = next[baseI+k]
				}
			}
		}
	}
}
