// SPDX-License-Identifier: MIT

package distance

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/katalvlaran/pressure/valve"
)

// Len returns the number of materialized nodes.
func (m *Matrix) Len() int { return len(m.nodes) }

// Graph returns the graph the matrix was resolved from.
func (m *Matrix) Graph() *valve.Graph { return m.g }

// Nodes returns the materialized valve IDs in dense index order.
func (m *Matrix) Nodes() []string {
	out := make([]string, len(m.nodes))
	for i, v := range m.nodes {
		out[i] = m.g.ID(v)
	}

	return out
}

// Index returns the dense index of id, if it was materialized.
func (m *Matrix) Index(id string) (int, bool) {
	i, ok := m.pos[id]

	return i, ok
}

// At returns the distance between dense indices i and j.
func (m *Matrix) At(i, j int) int { return m.d[i*len(m.nodes)+j] }

// Between returns the distance between two materialized valves.
func (m *Matrix) Between(a, b string) (int, bool) {
	i, ok := m.pos[a]
	if !ok {
		return 0, false
	}
	j, ok := m.pos[b]
	if !ok {
		return 0, false
	}

	return m.At(i, j), true
}

// Path returns the valves visited when walking from a to b along a shortest
// route: every intermediate valve followed by b itself. The length of the
// result equals the distance; Path(a, a) is empty.
//
// Unlike Between, Path works for any pair of valves in the graph, not only
// the materialized ones.
func (m *Matrix) Path(a, b string) ([]string, error) {
	i, ok := m.g.Index(a)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownValve, a)
	}
	j, ok := m.g.Index(b)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownValve, b)
	}
	n := m.g.Len()
	if m.full[i*n+j] == inf {
		return nil, fmt.Errorf("%w: no path %s→%s", ErrDisconnectedGraph, a, b)
	}

	out := make([]string, 0, m.full[i*n+j])
	for i != j {
		i = m.next[i*n+j]
		out = append(out, m.g.ID(i))
	}

	return out, nil
}

// WriteTo prints the materialized matrix as an aligned table, one row per
// valve, headed by the valve IDs and their flow rates.
func (m *Matrix) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 1, ' ', tabwriter.AlignRight)
	ids := m.Nodes()

	fmt.Fprint(tw, "\t")
	for _, id := range ids {
		fmt.Fprintf(tw, "%s\t", id)
	}
	fmt.Fprintln(tw, "flow\t")
	for i, id := range ids {
		fmt.Fprintf(tw, "%s\t", id)
		for j := range ids {
			fmt.Fprintf(tw, "%d\t", m.At(i, j))
		}
		fmt.Fprintf(tw, "%d\t\n", m.g.Flow(m.nodes[i]))
	}
	if err := tw.Flush(); err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, sb.String())

	return int64(n), err
}
