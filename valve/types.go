// SPDX-License-Identifier: MIT

// Package valve defines the Row record, the immutable Graph arena and the
// sentinel errors of the graph model.
//
// A Graph is built once from parsed rows and is read-only afterwards. Valves
// live in an arena slice addressed by a stable integer index (the order in
// which rows were supplied); tunnels are stored as index adjacency lists, so
// no valve ever holds a pointer to another valve.
//
// Errors:
//
//	ErrMalformedInput - a row cannot be decomposed into id/flow/tunnels,
//	                    an id is duplicated, or a tunnel names an unknown valve.
package valve

import "errors"

// ErrMalformedInput indicates that a row could not be turned into a valve,
// or that a tunnel references a valve that was never defined.
var ErrMalformedInput = errors.New("valve: malformed input")

// Row is one parsed record of the valve network.
//
// ID identifies the valve, Flow is the pressure released per remaining time
// unit once the valve is open, Tunnels lists directly reachable valve IDs.
type Row struct {
	ID      string
	Flow    uint64
	Tunnels []string
}

// Valve is a read-only view of one arena entry.
type Valve struct {
	// ID is the unique identifier of the valve.
	ID string

	// Flow is the pressure released per time unit while the valve is open.
	Flow uint64

	// Tunnels holds the IDs of directly reachable valves, in input order.
	Tunnels []string
}

// Option configures Build.
type Option func(*options)

type options struct {
	undirected bool
}

// WithUndirected mirrors every tunnel so that a→b implies b→a.
// Puzzle inputs already list both directions; this makes asymmetric hand
// written networks behave the same way.
func WithUndirected() Option {
	return func(o *options) { o.undirected = true }
}

// Graph is the immutable valve network.
type Graph struct {
	ids        []string       // index → id
	flow       []uint64       // index → flow rate
	adj        [][]int        // index → neighbor indices (deduplicated, input order)
	index      map[string]int // id → index
	undirected bool           // tunnels were mirrored at build time
}
