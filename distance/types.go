// SPDX-License-Identifier: MIT

// Package distance collapses a valve network into a dense all-pairs distance
// matrix over the valves that matter to the optimizer.
//
// Resolve runs Floyd–Warshall over the full arena (every tunnel costs one
// time step) and then materializes only the "useful" node set: valves with a
// positive flow rate plus any ids the caller marks as required (the start
// valve, typically). The search engine then hops between useful valves in
// one move instead of walking zero-flow junctions one step at a time.
//
// A next-hop table is kept for the full arena so that a collapsed move can be
// expanded back into the concrete tunnel walk (see Matrix.Path).
//
// Complexity:
//
//   - Time:  O(V³) for the relaxation, O(M²) to materialize M useful nodes.
//   - Space: O(V²) for distances and next hops.
//
// Errors (sentinel):
//
//	ErrNilGraph          - a nil *valve.Graph was passed.
//	ErrUnknownValve      - a required id or a Path endpoint is not in the graph.
//	ErrDisconnectedGraph - some materialized pair has no finite path.
package distance

import (
	"errors"

	"github.com/katalvlaran/pressure/valve"
)

// Sentinel errors returned by Resolve and Matrix methods.
var (
	// ErrNilGraph indicates that Resolve received a nil graph.
	ErrNilGraph = errors.New("distance: graph is nil")

	// ErrUnknownValve indicates an id that does not name a valve of the graph.
	ErrUnknownValve = errors.New("distance: unknown valve")

	// ErrDisconnectedGraph indicates that two required valves are not connected.
	ErrDisconnectedGraph = errors.New("distance: graph is disconnected")
)

// inf marks "no path" in the full distance table.
const inf = int(^uint(0) >> 1)

// Option configures Resolve.
type Option func(*Options)

// Options holds the Resolve configuration.
//
// Required – ids materialized even when their flow rate is zero.
// AllNodes – materialize every valve (debug output); connectivity is then
// required between every pair.
type Options struct {
	Required []string
	AllNodes bool
}

// WithRequired adds ids to the materialized node set.
func WithRequired(ids ...string) Option {
	return func(o *Options) { o.Required = append(o.Required, ids...) }
}

// WithAllNodes materializes the whole arena instead of the useful subset.
func WithAllNodes() Option {
	return func(o *Options) { o.AllNodes = true }
}

// Matrix is the read-only result of Resolve.
//
// Materialized nodes are addressed by a dense index 0..Len()-1 in arena
// order. Full-arena tables are kept for path reconstruction.
type Matrix struct {
	g     *valve.Graph
	nodes []int          // dense index → arena index
	pos   map[string]int // id → dense index
	d     []int          // dense distances, row-major Len()×Len()
	full  []int          // arena distances, row-major V×V, inf = no path
	next  []int          // arena next hop, row-major V×V, -1 = none
}
