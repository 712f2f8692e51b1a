package search

import "context"

// FirstCheckpoint runs the first context check of a fresh pacer.
func FirstCheckpoint(ctx context.Context) error {
	p := pacer{ctx: ctx}

	return p.checkpoint()
}
