// Package partmap provides a partitioned map for concurrent insert-if-absent tables.
package partmap

import (
	"hash/maphash"
	"sync"
)

type part[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// Map shards keys over a fixed number of mutex-guarded partitions.
type Map[K comparable, V any] struct {
	numPart uint64
	seed    maphash.Seed
	parts   []*part[K, V]
}

// New returns a map with numPart partitions (at least one), each sized for
// sizeHint/numPart entries.
func New[K comparable, V any](numPart, sizeHint int) *Map[K, V] {
	if numPart < 1 {
		numPart = 1
	}
	pm := &Map[K, V]{
		numPart: uint64(numPart),
		seed:    maphash.MakeSeed(),
		parts:   make([]*part[K, V], numPart),
	}
	for i := range pm.parts {
		pm.parts[i] = &part[K, V]{m: make(map[K]V, sizeHint/numPart)}
	}
	return pm
}

func (pm *Map[K, V]) part(k K) *part[K, V] {
	if pm.numPart == 1 {
		return pm.parts[0]
	}
	return pm.parts[maphash.Comparable(pm.seed, k)%pm.numPart]
}

// Load returns the value stored under k.
func (pm *Map[K, V]) Load(k K) (V, bool) {
	part := pm.part(k)
	part.mu.Lock()
	v, ok := part.m[k]
	part.mu.Unlock()
	return v, ok
}

// StoreIfAbsent stores v under k unless k is already present. It returns the
// value held after the call and whether v was the one stored.
func (pm *Map[K, V]) StoreIfAbsent(k K, v V) (V, bool) {
	part := pm.part(k)
	part.mu.Lock()
	if old, ok := part.m[k]; ok {
		part.mu.Unlock()
		return old, false
	}
	part.m[k] = v
	part.mu.Unlock()
	return v, true
}

// StoreIfBetter stores v under k when k is absent or better(old, v) reports
// that v improves on the current value. It returns whether v was stored.
func (pm *Map[K, V]) StoreIfBetter(k K, v V, better func(old, v V) bool) bool {
	part := pm.part(k)
	part.mu.Lock()
	if old, ok := part.m[k]; ok && !better(old, v) {
		part.mu.Unlock()
		return false
	}
	part.m[k] = v
	part.mu.Unlock()
	return true
}

// Size returns the number of stored entries.
func (pm *Map[K, V]) Size() int {
	size := 0
	for _, part := range pm.parts {
		part.mu.Lock()
		size += len(part.m)
		part.mu.Unlock()
	}
	return size
}

// NumPart returns the number of partitions.
func (pm *Map[K, V]) NumPart() int { return int(pm.numPart) }
