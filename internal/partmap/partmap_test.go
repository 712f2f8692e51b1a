package partmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type key struct {
	a uint8
	b uint64
}

func TestStoreIfAbsent(t *testing.T) {
	pm := New[key, int](4, 16)
	require.Equal(t, 4, pm.NumPart())

	v, stored := pm.StoreIfAbsent(key{1, 2}, 10)
	require.True(t, stored)
	require.Equal(t, 10, v)

	v, stored = pm.StoreIfAbsent(key{1, 2}, 20)
	require.False(t, stored)
	require.Equal(t, 10, v, "first writer wins")

	got, ok := pm.Load(key{1, 2})
	require.True(t, ok)
	require.Equal(t, 10, got)

	_, ok = pm.Load(key{2, 1})
	require.False(t, ok)
	require.Equal(t, 1, pm.Size())
}

func TestStoreIfBetter(t *testing.T) {
	pm := New[key, int](0, 0)
	require.Equal(t, 1, pm.NumPart())
	higher := func(old, v int) bool { return v > old }

	require.True(t, pm.StoreIfBetter(key{}, 5, higher))
	require.False(t, pm.StoreIfBetter(key{}, 5, higher))
	require.False(t, pm.StoreIfBetter(key{}, 3, higher))
	require.True(t, pm.StoreIfBetter(key{}, 8, higher))

	got, _ := pm.Load(key{})
	require.Equal(t, 8, got)
}

func TestConcurrentInsert(t *testing.T) {
	pm := New[key, int](8, 1024)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				pm.StoreIfAbsent(key{b: uint64(i)}, w)
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, 1000, pm.Size())
}
