package alloc

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendOnlyVecBasics(t *testing.T) {
	v := NewAppendOnlyVec[int]()
	assert.Equal(t, 0, v.Len())

	for i := 0; i < 300; i++ {
		idx := v.Push(i)
		assert.Equal(t, i, idx)
	}
	assert.Equal(t, 300, v.Len())

	var got []int
	v.ForEach(func(value int) {
		got = append(got, value)
	})
	for i, value := range got {
		assert.Equal(t, i, value)
	}
}

func TestAppendOnlyVecConcurrentPush(t *testing.T) {
	const workers = 8
	const perWorker = 500

	v := NewAppendOnlyVec[int]()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v.Push(base*perWorker + i)
			}
		}(w)
	}
	wg.Wait()

	got := v.Drain()
	assert.Len(t, got, workers*perWorker)

	// Every pushed value survives exactly once.
	sort.Ints(got)
	for i, value := range got {
		assert.Equal(t, i, value)
	}
	assert.Equal(t, 0, v.Len())
}

func TestSlabAllocatorGetPut(t *testing.T) {
	sa := NewAstSlabAllocator[int]()

	slice := sa.Get(10)
	assert.Equal(t, 0, len(slice))
	assert.GreaterOrEqual(t, cap(slice), 10)

	slice = append(slice, 1, 2, 3)
	sa.Put(slice)

	// Oversized requests fall through to direct allocation.
	big := sa.Get(10000)
	assert.GreaterOrEqual(t, cap(big), 10000)

	stats := sa.GetStats()
	assert.Greater(t, stats.Allocations+stats.Reuses, int64(0))
}
