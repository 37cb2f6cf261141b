package alloc

import (
	"sync"
	"sync/atomic"
)

// SlabAllocator is a generic slab allocator for the slices that AST
// rewriting churns through: statement bodies, property lists, argument
// lists. It keeps pre-sized pools for common capacities to cut GC
// pressure when tens of thousands of modules are rewritten in one build.
type SlabAllocator[T any] struct {
	pools []*poolTier[T]

	stats atomic.Value // *AllocatorStats
}

// poolTier is a single size tier in the slab allocator.
type poolTier[T any] struct {
	capacity int
	pool     sync.Pool
}

// AllocatorStats tracks allocation statistics.
type AllocatorStats struct {
	Allocations   int64
	Reuses        int64
	PoolHits      int64
	PoolMisses    int64
	TotalCapacity int64
}

// SlabTierConfig defines the configuration for a single slab tier.
type SlabTierConfig struct {
	Capacity int
	Weight   float64 // relative share of allocations expected at this tier
}

// AstTierConfigs is sized from the shape of real module graphs: most
// top-level bodies and property lists are tiny, a long tail is not.
var AstTierConfigs = []SlabTierConfig{
	{Capacity: 4, Weight: 0.45},
	{Capacity: 8, Weight: 0.25},
	{Capacity: 16, Weight: 0.15},
	{Capacity: 32, Weight: 0.08},
	{Capacity: 64, Weight: 0.04},
	{Capacity: 128, Weight: 0.02},
	{Capacity: 256, Weight: 0.01},
}

// NewSlabAllocator creates a new slab allocator with the given tier
// configurations.
func NewSlabAllocator[T any](configs []SlabTierConfig) *SlabAllocator[T] {
	sa := &SlabAllocator[T]{
		pools: make([]*poolTier[T], len(configs)),
	}

	for i, config := range configs {
		cap := config.Capacity // capture for closure
		sa.pools[i] = &poolTier[T]{
			capacity: cap,
			pool: sync.Pool{
				New: func() any {
					return make([]T, 0, cap)
				},
			},
		}
	}

	sa.stats.Store(&AllocatorStats{})

	return sa
}

// NewAstSlabAllocator creates a slab allocator tuned for AST slices.
func NewAstSlabAllocator[T any]() *SlabAllocator[T] {
	return NewSlabAllocator[T](AstTierConfigs)
}

// Get returns a slice with at least the requested capacity.
// The returned slice has length 0 and capacity >= requested.
func (sa *SlabAllocator[T]) Get(capacity int) []T {
	if capacity <= 0 {
		return make([]T, 0)
	}

	// Find the smallest pool that can accommodate the request
	for _, tier := range sa.pools {
		if tier.capacity >= capacity {
			return sa.getFromPool(tier)
		}
	}

	// No pool large enough, allocate directly
	sa.updateStats(func(stats *AllocatorStats) {
		stats.Allocations++
		stats.PoolMisses++
		stats.TotalCapacity += int64(capacity)
	})

	return make([]T, 0, capacity)
}

// Put returns a slice to the appropriate pool for reuse.
// Slices whose capacity matches no tier's capacity exactly are discarded.
func (sa *SlabAllocator[T]) Put(slice []T) {
	if slice == nil || cap(slice) == 0 {
		return
	}

	capacity := cap(slice)
	for _, tier := range sa.pools {
		if tier.capacity == capacity {
			slice = slice[:0]
			tier.pool.Put(slice)

			sa.updateStats(func(stats *AllocatorStats) {
				stats.Reuses++
				stats.PoolHits++
			})
			return
		}
	}

	// No matching pool, discard
	sa.updateStats(func(stats *AllocatorStats) {
		stats.PoolMisses++
	})
}

// GetStats returns current allocation statistics.
func (sa *SlabAllocator[T]) GetStats() AllocatorStats {
	return *sa.stats.Load().(*AllocatorStats)
}

// ResetStats resets all statistics to zero.
func (sa *SlabAllocator[T]) ResetStats() {
	sa.stats.Store(&AllocatorStats{})
}

func (sa *SlabAllocator[T]) getFromPool(tier *poolTier[T]) []T {
	if slice := tier.pool.Get(); slice != nil {
		sa.updateStats(func(stats *AllocatorStats) {
			stats.Reuses++
			stats.PoolHits++
			stats.TotalCapacity += int64(tier.capacity)
		})
		return slice.([]T)
	}

	sa.updateStats(func(stats *AllocatorStats) {
		stats.Allocations++
		stats.PoolMisses++
		stats.TotalCapacity += int64(tier.capacity)
	})

	return make([]T, 0, tier.capacity)
}

func (sa *SlabAllocator[T]) updateStats(update func(*AllocatorStats)) {
	current := sa.stats.Load().(*AllocatorStats)
	newStats := *current

	update(&newStats)
	sa.stats.Store(&newStats)
}
