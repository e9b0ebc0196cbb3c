package gpu

import (
	"math"
	"sort"

	"github.com/ashgrove/voxelcore/pkg/voxelerr"
)

// growthFactor is the pool's capacity multiplier on a resize, per
// spec.md §4.5.
const growthFactor = 1.25

// region is one contiguous span of the buffer, either free or holding
// exactly one live allocation.
type region struct {
	address int
	size    int
	free    bool
}

// freeEntry is a (size, address) pair kept sorted by size so alloc can
// binary-search for the smallest region that fits, matching the
// multimap<size,address> lower_bound in original_source.
type freeEntry struct {
	size    int
	address int
}

// allocator is the pure address-bookkeeping half of Pool: best-fit
// search, splitting, coalescing, and growth math, with no dependency
// on an actual GPU buffer. Pool wraps an allocator with the real
// gl.BufferData/BufferSubData calls its resize/upload steps require.
//
// Grounded directly on
// original_source/Engine/src/Engine/Renderer/MemoryPool.h/.cpp, whose
// std::map<address,Region>/std::multimap<size,address> pair this type
// mirrors with two address/size-sorted slices (Go's stdlib has no
// ordered map).
type allocator struct {
	capacity int

	regions     []region    // sorted ascending by address
	freeRegions []freeEntry // sorted ascending by (size, address)
}

func newAllocator(capacity int) *allocator {
	a := &allocator{capacity: capacity}
	a.addFreeRegion(0, capacity)
	return a
}

// alloc finds the smallest free region that fits size (best-fit),
// growing the tail first if none exists. Returns the chosen address,
// whether growth occurred, and (if so) the allocator's new capacity —
// the caller is responsible for actually resizing and re-uploading the
// backing buffer to that capacity.
//
// size == 0 is not a bug: per spec.md §4.5 step 1 it is a normal no-op,
// reported back as a zero address and resized=false rather than an
// error, since address 0 is not meaningful without an accompanying
// allocation. A negative size can never arise from a well-formed
// caller (a buffer length), so that case is still a precondition
// breach.
func (a *allocator) alloc(size int) (address int, resized bool, newCapacity int, err error) {
	if size == 0 {
		return 0, false, a.capacity, nil
	}
	if size < 0 {
		return 0, false, a.capacity, voxelerr.New(voxelerr.KindPrecondition, "gpu.allocator.alloc: negative size")
	}

	idx, ok := a.bestFit(size)
	if !ok {
		idx = a.growToFit(size)
		resized = true
	}

	r := a.regions[idx]
	leftover := r.size - size
	if leftover > 0 {
		a.addFreeRegion(r.address+size, leftover)
		idx = a.regionIndexByAddress(r.address)
	}
	a.regions[idx].free = false
	a.regions[idx].size = size

	return r.address, resized, a.capacity, nil
}

// free releases the allocation at addr, coalescing with an adjoining
// free region on either side, and returns the merged free span for the
// caller's own bookkeeping (logging, etc).
func (a *allocator) free(addr int) (freedAddress, freedSize int, err error) {
	idx := a.regionIndexByAddress(addr)
	if idx < 0 {
		return 0, 0, voxelerr.New(voxelerr.KindPrecondition, "gpu.allocator.free: no region at address")
	}
	if a.regions[idx].free {
		return 0, 0, voxelerr.New(voxelerr.KindPrecondition, "gpu.allocator.free: region already free")
	}

	freedAddress = a.regions[idx].address
	freedSize = a.regions[idx].size

	if idx > 0 && a.regions[idx-1].free {
		prev := a.regions[idx-1]
		freedAddress = prev.address
		freedSize += prev.size
		a.removeFromFreeRegions(prev.address, prev.size)
		a.regions = append(a.regions[:idx-1], a.regions[idx:]...)
		idx--
	}

	if idx+1 < len(a.regions) && a.regions[idx+1].free {
		next := a.regions[idx+1]
		freedSize += next.size
		a.removeFromFreeRegions(next.address, next.size)
		a.regions = append(a.regions[:idx+1], a.regions[idx+2:]...)
	}

	a.regions = append(a.regions[:idx], a.regions[idx+1:]...)
	a.addFreeRegion(freedAddress, freedSize)
	return freedAddress, freedSize, nil
}

// sizeAt returns the size of the (occupied) region at addr, used by
// Realloc to decide between an in-place overwrite and free-then-alloc.
func (a *allocator) sizeAt(addr int) (int, bool) {
	idx := a.regionIndexByAddress(addr)
	if idx < 0 || a.regions[idx].free {
		return 0, false
	}
	return a.regions[idx].size, true
}

// bestFit returns the regions-slice index of the smallest free region
// with size >= requested, or (-1,false) if none exists.
func (a *allocator) bestFit(size int) (int, bool) {
	i := sort.Search(len(a.freeRegions), func(i int) bool { return a.freeRegions[i].size >= size })
	if i == len(a.freeRegions) {
		return -1, false
	}
	entry := a.freeRegions[i]
	a.removeFreeEntryAt(i)
	return a.regionIndexByAddress(entry.address), true
}

// growToFit grows the tail region until it can hold size bytes,
// applying spec.md §4.5's ceil(1.25·capacity) growth repeatedly, and
// returns the (now sufficiently large) tail region's index.
func (a *allocator) growToFit(size int) int {
	var tailIdx int
	switch {
	case len(a.regions) == 0:
		a.regions = append(a.regions, region{address: 0, size: 0, free: false})
		tailIdx = 0
	case a.regions[len(a.regions)-1].free:
		tailIdx = len(a.regions) - 1
		a.removeFromFreeRegions(a.regions[tailIdx].address, a.regions[tailIdx].size)
	default:
		// The last region is occupied: append a fresh zero-size region at
		// the current capacity to grow from, deferring its entry into
		// freeRegions until alloc() knows the final leftover size.
		a.regions = append(a.regions, region{address: a.capacity, size: 0, free: false})
		tailIdx = len(a.regions) - 1
	}

	for a.regions[tailIdx].size < size {
		oldCapacity := a.capacity
		a.capacity = int(math.Ceil(growthFactor * float64(a.capacity)))
		a.regions[tailIdx].size += a.capacity - oldCapacity
	}

	return tailIdx
}

func (a *allocator) regionIndexByAddress(address int) int {
	i := sort.Search(len(a.regions), func(i int) bool { return a.regions[i].address >= address })
	if i < len(a.regions) && a.regions[i].address == address {
		return i
	}
	return -1
}

// addFreeRegion inserts a new free region at address (must not overlap
// any existing region) into both the address-ordered regions slice and
// the size-ordered freeRegions slice.
func (a *allocator) addFreeRegion(address, size int) {
	i := sort.Search(len(a.regions), func(i int) bool { return a.regions[i].address >= address })
	a.regions = append(a.regions, region{})
	copy(a.regions[i+1:], a.regions[i:])
	a.regions[i] = region{address: address, size: size, free: true}

	j := a.freeInsertionIndex(size, address)
	a.freeRegions = append(a.freeRegions, freeEntry{})
	copy(a.freeRegions[j+1:], a.freeRegions[j:])
	a.freeRegions[j] = freeEntry{size: size, address: address}
}

func (a *allocator) freeInsertionIndex(size, address int) int {
	return sort.Search(len(a.freeRegions), func(i int) bool {
		if a.freeRegions[i].size != size {
			return a.freeRegions[i].size > size
		}
		return a.freeRegions[i].address >= address
	})
}

func (a *allocator) freeEntryIndex(address, size int) int {
	i := sort.Search(len(a.freeRegions), func(i int) bool {
		if a.freeRegions[i].size != size {
			return a.freeRegions[i].size >= size
		}
		return a.freeRegions[i].address >= address
	})
	if i < len(a.freeRegions) && a.freeRegions[i].address == address && a.freeRegions[i].size == size {
		return i
	}
	return -1
}

func (a *allocator) removeFromFreeRegions(address, size int) {
	i := a.freeEntryIndex(address, size)
	if i < 0 {
		return
	}
	a.removeFreeEntryAt(i)
}

func (a *allocator) removeFreeEntryAt(i int) {
	a.freeRegions = append(a.freeRegions[:i], a.freeRegions[i+1:]...)
}
