package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocZeroSizeIsDefinedNoop(t *testing.T) {
	a := newAllocator(64)
	addr, resized, newCapacity, err := a.alloc(0)
	require.NoError(t, err)
	assert.Equal(t, 0, addr)
	assert.False(t, resized)
	assert.Equal(t, 64, newCapacity)
}

func TestAllocRejectsNegativeSize(t *testing.T) {
	a := newAllocator(64)
	_, _, _, err := a.alloc(-1)
	assert.Error(t, err)
}

func TestAllocBestFitPrefersSmallestSufficientRegion(t *testing.T) {
	a := newAllocator(256)
	// Carve out three free regions of distinct sizes by allocating then
	// freeing two of them, leaving a tight fit at a known address. An
	// 8-byte spacer between A and B keeps the two freed regions from
	// coalescing into one.
	addrA, _, _, err := a.alloc(32)
	require.NoError(t, err)
	_, _, _, err = a.alloc(8)
	require.NoError(t, err)
	addrB, _, _, err := a.alloc(16)
	require.NoError(t, err)
	_, _, _, err = a.alloc(64)
	require.NoError(t, err)

	_, _, err2 := a.free(addrA)
	require.NoError(t, err2)
	_, _, err2 = a.free(addrB)
	require.NoError(t, err2)

	// Now three free regions exist: 32 at addrA, 16 at addrB, and the
	// tail. A 10-byte request must land in the 16-byte region, not the
	// 32-byte one.
	got, resized, _, err := a.alloc(10)
	require.NoError(t, err)
	assert.False(t, resized)
	assert.Equal(t, addrB, got)
}

func TestAllocGrowsBufferWhenNoRegionFits(t *testing.T) {
	a := newAllocator(16)
	addr, resized, newCapacity, err := a.alloc(64)
	require.NoError(t, err)
	assert.True(t, resized)
	assert.Equal(t, 0, addr)
	assert.GreaterOrEqual(t, newCapacity, 64)
}

func TestAllocSplitsLeftoverIntoFreeRegion(t *testing.T) {
	a := newAllocator(100)
	addr, _, _, err := a.alloc(40)
	require.NoError(t, err)
	assert.Equal(t, 0, addr)

	// The remaining 60 bytes must still be available as a free region.
	addr2, resized, _, err := a.alloc(60)
	require.NoError(t, err)
	assert.False(t, resized)
	assert.Equal(t, 40, addr2)
}

func TestFreeCoalescesWithBothNeighbors(t *testing.T) {
	a := newAllocator(300)
	addr1, _, _, err := a.alloc(100)
	require.NoError(t, err)
	addr2, _, _, err := a.alloc(100)
	require.NoError(t, err)
	addr3, _, _, err := a.alloc(100)
	require.NoError(t, err)

	_, _, err2 := a.free(addr1)
	require.NoError(t, err2)
	_, _, err2 = a.free(addr3)
	require.NoError(t, err2)
	freedAddress, freedSize, err2 := a.free(addr2)
	require.NoError(t, err2)

	// All three adjoining regions merge into a single 300-byte span.
	assert.Equal(t, 0, freedAddress)
	assert.Equal(t, 300, freedSize)

	// A subsequent allocation of the full capacity must not need to grow.
	_, resized, _, err := a.alloc(300)
	require.NoError(t, err)
	assert.False(t, resized)
}

func TestFreeRejectsUnknownAddress(t *testing.T) {
	a := newAllocator(64)
	_, _, err := a.free(999)
	assert.Error(t, err)
}

func TestFreeRejectsDoubleFree(t *testing.T) {
	a := newAllocator(64)
	addr, _, _, err := a.alloc(16)
	require.NoError(t, err)
	_, _, err2 := a.free(addr)
	require.NoError(t, err2)
	_, _, err2 = a.free(addr)
	assert.Error(t, err2)
}

func TestSizeAtReflectsOccupiedRegionOnly(t *testing.T) {
	a := newAllocator(64)
	addr, _, _, err := a.alloc(16)
	require.NoError(t, err)

	size, ok := a.sizeAt(addr)
	require.True(t, ok)
	assert.Equal(t, 16, size)

	_, _, err2 := a.free(addr)
	require.NoError(t, err2)
	_, ok = a.sizeAt(addr)
	assert.False(t, ok)
}
