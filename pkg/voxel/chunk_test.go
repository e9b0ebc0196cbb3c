package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkIsUnallocated(t *testing.T) {
	c := NewChunk(GlobalIndex{0, 0, 0})
	assert.False(t, c.IsCompositionAllocated())
	assert.False(t, c.IsLightingAllocated())
	assert.Equal(t, Air, c.Block(BlockIndex{1, 2, 3}))
	assert.Equal(t, BlockLight(MaxSunlight), c.Light(BlockIndex{1, 2, 3}))
}

func TestSetBlockMaterialisesComposition(t *testing.T) {
	c := NewChunk(GlobalIndex{0, 0, 0})
	c.SetBlock(BlockIndex{5, 5, 1}, Stone)
	require.True(t, c.IsCompositionAllocated())
	assert.Equal(t, Stone, c.Block(BlockIndex{5, 5, 1}))
	assert.Equal(t, Air, c.Block(BlockIndex{0, 0, 0}))
}

func TestSetBlockAirOnUnallocatedIsNoop(t *testing.T) {
	c := NewChunk(GlobalIndex{0, 0, 0})
	c.SetBlock(BlockIndex{0, 0, 0}, Air)
	assert.False(t, c.IsCompositionAllocated())
}

func TestSetCompositionDropsAllAir(t *testing.T) {
	composition := make([]BlockType, BlocksPerChunk)
	c := NewChunkWithComposition(GlobalIndex{0, 0, 0}, composition)
	assert.False(t, c.IsCompositionAllocated(), "all-Air composition must drop to unallocated")
}

func TestRoundTripSetComposition(t *testing.T) {
	composition := make([]BlockType, BlocksPerChunk)
	composition[BlockIndex{5, 5, 1}.FlatIndex()] = Stone
	c := NewChunk(GlobalIndex{0, 0, 0})
	c.SetComposition(composition)
	got := c.Composition()
	require.NotNil(t, got)
	assert.Equal(t, Stone, got[BlockIndex{5, 5, 1}.FlatIndex()])
}

func TestFaceOpaqueAllStoneChunk(t *testing.T) {
	composition := make([]BlockType, BlocksPerChunk)
	for i := range composition {
		composition[i] = Stone
	}
	c := NewChunkWithComposition(GlobalIndex{0, 0, 0}, composition)
	for _, d := range AllDirections {
		assert.True(t, c.FaceOpaque(d), "direction %v should be face-opaque", d)
	}
}

func TestFaceOpaqueEmptyChunkIsNeverOpaque(t *testing.T) {
	c := NewChunk(GlobalIndex{0, 0, 0})
	for _, d := range AllDirections {
		assert.False(t, c.FaceOpaque(d))
	}
}

func TestFaceOpaqueRecomputesOnMutation(t *testing.T) {
	composition := make([]BlockType, BlocksPerChunk)
	for i := range composition {
		composition[i] = Stone
	}
	c := NewChunkWithComposition(GlobalIndex{0, 0, 0}, composition)
	require.True(t, c.FaceOpaque(PosX))

	// Punch a glass hole through the +X boundary layer.
	c.SetBlock(BlockIndex{ChunkEdge - 1, 0, 0}, Glass)
	assert.False(t, c.FaceOpaque(PosX))
	assert.True(t, c.FaceOpaque(NegX))
}

func TestForEachNeighborVisits26Cells(t *testing.T) {
	count := 0
	ForEachNeighbor(GlobalIndex{0, 0, 0}, func(GlobalIndex) { count++ })
	assert.Equal(t, 26, count)
}

func TestDirectionOppositeAndAxis(t *testing.T) {
	assert.Equal(t, PosX, NegX.Opposite())
	assert.Equal(t, NegX, PosX.Opposite())
	assert.Equal(t, 0, NegX.Axis())
	assert.Equal(t, 1, NegY.Axis())
	assert.Equal(t, 2, NegZ.Axis())
}

func TestBlockIndexFlatRoundTrip(t *testing.T) {
	b := BlockIndex{3, 7, 11}
	assert.Equal(t, b, BlockIndexFromFlat(b.FlatIndex()))
}
