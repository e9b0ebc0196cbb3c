package mesher

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/voxelcore/pkg/voxel"
)

func TestCountingSortVoxelsOrdersByDescendingL1(t *testing.T) {
	origin := voxel.BlockIndex{I: 16, J: 16, K: 16}
	voxels := []VoxelEntry{
		{Index: voxel.BlockIndex{I: 16, J: 16, K: 16}}, // distance 0
		{Index: voxel.BlockIndex{I: 0, J: 0, K: 0}},    // distance 48
		{Index: voxel.BlockIndex{I: 16, J: 16, K: 20}},  // distance 4
	}
	countingSortVoxels(voxels, origin)

	require.Len(t, voxels, 3)
	assert.Equal(t, voxel.BlockIndex{I: 0, J: 0, K: 0}, voxels[0].Index)
	assert.Equal(t, voxel.BlockIndex{I: 16, J: 16, K: 20}, voxels[1].Index)
	assert.Equal(t, voxel.BlockIndex{I: 16, J: 16, K: 16}, voxels[2].Index)
}

func TestCountingSortVoxelsEmptyIsNoop(t *testing.T) {
	var voxels []VoxelEntry
	assert.NotPanics(t, func() { countingSortVoxels(voxels, voxel.BlockIndex{}) })
}

func TestClampOriginBlockClampsAwayFromOwnChunk(t *testing.T) {
	identity := voxel.GlobalIndex{I: 0, J: 0, K: 0}

	// origin chunk is ahead along +I: this chunk's far (+I) edge faces it.
	originIndex := voxel.GlobalIndex{I: 1, J: 0, K: 0}
	got := clampOriginBlock(voxel.BlockIndex{I: 5, J: 5, K: 5}, originIndex, identity)
	assert.Equal(t, voxel.ChunkEdge-1, got.I)
	assert.Equal(t, 5, got.J)

	// origin chunk is behind along -I: near (0) edge faces it.
	originIndex = voxel.GlobalIndex{I: -1, J: 0, K: 0}
	got = clampOriginBlock(voxel.BlockIndex{I: 5, J: 5, K: 5}, originIndex, identity)
	assert.Equal(t, 0, got.I)

	// same chunk on this axis: viewPosition-derived component passes through.
	originIndex = voxel.GlobalIndex{I: 0, J: 0, K: 0}
	got = clampOriginBlock(voxel.BlockIndex{I: 5, J: 5, K: 5}, originIndex, identity)
	assert.Equal(t, 5, got.I)
}

func TestToDirectionMatchesAxisSignConvention(t *testing.T) {
	assert.Equal(t, voxel.NegX, toDirection(0, false))
	assert.Equal(t, voxel.PosX, toDirection(0, true))
	assert.Equal(t, voxel.NegY, toDirection(1, false))
	assert.Equal(t, voxel.PosY, toDirection(1, true))
	assert.Equal(t, voxel.NegZ, toDirection(2, false))
	assert.Equal(t, voxel.PosZ, toDirection(2, true))
}

func TestSortRebuildsSixIndicesPerEnabledFace(t *testing.T) {
	cmd := &DrawCommand{Identity: voxel.GlobalIndex{}}
	cmd.Voxels = []VoxelEntry{
		{Index: voxel.BlockIndex{I: 10, J: 10, K: 10}, EnabledFaceMask: 0x3F, BaseVertex: 0},
	}
	cmd.Sort(voxel.GlobalIndex{}, mgl32.Vec3{0, 0, 0}, 1.0)
	assert.Equal(t, 6*6, len(cmd.Indices))
}

func TestSortOnlyEmitsIndicesForEnabledFaces(t *testing.T) {
	cmd := &DrawCommand{Identity: voxel.GlobalIndex{}}
	// Only +X (bit 1) enabled.
	cmd.Voxels = []VoxelEntry{
		{Index: voxel.BlockIndex{I: 10, J: 10, K: 10}, EnabledFaceMask: 1 << uint(voxel.PosX), BaseVertex: 0},
	}
	cmd.Sort(voxel.GlobalIndex{}, mgl32.Vec3{0, 0, 0}, 1.0)
	assert.Equal(t, 6, len(cmd.Indices))
}
