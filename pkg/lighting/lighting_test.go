package lighting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/voxelcore/pkg/container"
	"github.com/ashgrove/voxelcore/pkg/voxel"
)

func neighborhoodOf(center *voxel.Chunk) *container.Neighborhood {
	c := container.New(nil)
	c.Insert(center.Index(), center)
	return c.Retrieve(center.Index())
}

func TestPropagateOpenSkyIsUniformMax(t *testing.T) {
	chunk := voxel.NewChunk(voxel.GlobalIndex{})
	nbh := neighborhoodOf(chunk)
	result := Propagate(nbh)
	for _, l := range result {
		assert.Equal(t, voxel.BlockLight(voxel.MaxSunlight), l)
	}
}

func TestPropagateIdempotent(t *testing.T) {
	composition := make([]voxel.BlockType, voxel.BlocksPerChunk)
	composition[voxel.BlockIndex{I: 5, J: 5, K: 5}.FlatIndex()] = voxel.Stone
	chunk := voxel.NewChunkWithComposition(voxel.GlobalIndex{}, composition)
	nbh := neighborhoodOf(chunk)

	first := Propagate(nbh)
	chunk.SetLighting(first)
	nbh2 := neighborhoodOf(chunk)
	second := Propagate(nbh2)

	require.Equal(t, len(first), len(second))
	assert.Equal(t, first, second)
}

func TestPropagateSlabCastsShadow(t *testing.T) {
	composition := make([]voxel.BlockType, voxel.BlocksPerChunk)
	topK := voxel.ChunkEdge - 1
	for i := 0; i < voxel.ChunkEdge; i++ {
		for j := 0; j < voxel.ChunkEdge; j++ {
			composition[voxel.BlockIndex{I: i, J: j, K: topK}.FlatIndex()] = voxel.Stone
		}
	}
	chunk := voxel.NewChunkWithComposition(voxel.GlobalIndex{}, composition)
	nbh := neighborhoodOf(chunk)
	result := Propagate(nbh)

	below := result[voxel.BlockIndex{I: 10, J: 10, K: topK - 1}.FlatIndex()]
	assert.Less(t, int(below), int(voxel.MaxSunlight))
}

func TestPropagateOpaqueNeighborAboveCastsShadow(t *testing.T) {
	center := voxel.NewChunk(voxel.GlobalIndex{})

	aboveComposition := make([]voxel.BlockType, voxel.BlocksPerChunk)
	for i := range aboveComposition {
		aboveComposition[i] = voxel.Stone
	}
	above := voxel.NewChunkWithComposition(voxel.GlobalIndex{K: 1}, aboveComposition)

	c := container.New(nil)
	c.Insert(center.Index(), center)
	c.Insert(above.Index(), above)
	nbh := c.Retrieve(center.Index())

	result := Propagate(nbh)

	top := result[voxel.BlockIndex{I: 10, J: 10, K: voxel.ChunkEdge - 1}.FlatIndex()]
	assert.Less(t, int(top), int(voxel.MaxSunlight))
}

func TestBoundaryChangedNeighborsDetectsFaceDiff(t *testing.T) {
	oldLighting := make([]voxel.BlockLight, voxel.BlocksPerChunk)
	for i := range oldLighting {
		oldLighting[i] = voxel.MaxSunlight
	}
	newLighting := append([]voxel.BlockLight(nil), oldLighting...)
	newLighting[voxel.BlockIndex{I: 0, J: 3, K: 3}.FlatIndex()] = 5

	changed := BoundaryChangedNeighbors(oldLighting, newLighting)
	assert.Contains(t, changed, voxel.NegX)
	assert.NotContains(t, changed, voxel.PosX)
}

func TestBoundaryChangedNeighborsNoChange(t *testing.T) {
	lighting := make([]voxel.BlockLight, voxel.BlocksPerChunk)
	for i := range lighting {
		lighting[i] = voxel.MaxSunlight
	}
	changed := BoundaryChangedNeighbors(lighting, lighting)
	assert.Empty(t, changed)
}
