package scheduler

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/ashgrove/voxelcore/pkg/voxel"
)

const testBlockLength = float32(1.0)

func TestOriginTrackerFirstUpdateAlwaysReportsChanged(t *testing.T) {
	tr := NewOriginTracker(testBlockLength)
	origin, changed := tr.Update(mgl32.Vec3{0, 0, 0})
	assert.True(t, changed)
	assert.Equal(t, voxel.GlobalIndex{0, 0, 0}, origin)
}

func TestOriginTrackerNoChangeWithinSameChunk(t *testing.T) {
	tr := NewOriginTracker(testBlockLength)
	tr.Update(mgl32.Vec3{5, 5, 5})

	origin, changed := tr.Update(mgl32.Vec3{10, 10, 10})
	assert.False(t, changed)
	assert.Equal(t, voxel.GlobalIndex{0, 0, 0}, origin)
}

func TestOriginTrackerDetectsCrossingIntoNewChunk(t *testing.T) {
	tr := NewOriginTracker(testBlockLength)
	tr.Update(mgl32.Vec3{0, 0, 0})

	chunkExtent := testBlockLength * float32(voxel.ChunkEdge)
	origin, changed := tr.Update(mgl32.Vec3{chunkExtent, 0, 0})
	assert.True(t, changed)
	assert.Equal(t, voxel.GlobalIndex{1, 0, 0}, origin)
}

func TestOriginTrackerHandlesNegativeCoordinatesByFlooring(t *testing.T) {
	tr := NewOriginTracker(testBlockLength)
	chunkExtent := testBlockLength * float32(voxel.ChunkEdge)

	origin, _ := tr.Update(mgl32.Vec3{-1, 0, 0})
	assert.Equal(t, voxel.GlobalIndex{-1, 0, 0}, origin)

	origin, _ = tr.Update(mgl32.Vec3{-chunkExtent - 1, 0, 0})
	assert.Equal(t, voxel.GlobalIndex{-2, 0, 0}, origin)
}

func TestOriginTrackerCurrentReflectsLastUpdate(t *testing.T) {
	tr := NewOriginTracker(testBlockLength)
	tr.Update(mgl32.Vec3{0, 0, 0})
	assert.Equal(t, voxel.GlobalIndex{0, 0, 0}, tr.Current())
}
