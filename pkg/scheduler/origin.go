package scheduler

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// OriginTracker recomputes the viewer's origin chunk from a world-
// space position every frame and reports whether it changed, so the
// caller knows when to recompute its loadable/boundary set and run the
// unload sweep (spec.md §4.8's per-frame work list). Grounded on
// original_source/Game/src/World/ChunkManager.cpp's player-position
// handling, generalized from its inline "has the player's chunk
// changed" check into a standalone component.
type OriginTracker struct {
	blockLength float32

	mu       sync.Mutex
	current  voxel.GlobalIndex
	hasValue bool
}

// NewOriginTracker builds a tracker for a world where one block is
// blockLength world units wide.
func NewOriginTracker(blockLength float32) *OriginTracker {
	return &OriginTracker{blockLength: blockLength}
}

// Update recomputes the origin chunk containing viewPosition. changed
// is true the first time Update is called, and any time the computed
// chunk differs from the previous call's.
func (t *OriginTracker) Update(viewPosition mgl32.Vec3) (origin voxel.GlobalIndex, changed bool) {
	chunkExtent := t.blockLength * float32(voxel.ChunkEdge)
	next := voxel.GlobalIndex{
		I: floorDiv32(viewPosition[0], chunkExtent),
		J: floorDiv32(viewPosition[1], chunkExtent),
		K: floorDiv32(viewPosition[2], chunkExtent),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	changed = !t.hasValue || next != t.current
	t.current = next
	t.hasValue = true
	return next, changed
}

// Current returns the most recently computed origin chunk.
func (t *OriginTracker) Current() voxel.GlobalIndex {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func floorDiv32(value, divisor float32) int32 {
	return int32(math.Floor(float64(value / divisor)))
}
