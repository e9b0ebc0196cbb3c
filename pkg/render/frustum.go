package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// Frustum is the six view-frustum planes of a view-projection matrix,
// each shifted outward so a chunk can be tested by its anchor position
// alone rather than its full bounding sphere. Grounded on
// Gekko3D-gekko's voxelrt/rt/core.CameraState.ExtractFrustum
// (row3±rowK via Mat4.At, one plane per row), adapted to spec.md §6's
// unnormalized R·|n| outward shift instead of normalize-then-compare.
type Frustum struct {
	planes [6]mgl32.Vec4 // (a, b, c, d): a·x + b·y + c·z + d >= 0 inside
}

// ChunkBoundingRadius is the radius R of a chunk's bounding sphere,
// R = √3 · N · blockLen / 2 per spec.md §6.
func ChunkBoundingRadius(blockLen float32) float32 {
	edge := blockLen * float32(voxel.ChunkEdge)
	return float32(math.Sqrt(3)) * edge / 2
}

// NewFrustum extracts viewProjection's six clip planes and shifts each
// outward by radius·|n|, so Visible only needs a chunk's anchor point.
func NewFrustum(viewProjection mgl32.Mat4, radius float32) Frustum {
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{
			viewProjection.At(r, 0),
			viewProjection.At(r, 1),
			viewProjection.At(r, 2),
			viewProjection.At(r, 3),
		}
	}
	row3 := row(3)
	raw := [6]mgl32.Vec4{
		row3.Add(row(0)), // left
		row3.Sub(row(0)), // right
		row3.Add(row(1)), // bottom
		row3.Sub(row(1)), // top
		row3.Add(row(2)), // near
		row3.Sub(row(2)), // far
	}

	var f Frustum
	for i, p := range raw {
		n := mgl32.Vec3{p[0], p[1], p[2]}
		f.planes[i] = mgl32.Vec4{p[0], p[1], p[2], p[3] + radius*n.Len()}
	}
	return f
}

// Visible reports whether the anchor point center (origin-relative
// world position) lies inside all six shifted planes.
func (f Frustum) Visible(center mgl32.Vec3) bool {
	for _, p := range f.planes {
		if p[0]*center[0]+p[1]*center[1]+p[2]*center[2]+p[3] < 0 {
			return false
		}
	}
	return true
}
