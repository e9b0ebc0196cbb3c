package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func testFrustum(radius float32) Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	return NewFrustum(proj.Mul4(view), radius)
}

func TestFrustumVisibleAtCenter(t *testing.T) {
	f := testFrustum(0)
	assert.True(t, f.Visible(mgl32.Vec3{0, 0, -10}))
}

func TestFrustumRejectsFarOffToTheSide(t *testing.T) {
	f := testFrustum(0)
	assert.False(t, f.Visible(mgl32.Vec3{-50, 0, -10}))
}

func TestFrustumRejectsBehindCamera(t *testing.T) {
	f := testFrustum(0)
	assert.False(t, f.Visible(mgl32.Vec3{0, 0, 5}))
}

func TestFrustumRadiusRescuesBorderlineChunk(t *testing.T) {
	// A center just past the side plane is rejected with no radius...
	narrow := testFrustum(0)
	center := mgl32.Vec3{-10.3, 0, -10}
	assert.False(t, narrow.Visible(center))

	// ...but a generous bounding radius pulls it back into view, since
	// the plane shifts outward by radius·|n| rather than the point
	// having to clear the unshifted plane.
	wide := testFrustum(5)
	assert.True(t, wide.Visible(center))
}

func TestChunkBoundingRadiusMatchesFormula(t *testing.T) {
	r := ChunkBoundingRadius(0.5)
	assert.InDelta(t, 13.856, r, 0.01)
}
