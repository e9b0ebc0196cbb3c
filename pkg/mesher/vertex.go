// Package mesher converts a chunk's composition + lighting + 1-chunk
// neighbourhood into opaque and transparent draw commands: per-quad
// vertices packed to 8 bytes each with baked ambient occlusion and
// per-vertex sunlight, plus (for transparent meshes) the voxel list
// consumed by the transparency sort.
//
// Grounded directly on original_source's
// Game/src/World/Chunk/ChunkHelpers.h/.cpp — ChunkVertex's bit packing,
// ChunkVoxel, and ChunkDrawCommand's addQuad/addVoxel/sort are the
// line-level blueprint for vertex.go, drawcommand.go, and sort.go.
// Unlike Leterax-go-voxels/pkg/voxel/mesh.go's GreedyMeshChunk, faces
// are not merged: every emitted block face is its own quad, in the
// two-uint32 packed format with baked AO/sunlight rather than the
// teacher's single-uint32 format and fixed AO=7 stub.
package mesher

import "github.com/ashgrove/voxelcore/pkg/voxel"

// PackedVertex is the two-uint32, 8-byte-per-vertex wire format from
// spec.md §6. Implementations must not widen this record (spec.md §9).
type PackedVertex [2]uint32

// VertexByteSize is PackedVertex's size in bytes, the vertex-pool
// allocation stride an arena.Arena needs to compute baseVertex.
const VertexByteSize = 8

// PackVertex encodes one vertex per the exact bit layout in spec.md §6.
func PackVertex(pos voxel.BlockIndex, quadCorner uint32, textureID uint16, sunlight uint8, ao uint8) PackedVertex {
	word0 := uint32(pos.I)&0x3F |
		(uint32(pos.J)&0x3F)<<6 |
		(uint32(pos.K)&0x3F)<<12 |
		(quadCorner&0x3)<<18 |
		(uint32(textureID)&0xFFF)<<20

	word1 := (uint32(sunlight)&0xF)<<16 |
		(uint32(ao)&0x7)<<20

	return PackedVertex{word0, word1}
}

// Unpack decodes v back into its fields; the tests use it to check the
// round trip.
func (v PackedVertex) Unpack() (pos voxel.BlockIndex, quadCorner uint32, textureID uint16, sunlight, ao uint8) {
	word0, word1 := v[0], v[1]
	pos = voxel.BlockIndex{
		I: int(word0 & 0x3F),
		J: int((word0 >> 6) & 0x3F),
		K: int((word0 >> 12) & 0x3F),
	}
	quadCorner = (word0 >> 18) & 0x3
	textureID = uint16((word0 >> 20) & 0xFFF)
	sunlight = uint8((word1 >> 16) & 0xF)
	ao = uint8((word1 >> 20) & 0x7)
	return
}

// faceCorners gives, for each of the six face directions (indexed in
// voxel.Direction's own NegX,PosX,NegY,PosY,NegZ,PosZ order, which
// matches spec.md §6's table row order exactly), the four corner
// offsets relative to the block's (0,0,0) anchor, in quadCorner index
// order 0..3.
var faceCorners = [6][4]voxel.BlockIndex{
	voxel.NegX: {{I: 0, J: 1, K: 0}, {I: 0, J: 0, K: 0}, {I: 0, J: 1, K: 1}, {I: 0, J: 0, K: 1}},
	voxel.PosX: {{I: 1, J: 0, K: 0}, {I: 1, J: 1, K: 0}, {I: 1, J: 0, K: 1}, {I: 1, J: 1, K: 1}},
	voxel.NegY: {{I: 0, J: 0, K: 0}, {I: 1, J: 0, K: 0}, {I: 0, J: 0, K: 1}, {I: 1, J: 0, K: 1}},
	voxel.PosY: {{I: 1, J: 1, K: 0}, {I: 0, J: 1, K: 0}, {I: 1, J: 1, K: 1}, {I: 0, J: 1, K: 1}},
	voxel.NegZ: {{I: 0, J: 1, K: 0}, {I: 1, J: 1, K: 0}, {I: 0, J: 0, K: 0}, {I: 1, J: 0, K: 0}},
	voxel.PosZ: {{I: 0, J: 0, K: 1}, {I: 1, J: 0, K: 1}, {I: 0, J: 1, K: 1}, {I: 1, J: 1, K: 1}},
}

// quadIndices is the standard 0-1-2-1-3-2 index pattern, always
// relative to a quad's four vertices in THEIR PUSH ORDER (triangles
// (0,1,2) and (1,3,2) by buffer position). The seam fix-up in mesher.go
// never changes this pattern — it changes which corner is pushed into
// which buffer position, via quadVertexOrder below.
var quadIndices = [6]uint32{0, 1, 2, 1, 3, 2}

// quadVertexOrder gives, for the unfixed and seam-fixed cases, the
// sequence of corner labels (indices into faceCorners[d]) to push into
// buffer positions 0,1,2,3. Pushing corners (1,3,0,2) into positions
// 0,1,2,3 realises spec.md §4.4's "(0,1,2) and (1,3,2) become (1,3,0)
// and (3,2,0)" fix-up while keeping the index pattern itself constant.
var quadVertexOrder = [2][4]int{
	{0, 1, 2, 3}, // default
	{1, 3, 0, 2}, // seam fix-up
}
