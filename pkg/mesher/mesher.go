package mesher

import (
	"github.com/ashgrove/voxelcore/pkg/container"
	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// inPlaneAxes gives, for each face direction, the two axis indices
// (0=I,1=J,2=K) that span the face plane — i.e. every axis except the
// face's own.
var inPlaneAxes = [6][2]int{
	voxel.NegX: {1, 2}, voxel.PosX: {1, 2},
	voxel.NegY: {0, 2}, voxel.PosY: {0, 2},
	voxel.NegZ: {0, 1}, voxel.PosZ: {0, 1},
}

// Mesh converts nbh (centred on the chunk being meshed) into its
// opaque and transparent draw commands, per spec.md §4.4. Either
// command may come back empty (IsEmpty() true); callers must remove
// any prior arena entry for this chunk in that case.
func Mesh(nbh *container.Neighborhood) (opaque, transparent *DrawCommand) {
	opaque = &DrawCommand{Identity: nbh.Center.Index()}
	transparent = &DrawCommand{Identity: nbh.Center.Index()}

	if !nbh.Center.IsCompositionAllocated() {
		return opaque, transparent
	}

	const n = voxel.ChunkEdge
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				p := voxel.BlockIndex{I: i, J: j, K: k}
				b := nbh.Center.Block(p)
				if b == voxel.Air {
					continue
				}
				emitBlock(nbh, p, b, opaque, transparent)
			}
		}
	}
	return opaque, transparent
}

// emitBlock applies the block-face emission rule to all six faces of
// block b at p, pushing quads into whichever of opaque/transparent
// matches b's own transparency, and recording b's voxel-list entry on
// the transparent command if at least one face was emitted.
func emitBlock(nbh *container.Neighborhood, p voxel.BlockIndex, b voxel.BlockType, opaque, transparent *DrawCommand) {
	target := transparent
	if b.IsOpaque() {
		target = opaque
	}

	baseVertex := uint32(len(target.Vertices))
	var faceMask uint8

	for _, d := range voxel.AllDirections {
		neighborPos := p.Add(d)
		n := neighborBlockForMeshing(nbh, neighborPos)

		if shouldSkipFace(b, n) {
			continue
		}

		pushQuad(nbh, target, p, d, b)
		faceMask |= 1 << uint(d)
	}

	if target == transparent && faceMask != 0 {
		transparent.Voxels = append(transparent.Voxels, VoxelEntry{
			Index:          p,
			EnabledFaceMask: faceMask,
			BaseVertex:      baseVertex,
		})
	}
}

// neighborBlockForMeshing is nbh.Composition, except a neighbour
// BlockIndex belonging to an unloaded chunk reads as Stone — the
// implicit "boundary block" spec.md §8 calls "non-air for meshing",
// ensuring the world's load frontier never exposes a hole into the
// void. This is the meshing half of the deliberate missing-neighbour
// asymmetry; the lighting propagator's half lives in
// container.Neighborhood.Composition's own Air default.
func neighborBlockForMeshing(nbh *container.Neighborhood, p voxel.BlockIndex) voxel.BlockType {
	if !nbh.CellPresent(p) {
		return voxel.Stone
	}
	return nbh.Composition(p)
}

// shouldSkipFace implements spec.md §4.4's face emission rule exactly:
// skip an internal surface between identical blocks, skip any internal
// opaque-opaque surface, and never emit into a solid neighbour.
func shouldSkipFace(b, n voxel.BlockType) bool {
	if n == b {
		return true
	}
	if n.IsOpaque() && b.IsOpaque() {
		return true
	}
	if n.IsOpaque() {
		return true
	}
	return false
}

// pushQuad emits one face's four vertices (baking AO and sunlight, then
// applying the seam fix-up) into cmd, and pushes the matching six
// indices.
func pushQuad(nbh *container.Neighborhood, cmd *DrawCommand, p voxel.BlockIndex, d voxel.Direction, b voxel.BlockType) {
	corners := faceCorners[d]
	textureID := b.TextureLayerFor(d)
	transparent := b.IsTransparent()

	var sunlight [4]uint8
	var ao [4]uint8
	var lattice [4]voxel.BlockIndex
	for c := 0; c < 4; c++ {
		cornerLattice := voxel.BlockIndex{
			I: p.I + corners[c].I,
			J: p.J + corners[c].J,
			K: p.K + corners[c].K,
		}
		lattice[c] = cornerLattice
		sunlight[c] = bakedSunlight(nbh, cornerLattice)
		if transparent {
			ao[c] = 0
		} else {
			ao[c] = bakedAO(nbh, p, d, c)
		}
	}

	// Seam fix-up: compare the two diagonals' total-light deltas.
	light := [4]int{
		int(sunlight[0]) + int(ao[0]),
		int(sunlight[1]) + int(ao[1]),
		int(sunlight[2]) + int(ao[2]),
		int(sunlight[3]) + int(ao[3]),
	}
	fixed := 0
	if absInt(light[2]-light[1]) > absInt(light[3]-light[0]) {
		fixed = 1
	}
	order := quadVertexOrder[fixed]

	base := uint32(len(cmd.Vertices))
	for _, cornerLabel := range order {
		cmd.Vertices = append(cmd.Vertices, PackVertex(lattice[cornerLabel], uint32(cornerLabel), textureID, sunlight[cornerLabel], ao[cornerLabel]))
	}
	for _, idx := range quadIndices {
		cmd.Indices = append(cmd.Indices, base+idx)
	}
}

// bakedSunlight averages the sunlight of the up-to-8 blocks sharing the
// lattice corner at cornerLattice, counting only transparent blocks,
// with a minimum sample count of 1 (spec.md §4.4).
func bakedSunlight(nbh *container.Neighborhood, cornerLattice voxel.BlockIndex) uint8 {
	var sum, count int
	for di := -1; di <= 0; di++ {
		for dj := -1; dj <= 0; dj++ {
			for dk := -1; dk <= 0; dk++ {
				cell := voxel.BlockIndex{I: cornerLattice.I + di, J: cornerLattice.J + dj, K: cornerLattice.K + dk}
				if !nbh.Composition(cell).IsTransparent() {
					continue
				}
				sum += int(nbh.Lighting(cell))
				count++
			}
		}
	}
	if count == 0 {
		count = 1
	}
	return uint8(sum / count)
}

// bakedAO computes spec.md §4.4's 0-3 ambient occlusion value for
// corner index c (0..3, matching faceCorners[d]) of the quad on face d
// of block p, using the classic two-side-plus-corner voxel AO rule.
func bakedAO(nbh *container.Neighborhood, p voxel.BlockIndex, d voxel.Direction, c int) uint8 {
	axes := inPlaneAxes[d]
	corner := faceCorners[d][c]
	cornerVec := [3]int{corner.I, corner.J, corner.K}

	sign := func(axis int) int {
		if cornerVec[axis] == 0 {
			return -1
		}
		return 1
	}

	neighborOf := p.Add(d)
	base := [3]int{neighborOf.I, neighborOf.J, neighborOf.K}

	side1 := base
	side1[axes[0]] += sign(axes[0])
	side2 := base
	side2[axes[1]] += sign(axes[1])
	cornerBlock := base
	cornerBlock[axes[0]] += sign(axes[0])
	cornerBlock[axes[1]] += sign(axes[1])

	side1Opaque := neighborBlockForMeshing(nbh, toBlockIndex(side1)).IsOpaque()
	side2Opaque := neighborBlockForMeshing(nbh, toBlockIndex(side2)).IsOpaque()
	cornerOpaque := neighborBlockForMeshing(nbh, toBlockIndex(cornerBlock)).IsOpaque()

	if side1Opaque && side2Opaque {
		return 3
	}
	count := 0
	if side1Opaque {
		count++
	}
	if side2Opaque {
		count++
	}
	if cornerOpaque {
		count++
	}
	return uint8(count)
}

func toBlockIndex(v [3]int) voxel.BlockIndex {
	return voxel.BlockIndex{I: v[0], J: v[1], K: v[2]}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
