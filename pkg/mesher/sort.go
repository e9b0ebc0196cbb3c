package mesher

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// maxL1Distance is the largest possible L1 distance between two blocks
// in the same chunk, and so the largest key the counting sort below
// ever needs a bucket for.
const maxL1Distance = 3 * (voxel.ChunkEdge - 1)

// Sort re-orders cmd's voxel list back-to-front from viewPosition and
// rebuilds its index buffer, per spec.md §4.7. originIndex is the
// chunk currently containing the viewer; blockLength is the world size
// of one block. Returns false (a no-op) if the viewer hasn't crossed a
// block boundary since the last sort — tracked via cmd.SortState,
// exactly as original_source's ChunkDrawCommand::sort short-circuits.
func (cmd *DrawCommand) Sort(originIndex voxel.GlobalIndex, viewPosition mgl32.Vec3, blockLength float32) bool {
	originBlock := voxel.BlockIndex{
		I: int(viewPosition[0] / blockLength),
		J: int(viewPosition[1] / blockLength),
		K: int(viewPosition[2] / blockLength),
	}
	originBlock = clampOriginBlock(originBlock, originIndex, cmd.Identity)

	if cmd.hasSorted && originBlock == cmd.SortState {
		return false
	}

	countingSortVoxels(cmd.Voxels, originBlock)

	cmd.SortState = originBlock
	cmd.hasSorted = true
	reorderIndices(cmd, originIndex, viewPosition, blockLength)
	return true
}

// clampOriginBlock implements the per-axis clamp from
// original_source's sort(): an axis where the origin chunk sits on the
// far side of this command's chunk clamps to that chunk's far edge
// (and the near side clamps to 0), since the viewer's actual position
// along that axis is irrelevant to the ordering of a chunk it isn't in.
func clampOriginBlock(originBlock voxel.BlockIndex, originIndex, identity voxel.GlobalIndex) voxel.BlockIndex {
	axis := [3]int32{originIndex.I - identity.I, originIndex.J - identity.J, originIndex.K - identity.K}
	if axis[0] > 0 {
		originBlock.I = voxel.ChunkEdge - 1
	} else if axis[0] < 0 {
		originBlock.I = 0
	}
	if axis[1] > 0 {
		originBlock.J = voxel.ChunkEdge - 1
	} else if axis[1] < 0 {
		originBlock.J = 0
	}
	if axis[2] > 0 {
		originBlock.K = voxel.ChunkEdge - 1
	} else if axis[2] < 0 {
		originBlock.K = 0
	}
	return originBlock
}

// countingSortVoxels reorders voxels in place, back-to-front (nearest
// to originBlock last), in O(n+k) via a counting sort keyed on
// maxL1Distance-L1(voxel,originBlock) — farthest voxels get the
// smallest key and so sort first.
func countingSortVoxels(voxels []VoxelEntry, originBlock voxel.BlockIndex) {
	if len(voxels) == 0 {
		return
	}

	var counts [maxL1Distance + 1]int
	keyOf := func(v VoxelEntry) int {
		return maxL1Distance - v.Index.L1(originBlock)
	}
	for _, v := range voxels {
		counts[keyOf(v)]++
	}
	for i := 1; i <= maxL1Distance; i++ {
		counts[i] += counts[i-1]
	}

	placements := counts
	for i := 0; i < len(voxels); {
		key := keyOf(voxels[i])
		var prevCount int
		if key > 0 {
			prevCount = counts[key-1]
		}
		if prevCount <= i && i < counts[key] {
			i++
			continue
		}
		placements[key]--
		voxels[i], voxels[placements[key]] = voxels[placements[key]], voxels[i]
	}
}

// reorderIndices rebuilds cmd.Indices from cmd.Voxels (in their
// now-sorted order), emitting each voxel's back-facing quads (the
// faces pointing away from the viewer) before its front-facing quads,
// per spec.md §4.7.
func reorderIndices(cmd *DrawCommand, originIndex voxel.GlobalIndex, viewPosition mgl32.Vec3, blockLength float32) {
	cmd.Indices = cmd.Indices[:0]

	anchor := chunkAnchorPosition(cmd.Identity, originIndex, blockLength)

	for _, v := range cmd.Voxels {
		blockCenter := anchor.Add(mgl32.Vec3{
			blockLength * float32(v.Index.I),
			blockLength * float32(v.Index.J),
			blockLength * float32(v.Index.K),
		}).Add(mgl32.Vec3{blockLength / 2, blockLength / 2, blockLength / 2})
		toBlock := blockCenter.Sub(viewPosition)

		var offsets [6]int
		for d := range offsets {
			offsets[d] = -1
		}
		offset := 0
		for _, d := range voxel.AllDirections {
			if v.EnabledFaceMask&(1<<uint(d)) != 0 {
				offsets[d] = offset
				offset += 4
			}
		}

		for axis := 0; axis < 3; axis++ {
			d := toDirection(axis, toBlock[axis] > 0)
			if offsets[d] >= 0 {
				addQuadIndices(cmd, v.BaseVertex+uint32(offsets[d]))
			}
		}
		for axis := 0; axis < 3; axis++ {
			d := toDirection(axis, toBlock[axis] <= 0)
			if offsets[d] >= 0 {
				addQuadIndices(cmd, v.BaseVertex+uint32(offsets[d]))
			}
		}
	}
}

// toDirection maps an axis (0=I,1=J,2=K) and sign to the matching
// Direction, using the fact that voxel.Direction's iota order packs
// Neg/Pos pairs as 2*axis, 2*axis+1.
func toDirection(axis int, positive bool) voxel.Direction {
	if positive {
		return voxel.Direction(axis*2 + 1)
	}
	return voxel.Direction(axis * 2)
}

func addQuadIndices(cmd *DrawCommand, base uint32) {
	for _, idx := range quadIndices {
		cmd.Indices = append(cmd.Indices, base+idx)
	}
}

// chunkAnchorPosition returns the world-space position of cmd chunk's
// (0,0,0) corner, relative to originIndex's own chunk (whose anchor is
// the coordinate-space origin) — mirrors original_source's
// indexPosition helper.
func chunkAnchorPosition(chunkIndex, originIndex voxel.GlobalIndex, blockLength float32) mgl32.Vec3 {
	d := chunkIndex.Sub(originIndex)
	edge := blockLength * float32(voxel.ChunkEdge)
	return mgl32.Vec3{edge * float32(d.I), edge * float32(d.J), edge * float32(d.K)}
}
