package mesher

import (
	"unsafe"

	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// VoxelEntry is one (BlockIndex, enabledFaceMask, baseVertex) triple in
// a transparent command's voxel list, pushed once per block that
// emitted at least one quad. baseVertex is the vertex count before this
// block's first quad was pushed (spec.md §3 "Draw command").
type VoxelEntry struct {
	Index          voxel.BlockIndex
	EnabledFaceMask uint8 // bit d set iff direction d was emitted
	BaseVertex      uint32
}

// DrawCommand is one chunk's contribution to one arena (spec.md §3).
type DrawCommand struct {
	Identity voxel.GlobalIndex

	Indices  []uint32
	Vertices []PackedVertex

	// Voxels and SortState are populated only for transparent commands;
	// opaque commands drop this bookkeeping once uploaded (matching
	// original_source's ChunkDrawCommand::clearData, which keeps full
	// data only for transparent commands).
	Voxels    []VoxelEntry
	SortState voxel.BlockIndex
	hasSorted bool
}

// IsEmpty reports whether the command has zero quads — such a command
// must not exist in either arena (spec.md §3).
func (cmd *DrawCommand) IsEmpty() bool {
	return len(cmd.Vertices) == 0
}

// ClearCPUData drops CPU-side buffers not needed after upload. Opaque
// commands drop everything; transparent commands retain the voxel list
// and indices because the transparency sort re-derives index order from
// them every time the viewer crosses a block boundary (mirrors
// original_source's ChunkDrawCommand::clearData transparent/opaque
// asymmetry).
func (cmd *DrawCommand) ClearCPUData(transparent bool) {
	cmd.Vertices = nil
	if !transparent {
		cmd.Indices = nil
		cmd.Voxels = nil
	}
}

// VertexBytes views Vertices as the raw byte slice an arena.Arena
// uploads to the vertex memory pool, with no copy.
func (cmd *DrawCommand) VertexBytes() []byte {
	if len(cmd.Vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&cmd.Vertices[0])), len(cmd.Vertices)*int(unsafe.Sizeof(PackedVertex{})))
}

// IndexBytes views Indices as the raw byte slice an arena.Arena
// uploads to the index memory pool, with no copy.
func (cmd *DrawCommand) IndexBytes() []byte {
	if len(cmd.Indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&cmd.Indices[0])), len(cmd.Indices)*4)
}

// IndexCount satisfies arena.IndexedPayload.
func (cmd *DrawCommand) IndexCount() int {
	return len(cmd.Indices)
}
