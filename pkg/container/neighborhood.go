package container

import (
	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// cellSnapshot is an independent copy of one loaded chunk's composition
// and lighting arrays, copied out while that chunk's matching field
// lock (compMu/lightMu) was held. Neighborhood holds only these
// copies, never a live *voxel.Chunk, so a reader working through a
// snapshot across an entire Mesh()/Propagate() run can never race
// against a concurrent writer (SetBlock/SetComposition/SetLighting,
// all behind the same locks) mutating the chunk underneath it — per
// spec.md §4.3's "acquire a read lock ... and copy the relevant
// subregion" requirement, not just borrow a pointer while the lock
// happens to be held.
type cellSnapshot struct {
	index       voxel.GlobalIndex
	composition []voxel.BlockType  // nil means unallocated (all Air)
	lighting    []voxel.BlockLight // nil means unallocated (all MaxSunlight)
}

// Index returns the chunk's coordinate-space index.
func (s *cellSnapshot) Index() voxel.GlobalIndex { return s.index }

// IsCompositionAllocated reports whether this cell's composition was
// materialised (false means "entirely Air").
func (s *cellSnapshot) IsCompositionAllocated() bool { return s.composition != nil }

// Block returns the block type at b within this cell's snapshot.
func (s *cellSnapshot) Block(b voxel.BlockIndex) voxel.BlockType {
	if s.composition == nil {
		return voxel.Air
	}
	return s.composition[b.FlatIndex()]
}

// Light returns the sunlight value at b within this cell's snapshot.
func (s *cellSnapshot) Light(b voxel.BlockIndex) voxel.BlockLight {
	if s.lighting == nil {
		return voxel.MaxSunlight
	}
	return s.lighting[b.FlatIndex()]
}

// Neighborhood is a read-locked snapshot of one chunk's full 3×3×3
// stencil, gathered under shared locks in globally consistent
// (lexicographic GlobalIndex) order to avoid the deadlock spec.md §5
// warns about when up to 27 chunks are locked at once. Missing
// neighbours contribute nil (callers substitute the field's default:
// Air for composition, MaxSunlight for lighting).
type Neighborhood struct {
	Center *cellSnapshot
	// Cells is indexed by the same [-1,0,1]^3 offset scheme as
	// voxel.ForEachNeighbor plus the centre itself at offset (0,0,0).
	Cells map[voxel.GlobalIndex]*cellSnapshot
}

// Composition returns the block type at a BlockIndex that may fall
// outside [0,ChunkEdge) by consulting the appropriate neighbour cell.
// Out-of-range components wrap into the adjacent chunk's coordinate
// space exactly once (callers never query more than one chunk out). A
// missing neighbour chunk reads as Air here — correct for the lighting
// propagator's "transparent for lighting" treatment of the load
// frontier (spec.md §9). The mesher, which needs the opposite
// "opaque for meshing" treatment, uses CellPresent below instead of
// calling this directly on out-of-range cells.
func (n *Neighborhood) Composition(b voxel.BlockIndex) voxel.BlockType {
	idx, local := resolveCell(b)
	cell := n.Cells[idx]
	if cell == nil {
		return voxel.Air
	}
	return cell.Block(local)
}

// CellPresent reports whether the chunk owning BlockIndex b (which may
// fall outside [0,ChunkEdge)) is loaded in this snapshot.
func (n *Neighborhood) CellPresent(b voxel.BlockIndex) bool {
	idx, _ := resolveCell(b)
	return n.Cells[idx] != nil
}

// Lighting returns the sunlight value at a (possibly out-of-range)
// BlockIndex, resolved the same way as Composition.
func (n *Neighborhood) Lighting(b voxel.BlockIndex) voxel.BlockLight {
	idx, local := resolveCell(b)
	cell := n.Cells[idx]
	if cell == nil {
		return voxel.MaxSunlight
	}
	return cell.Light(local)
}

// resolveCell maps a BlockIndex whose components may be in
// [-1, ChunkEdge] back to a (relative chunk offset, in-bounds local
// index) pair.
func resolveCell(b voxel.BlockIndex) (voxel.GlobalIndex, voxel.BlockIndex) {
	oi, li := wrapComponent(b.I)
	oj, lj := wrapComponent(b.J)
	ok, lk := wrapComponent(b.K)
	return voxel.GlobalIndex{I: oi, J: oj, K: ok}, voxel.BlockIndex{I: li, J: lj, K: lk}
}

func wrapComponent(v int) (offset int32, local int) {
	switch {
	case v < 0:
		return -1, voxel.ChunkEdge + v
	case v >= voxel.ChunkEdge:
		return 1, v - voxel.ChunkEdge
	default:
		return 0, v
	}
}

// Retrieve gathers a read-locked snapshot of idx's full 3×3×3 stencil.
// Each present neighbour's composition and lighting arrays are copied
// out while that field's own read lock is held — both fields, since
// every consumer (the mesher's AO sum, the propagator's boundary
// absorption) reads both regardless of which one changed most
// recently — so the returned Neighborhood stays internally consistent
// even as the live chunks it was built from keep mutating. Locks are
// acquired in lexicographic GlobalIndex order to prevent deadlock
// against a concurrent retrieval centred on a different chunk.
func (c *Container) Retrieve(idx voxel.GlobalIndex) *Neighborhood {
	// stencilOffsets is already in lexicographic order on (di,dj,dk);
	// since cellIdx = idx + offset is monotonic per component, iterating
	// offsets in this fixed order acquires field locks in the same
	// globally-consistent lexicographic GlobalIndex order regardless of
	// which chunk a concurrent Retrieve is centred on, preventing the
	// deadlock spec.md §5 calls out. A map iteration here would not have
	// that guarantee, so the lock step below is a slice walk, not a
	// range over the snapshot map.
	offsets := stencilOffsets()
	cells := make(map[voxel.GlobalIndex]*cellSnapshot, len(offsets))
	for _, off := range offsets {
		cellIdx := idx.Add(off)
		ref, ok := c.Get(cellIdx)
		if !ok {
			continue
		}
		cells[off] = snapshotCell(ref, cellIdx)
		ref.Release()
	}

	return &Neighborhood{Center: cells[voxel.GlobalIndex{}], Cells: cells}
}

// snapshotCell copies ref's composition and lighting arrays, each
// under its own read lock, into a standalone cellSnapshot.
func snapshotCell(ref *Ref, idx voxel.GlobalIndex) *cellSnapshot {
	snap := &cellSnapshot{index: idx}

	unlockComp := ref.LockComposition(false)
	snap.composition = cloneBlockTypes(ref.Chunk.Composition())
	unlockComp()

	unlockLight := ref.LockLighting(false)
	snap.lighting = cloneBlockLights(ref.Chunk.Lighting())
	unlockLight()

	return snap
}

func cloneBlockTypes(src []voxel.BlockType) []voxel.BlockType {
	if src == nil {
		return nil
	}
	return append([]voxel.BlockType(nil), src...)
}

func cloneBlockLights(src []voxel.BlockLight) []voxel.BlockLight {
	if src == nil {
		return nil
	}
	return append([]voxel.BlockLight(nil), src...)
}

// stencilOffsets returns the 27 offsets of a chunk's full neighbourhood
// (including the centre at (0,0,0)) in lexicographic order, satisfying
// spec §5's globally-consistent lock-ordering requirement.
func stencilOffsets() []voxel.GlobalIndex {
	offsets := make([]voxel.GlobalIndex, 0, 27)
	for di := int32(-1); di <= 1; di++ {
		for dj := int32(-1); dj <= 1; dj++ {
			for dk := int32(-1); dk <= 1; dk++ {
				offsets = append(offsets, voxel.GlobalIndex{I: di, J: dj, K: dk})
			}
		}
	}
	return offsets
}
