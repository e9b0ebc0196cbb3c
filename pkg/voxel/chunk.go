package voxel

// BlockLight is a 4-bit sunlight intensity in [0, MaxSunlight].
type BlockLight uint8

// Chunk is the N³ grid of blocks at a given GlobalIndex, plus its
// derived sunlight field and non-opaque face bitmask. Two Chunk values
// with the same GlobalIndex are never supposed to coexist; that
// uniqueness is enforced by the container, not by Chunk itself.
type Chunk struct {
	index GlobalIndex

	// composition is nil when the chunk is "unallocated" (invariant 1:
	// every logical voxel reads as Air in that state).
	composition []BlockType
	// lighting is nil when unallocated (every logical voxel reads as
	// MaxSunlight).
	lighting []BlockLight

	// nonOpaqueFaces has bit d set iff face d's boundary layer contains
	// at least one transparent voxel. Recomputed only on composition
	// mutation (invariant 2).
	nonOpaqueFaces uint8
}

// NewChunk returns an empty (unallocated) chunk at idx.
func NewChunk(idx GlobalIndex) *Chunk {
	c := &Chunk{index: idx}
	c.recomputeFaceMask()
	return c
}

// NewChunkWithComposition returns a chunk at idx with the given flat
// composition array (len must be BlocksPerChunk). If the composition is
// entirely Air, it is dropped to the unallocated representation per
// spec's terrain-generator step 3.
func NewChunkWithComposition(idx GlobalIndex, composition []BlockType) *Chunk {
	c := &Chunk{index: idx}
	c.SetComposition(composition)
	return c
}

// Index returns the chunk's immutable identity.
func (c *Chunk) Index() GlobalIndex { return c.index }

// IsCompositionAllocated reports whether the composition array is
// materialised (false means "entirely Air").
func (c *Chunk) IsCompositionAllocated() bool { return c.composition != nil }

// IsLightingAllocated reports whether the lighting array is
// materialised (false means "entirely MaxSunlight").
func (c *Chunk) IsLightingAllocated() bool { return c.lighting != nil }

// Block returns the block type at b. Out-of-bounds b is a precondition
// breach — callers must only query indices satisfying InBounds.
func (c *Chunk) Block(b BlockIndex) BlockType {
	if c.composition == nil {
		return Air
	}
	return c.composition[b.FlatIndex()]
}

// SetBlock mutates a single voxel and recomputes the face-opacity
// bitmask. Materialises the composition array on first write if it was
// unallocated.
func (c *Chunk) SetBlock(b BlockIndex, t BlockType) {
	if c.composition == nil {
		if t == Air {
			return
		}
		c.composition = make([]BlockType, BlocksPerChunk)
	}
	c.composition[b.FlatIndex()] = t
	c.recomputeFaceMask()
}

// SetComposition replaces the whole composition array. A nil or
// all-Air slice drops to the unallocated representation.
func (c *Chunk) SetComposition(composition []BlockType) {
	if composition == nil {
		c.composition = nil
		c.recomputeFaceMask()
		return
	}
	allAir := true
	for _, t := range composition {
		if t != Air {
			allAir = false
			break
		}
	}
	if allAir {
		c.composition = nil
	} else {
		c.composition = composition
	}
	c.recomputeFaceMask()
}

// Composition returns the live composition slice, or nil if unallocated.
// Callers must not retain it across a concurrent SetBlock/SetComposition.
func (c *Chunk) Composition() []BlockType { return c.composition }

// Light returns the sunlight value at b.
func (c *Chunk) Light(b BlockIndex) BlockLight {
	if c.lighting == nil {
		return MaxSunlight
	}
	return c.lighting[b.FlatIndex()]
}

// SetLighting replaces the whole lighting array. A uniformly-MaxSunlight
// slice is dropped to the unallocated representation (spec §4.3 step 5).
func (c *Chunk) SetLighting(lighting []BlockLight) {
	if lighting == nil {
		c.lighting = nil
		return
	}
	uniform := true
	for _, l := range lighting {
		if l != MaxSunlight {
			uniform = false
			break
		}
	}
	if uniform {
		c.lighting = nil
	} else {
		c.lighting = lighting
	}
}

// Lighting returns the live lighting slice, or nil if unallocated.
func (c *Chunk) Lighting() []BlockLight { return c.lighting }

// FaceOpaque reports whether d's boundary layer is free of transparent
// voxels (invariant 2). An unallocated (all-Air) chunk is never
// face-opaque on any direction.
func (c *Chunk) FaceOpaque(d Direction) bool {
	return c.nonOpaqueFaces&(1<<uint(d)) == 0
}

// recomputeFaceMask walks the six boundary layers and rebuilds
// nonOpaqueFaces from scratch. Called after any composition mutation;
// O(N²) per face, acceptable because it only runs on chunk edit, not
// per-frame.
func (c *Chunk) recomputeFaceMask() {
	var mask uint8
	if c.composition == nil {
		// Unallocated == entirely Air == transparent on every face.
		for _, d := range AllDirections {
			mask |= 1 << uint(d)
		}
		c.nonOpaqueFaces = mask
		return
	}
	for _, d := range AllDirections {
		if faceHasTransparentVoxel(c.composition, d) {
			mask |= 1 << uint(d)
		}
	}
	c.nonOpaqueFaces = mask
}

func faceHasTransparentVoxel(composition []BlockType, d Direction) bool {
	fixed := 0
	switch d {
	case NegX:
		fixed = 0
	case PosX:
		fixed = ChunkEdge - 1
	case NegY, NegZ:
		fixed = 0
	case PosY, PosZ:
		fixed = ChunkEdge - 1
	}
	for a := 0; a < ChunkEdge; a++ {
		for b := 0; b < ChunkEdge; b++ {
			var idx BlockIndex
			switch d {
			case NegX, PosX:
				idx = BlockIndex{fixed, a, b}
			case NegY, PosY:
				idx = BlockIndex{a, fixed, b}
			case NegZ, PosZ:
				idx = BlockIndex{a, b, fixed}
			}
			if composition[idx.FlatIndex()].IsTransparent() {
				return true
			}
		}
	}
	return false
}

// ForEachNeighbor invokes f for each of the 26 neighbours of idx in the
// 3×3×3 stencil centred on it (excluding idx itself), matching the
// stencil shape the container and lighting propagator use for shared
// retrieval and cross-chunk notification.
func ForEachNeighbor(idx GlobalIndex, f func(GlobalIndex)) {
	for di := int32(-1); di <= 1; di++ {
		for dj := int32(-1); dj <= 1; dj++ {
			for dk := int32(-1); dk <= 1; dk++ {
				if di == 0 && dj == 0 && dk == 0 {
					continue
				}
				f(idx.Add(GlobalIndex{di, dj, dk}))
			}
		}
	}
}
