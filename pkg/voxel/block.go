package voxel

// BlockType is the atomic voxel tag. Zero value is Air.
type BlockType uint8

const (
	Air BlockType = iota
	Grass
	Dirt
	Stone
	OakLog
	OakLeaves
	Glass
	Water
	Sand
	Snow
	OakPlanks
	StoneBricks
	Netherrack
	GoldBlock
	PackedIce
	Lava
	Barrel
	Bookshelf
)

// BlockProperties carries the physical properties the mesher and
// lighting propagator need.
type BlockProperties struct {
	Transparent bool
	// TextureLayer is the per-face texture array layer packed into
	// vertex.textureID (§6). Index 0=top,1=side,2=bottom; blocks whose
	// faces share one texture repeat the same layer across all three.
	TextureLayer [3]uint16
}

var blockProperties = map[BlockType]BlockProperties{
	Air:         {Transparent: true},
	Grass:       {TextureLayer: [3]uint16{0, 1, 2}},
	Dirt:        {TextureLayer: [3]uint16{2, 2, 2}},
	Stone:       {TextureLayer: [3]uint16{3, 3, 3}},
	OakLog:      {TextureLayer: [3]uint16{4, 5, 4}},
	OakLeaves:   {Transparent: true, TextureLayer: [3]uint16{6, 6, 6}},
	Glass:       {Transparent: true, TextureLayer: [3]uint16{7, 7, 7}},
	Water:       {Transparent: true, TextureLayer: [3]uint16{8, 8, 8}},
	Sand:        {TextureLayer: [3]uint16{9, 9, 9}},
	Snow:        {TextureLayer: [3]uint16{10, 10, 10}},
	OakPlanks:   {TextureLayer: [3]uint16{11, 11, 11}},
	StoneBricks: {TextureLayer: [3]uint16{12, 12, 12}},
	Netherrack:  {TextureLayer: [3]uint16{13, 13, 13}},
	GoldBlock:   {TextureLayer: [3]uint16{14, 14, 14}},
	PackedIce:   {Transparent: true, TextureLayer: [3]uint16{15, 15, 15}},
	Lava:        {Transparent: true, TextureLayer: [3]uint16{16, 16, 16}},
	Barrel:      {TextureLayer: [3]uint16{17, 18, 17}},
	Bookshelf:   {TextureLayer: [3]uint16{19, 19, 19}},
}

// Properties returns b's physical properties, defaulting to opaque for
// unregistered block types (a bug-resistant default, not a silent
// success path — every real BlockType above is registered).
func (b BlockType) Properties() BlockProperties {
	if props, ok := blockProperties[b]; ok {
		return props
	}
	return BlockProperties{}
}

// IsTransparent reports whether b has non-opaque samples (glass,
// leaves, water, lava, ice, and air are transparent).
func (b BlockType) IsTransparent() bool {
	return b.Properties().Transparent
}

// IsOpaque is the complement of IsTransparent.
func (b BlockType) IsOpaque() bool {
	return !b.IsTransparent()
}

// TextureLayerFor returns the texture array layer for the given face
// direction. faceSlot follows the TextureLayer convention: 0 = +Y
// (top), 1 = side (±X, ±Z), 2 = -Y (bottom).
func (b BlockType) TextureLayerFor(d Direction) uint16 {
	props := b.Properties()
	switch d {
	case PosY:
		return props.TextureLayer[0]
	case NegY:
		return props.TextureLayer[2]
	default:
		return props.TextureLayer[1]
	}
}
