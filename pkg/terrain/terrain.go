// Package terrain implements the pure, stateless column-fill consumed
// by the chunk pipeline. The *noise* behind Elevation is explicitly out
// of scope (spec.md §1); this package supplies a deterministic
// placeholder (NewDefaultElevation) so the generator is runnable and
// testable end to end, while leaving ElevationFunc as the real
// extension point a game would plug its noise library into.
package terrain

import (
	"math"

	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// ElevationFunc is a deterministic surface-height function in world
// units: elevation(x, y) → length.
type ElevationFunc func(x, y float32) float32

// BlockTypeForFunc classifies a vertical column position, given the
// biome at that column and the depth below the surface.
type BlockTypeForFunc func(biome Biome, z, surfaceZ float32) voxel.BlockType

// Biome is a coarse per-column classification feeding BlockTypeFor, the
// supplemented feature drawn from original_source's Biome.cpp/BiomeDefs.h
// that the distilled spec collapsed into a single implicit biome.
type Biome uint8

const (
	Grassland Biome = iota
	Desert
	Snowfield
	OceanFloor
)

// SoilDepth and SurfaceDepth are the two column-fill thresholds named
// in spec.md §4.2 step 2.
const (
	SoilDepth    = 4.0
	SurfaceDepth = 1.0
)

// NewDefaultElevation returns a smooth two-octave sine-wave height
// field, grounded on the teacher's cmd/voxels/main.go generateWorld
// (which likewise used a sine-wave heightmap), scaled so it produces a
// plausible rolling terrain rather than the teacher's flat demo slab.
func NewDefaultElevation() ElevationFunc {
	return func(x, y float32) float32 {
		base := float32(8.0)
		wave := 6.0*float32(math.Sin(float64(x)*0.05)) + 4.0*float32(math.Cos(float64(y)*0.07))
		detail := 1.5 * float32(math.Sin(float64(x)*0.3+float64(y)*0.2))
		return base + wave + detail
	}
}

// BiomeAt classifies a column by world XY, the supplemented second
// pure function described in SPEC_FULL.md §4.2. It is deliberately a
// coarse, deterministic zoning function rather than a noise field,
// consistent with Elevation's placeholder status.
func BiomeAt(x, y float32) Biome {
	temp := float32(math.Sin(float64(x) * 0.01))
	humidity := float32(math.Cos(float64(y) * 0.013))
	switch {
	case temp > 0.5:
		return Desert
	case temp < -0.5:
		return Snowfield
	case humidity < -0.6:
		return OceanFloor
	default:
		return Grassland
	}
}

// DefaultBlockTypeFor implements the layered classification in spec.md
// §4.2 step 2, with per-biome soil/surface tables.
func DefaultBlockTypeFor(biome Biome, z, surfaceZ float32) voxel.BlockType {
	switch {
	case z >= surfaceZ:
		return voxel.Air
	case z >= surfaceZ-SurfaceDepth:
		return surfaceBlock(biome)
	case z >= surfaceZ-SoilDepth:
		return soilBlock(biome)
	default:
		return voxel.Stone
	}
}

func surfaceBlock(b Biome) voxel.BlockType {
	switch b {
	case Desert:
		return voxel.Sand
	case Snowfield:
		return voxel.Snow
	case OceanFloor:
		return voxel.Sand
	default:
		return voxel.Grass
	}
}

func soilBlock(b Biome) voxel.BlockType {
	switch b {
	case Desert:
		return voxel.Sand
	case OceanFloor:
		return voxel.Dirt
	default:
		return voxel.Dirt
	}
}

// Generator owns the two pure functions the core consumes and produces
// chunk-sized column fills from them. ChunkEdge is always
// voxel.ChunkEdge: the config option of the same name is validated for
// power-of-twoness but the flat arrays throughout this module are sized
// against the compiled constant, matching how the bit-packed vertex
// format in the mesher is likewise fixed at compile time.
type Generator struct {
	Elevation    ElevationFunc
	BlockTypeFor BlockTypeForFunc
	BlockLen     float32
}

// NewGenerator builds a Generator with the default elevation/biome
// functions.
func NewGenerator(blockLen float32) *Generator {
	return &Generator{
		Elevation:    NewDefaultElevation(),
		BlockTypeFor: DefaultBlockTypeFor,
		BlockLen:     blockLen,
	}
}

// Fill produces a flat composition array for the chunk at idx following
// spec.md §4.2's column-fill algorithm exactly. Returns nil if the
// resulting grid is entirely Air (step 3).
func (g *Generator) Fill(idx voxel.GlobalIndex) []voxel.BlockType {
	n := voxel.ChunkEdge
	composition := make([]voxel.BlockType, n*n*n)
	allAir := true

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			worldX := float32(n)*g.BlockLen*float32(idx.I) + g.BlockLen*(float32(i)+0.5)
			worldY := float32(n)*g.BlockLen*float32(idx.J) + g.BlockLen*(float32(j)+0.5)
			surfaceZ := g.Elevation(worldX, worldY)
			biome := BiomeAt(worldX, worldY)

			for k := 0; k < n; k++ {
				zk := float32(n)*g.BlockLen*float32(idx.K) + float32(k)*g.BlockLen
				bt := g.BlockTypeFor(biome, zk, surfaceZ)
				if bt != voxel.Air {
					allAir = false
				}
				composition[voxel.BlockIndex{I: i, J: j, K: k}.FlatIndex()] = bt
			}
		}
	}

	if allAir {
		return nil
	}
	return composition
}
