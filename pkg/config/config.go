// Package config loads and validates the engine-wide settings named in
// the external-interfaces "Configurable parameters" table. It extends
// the teacher's plain flag.FlagSet usage (cmd/voxels/main.go) rather
// than reaching for a third-party flags/config library, matching what
// the rest of the example pack does too.
package config

import (
	"flag"
	"math/bits"
	"runtime"

	"github.com/ashgrove/voxelcore/pkg/voxelerr"
)

// Settings holds every core-recognised configuration value, all fixed
// for the lifetime of a run.
type Settings struct {
	ChunkEdge      int
	BlockLen       float32
	RenderDistance int32
	LoadDistance   int32
	UnloadDistance int32
	MaxSunlight    uint8
	GrowthFactor   float64
	WorkerFraction float64
	VSync          bool
}

// Default returns the table's documented defaults.
func Default() Settings {
	return Settings{
		ChunkEdge:      32,
		BlockLen:       0.5,
		RenderDistance: 8,
		LoadDistance:   9,
		UnloadDistance: 9,
		MaxSunlight:    15,
		GrowthFactor:   1.25,
		WorkerFraction: 0.25,
		VSync:          true,
	}
}

// ParseArgs parses args into a fresh Settings starting from Default.
// flag.FlagSet has no Int32Var, so the render/load/unload distances
// round-trip through int64 locals before being narrowed back.
func ParseArgs(fs *flag.FlagSet, args []string) (Settings, error) {
	s := Default()
	var renderDistance, loadDistance, unloadDistance int64
	var blockLen, growthFactor, workerFraction float64

	renderDistance = int64(s.RenderDistance)
	loadDistance = int64(s.LoadDistance)
	unloadDistance = int64(s.UnloadDistance)
	blockLen = float64(s.BlockLen)
	growthFactor = s.GrowthFactor
	workerFraction = s.WorkerFraction

	fs.IntVar(&s.ChunkEdge, "chunk-edge", s.ChunkEdge, "blocks per chunk side (power of 2)")
	fs.Float64Var(&blockLen, "block-len", blockLen, "world length of one block, in metres")
	fs.Int64Var(&renderDistance, "render-distance", renderDistance, "Chebyshev chunk render radius")
	fs.Int64Var(&loadDistance, "load-distance", loadDistance, "Chebyshev chunk load radius")
	fs.Int64Var(&unloadDistance, "unload-distance", unloadDistance, "Chebyshev chunk unload radius")
	fs.Float64Var(&growthFactor, "growth-factor", growthFactor, "GPU pool resize multiplier")
	fs.Float64Var(&workerFraction, "worker-fraction", workerFraction, "fraction of hardware threads given to the world pool")
	fs.BoolVar(&s.VSync, "vsync", s.VSync, "cap frame rate to the display's swap interval")

	if err := fs.Parse(args); err != nil {
		return Settings{}, voxelerr.Wrap(voxelerr.KindBadConfiguration, "config.ParseArgs", err)
	}

	s.BlockLen = float32(blockLen)
	s.RenderDistance = int32(renderDistance)
	s.LoadDistance = int32(loadDistance)
	s.UnloadDistance = int32(unloadDistance)
	s.GrowthFactor = growthFactor
	s.WorkerFraction = workerFraction

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate enforces the "Bad configuration" refuse-to-start rule:
// non-power-of-two chunk edge, or unload distance smaller than render
// distance.
func (s Settings) Validate() error {
	if s.ChunkEdge <= 0 || bits.OnesCount(uint(s.ChunkEdge)) != 1 {
		return voxelerr.New(voxelerr.KindBadConfiguration, "chunk-edge must be a power of 2")
	}
	if s.UnloadDistance < s.RenderDistance {
		return voxelerr.New(voxelerr.KindBadConfiguration, "unload-distance must be >= render-distance")
	}
	if s.LoadDistance < s.RenderDistance {
		return voxelerr.New(voxelerr.KindBadConfiguration, "load-distance must be >= render-distance")
	}
	if s.GrowthFactor <= 1.0 {
		return voxelerr.New(voxelerr.KindBadConfiguration, "growth-factor must be > 1.0")
	}
	if s.WorkerFraction <= 0 || s.WorkerFraction > 1 {
		return voxelerr.New(voxelerr.KindBadConfiguration, "worker-fraction must be in (0,1]")
	}
	return nil
}

// WorkerCount returns the number of OS threads dedicated to the world
// worker pool: NumCPU scaled by WorkerFraction and rounded to the
// nearest integer, with a floor of 1 so a low-core machine never gets
// zero workers.
func (s Settings) WorkerCount() int {
	n := int(float64(runtime.NumCPU())*s.WorkerFraction + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}
