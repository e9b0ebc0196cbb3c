// Command voxels hosts the core world subsystem: a streaming chunk
// grid around a flying camera, generated, lit, meshed and drawn
// through the GPU arenas in pkg/render.
package main

import (
	"flag"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ashgrove/voxelcore/internal/openglhelper"
	"github.com/ashgrove/voxelcore/pkg/config"
	"github.com/ashgrove/voxelcore/pkg/container"
	"github.com/ashgrove/voxelcore/pkg/gpu"
	"github.com/ashgrove/voxelcore/pkg/pipeline"
	"github.com/ashgrove/voxelcore/pkg/render"
	"github.com/ashgrove/voxelcore/pkg/scheduler"
	"github.com/ashgrove/voxelcore/pkg/terrain"
)

var logger = log.New(os.Stderr, "[voxels] ", log.LstdFlags)

func init() {
	// OpenGL and GLFW calls must all come from the thread that owns
	// the context.
	runtime.LockOSThread()
}

const initialPoolBytes = 4 << 20

func main() {
	settings, err := config.ParseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Fatalf("bad configuration: %v", err)
	}

	renderer, pipe, shutdown, err := setup(settings)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer shutdown()

	run(renderer, pipe, settings)
}

// setup wires one world: the chunk container, terrain generator, the
// priority thread pool, the four GPU memory pools backing the
// pipeline's draw arenas, and the window renderer sharing those same
// pools. Returns a shutdown func that stops the thread pool and
// releases GL resources in the right order.
func setup(settings config.Settings) (*render.Renderer, *pipeline.Pipeline, func(), error) {
	cont := container.New(nil)
	generator := terrain.NewGenerator(settings.BlockLen)
	pool := scheduler.NewThreadPool(settings.WorkerCount())

	opaqueVertex := gpu.NewPool(gl.ARRAY_BUFFER, openglhelper.DynamicDraw, initialPoolBytes)
	opaqueIndex := gpu.NewPool(gl.ELEMENT_ARRAY_BUFFER, openglhelper.DynamicDraw, initialPoolBytes)
	transparentVertex := gpu.NewPool(gl.ARRAY_BUFFER, openglhelper.DynamicDraw, initialPoolBytes)
	transparentIndex := gpu.NewPool(gl.ELEMENT_ARRAY_BUFFER, openglhelper.DynamicDraw, initialPoolBytes)

	pipe := pipeline.New(settings, cont, generator, pool,
		opaqueVertex, opaqueIndex, transparentVertex, transparentIndex)

	renderer, err := render.New(settings, 1280, 720, "voxelcore",
		opaqueVertex, opaqueIndex, transparentVertex, transparentIndex)
	if err != nil {
		pool.Shutdown()
		return nil, nil, nil, err
	}

	shutdown := func() {
		pool.Shutdown()
		renderer.Cleanup()
	}
	return renderer, pipe, shutdown, nil
}

// run drives the main render loop: advance the pipeline (kicking off
// world streaming and draining finished mesh uploads) then draw both
// arenas, once per frame, until the window closes.
func run(renderer *render.Renderer, pipe *pipeline.Pipeline, settings config.Settings) {
	camera := renderer.Camera()
	spawnHeight := settings.BlockLen * float32(settings.ChunkEdge) / 2
	camera.SetPosition(mgl32.Vec3{0, spawnHeight, 0})

	lastFrame := time.Now()
	for !renderer.ShouldClose() {
		now := time.Now()
		deltaTime := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now

		renderer.BeginFrame(deltaTime)

		pipe.Update(camera.Position(), now)
		renderer.Draw(pipe.Opaque, pipe.Transparent, pipe.Origin())

		renderer.EndFrame()
	}
}
