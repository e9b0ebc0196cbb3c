// Package render draws the opaque and transparent draw-command arenas
// each frame via two glMultiDrawElementsIndirect calls, after the
// frustum-visibility partition and front-to-back/back-to-front
// distance sort from spec.md §4.6's four-step render list.
//
// Consolidates the teacher's two separate, duplicated indirect-draw
// paths — render.Renderer's single persistent buffer
// (renderer.go/RenderChunksIndirect) and render.ChunkBufferManager's
// triple-buffered one (chunkBufferManager.go/AddChunk) — into a single
// implementation built on pkg/gpu's memory pool and pkg/arena's
// stable-handle arena, since both already do by hand (address
// bookkeeping, fence-free reuse) what those packages now do generally.
package render

import (
	"log"
	"os"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ashgrove/voxelcore/internal/openglhelper"
	"github.com/ashgrove/voxelcore/pkg/config"
	"github.com/ashgrove/voxelcore/pkg/gpu"
	"github.com/ashgrove/voxelcore/pkg/mesher"
	"github.com/ashgrove/voxelcore/pkg/pipeline"
	"github.com/ashgrove/voxelcore/pkg/voxel"
)

var logger = log.New(os.Stderr, "[render] ", log.LstdFlags)

// maxVisibleChunks bounds the indirect command and chunk-position
// buffers; a render distance producing more visible chunks than this
// truncates the draw (logged, not silently).
const maxVisibleChunks = 4096

// Renderer owns the window, camera, shader program and per-frame
// indirect/SSBO scratch buffers. Per spec.md §5 it is the only thing
// allowed to touch the graphics API.
type Renderer struct {
	settings config.Settings
	window   *openglhelper.Window
	camera   *Camera
	shader   *openglhelper.Shader
	vao      *openglhelper.VertexArrayObject

	opaqueVertexPool, opaqueIndexPool           *gpu.Pool
	transparentVertexPool, transparentIndexPool *gpu.Pool

	// Indirect command and chunk-anchor SSBO scratch buffers are
	// triple-buffered: each is rewritten in full every frame, exactly
	// the CPU-writes-while-GPU-reads-an-older-section workload
	// TripleBuffer exists for, so a naive glBufferSubData can't stall
	// waiting on last frame's draw to finish reading it.
	opaqueIndirect, transparentIndirect   *openglhelper.TripleBuffer
	opaquePositions, transparentPositions *openglhelper.TripleBuffer

	isWireframe bool
}

const tripleBufferSections = 3

// New creates a windowed renderer backed by the given GPU memory
// pools — the same four pools passed to pipeline.New, so both draw
// from the one set of allocations.
func New(settings config.Settings, width, height int, title string,
	opaqueVertexPool, opaqueIndexPool, transparentVertexPool, transparentIndexPool *gpu.Pool,
) (*Renderer, error) {
	window, err := openglhelper.NewWindow(width, height, title, settings.VSync)
	if err != nil {
		return nil, err
	}

	shader, err := openglhelper.LoadShaderFromFiles("assets/shaders/chunk.vert", "assets/shaders/chunk.frag")
	if err != nil {
		return nil, err
	}

	camera := NewCamera(mgl32.Vec3{0, 0, 0})
	camera.UpdateProjectionMatrix(width, height)

	opaqueIndirect, err := openglhelper.NewTripleBuffer(gl.DRAW_INDIRECT_BUFFER, maxVisibleChunks*openglhelper.DrawElementsIndirectCommandSize, tripleBufferSections)
	if err != nil {
		return nil, err
	}
	transparentIndirect, err := openglhelper.NewTripleBuffer(gl.DRAW_INDIRECT_BUFFER, maxVisibleChunks*openglhelper.DrawElementsIndirectCommandSize, tripleBufferSections)
	if err != nil {
		return nil, err
	}
	opaquePositions, err := openglhelper.NewTripleBuffer(gl.SHADER_STORAGE_BUFFER, maxVisibleChunks*int(unsafe.Sizeof(mgl32.Vec4{})), tripleBufferSections)
	if err != nil {
		return nil, err
	}
	transparentPositions, err := openglhelper.NewTripleBuffer(gl.SHADER_STORAGE_BUFFER, maxVisibleChunks*int(unsafe.Sizeof(mgl32.Vec4{})), tripleBufferSections)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		settings:              settings,
		window:                window,
		camera:                camera,
		shader:                shader,
		vao:                   openglhelper.NewVAO(),
		opaqueVertexPool:      opaqueVertexPool,
		opaqueIndexPool:       opaqueIndexPool,
		transparentVertexPool: transparentVertexPool,
		transparentIndexPool:  transparentIndexPool,
		opaqueIndirect:        opaqueIndirect,
		transparentIndirect:   transparentIndirect,
		opaquePositions:       opaquePositions,
		transparentPositions:  transparentPositions,
	}

	r.setupCallbacks()
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	return r, nil
}

func (r *Renderer) setupCallbacks() {
	r.window.GLFWWindow().SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if r.window.IsMouseCaptured() {
			r.camera.HandleMouseMovement(xpos, ypos)
		}
	})
	r.window.GLFWWindow().SetScrollCallback(func(_ *glfw.Window, _, yoffset float64) {
		r.camera.HandleMouseScroll(yoffset)
	})
	r.window.GLFWWindow().SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		r.window.OnResize(width, height)
		r.camera.UpdateProjectionMatrix(width, height)
	})
	r.window.GLFWWindow().SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		switch {
		case key == glfw.KeyEscape && action == glfw.Press:
			r.window.GLFWWindow().SetShouldClose(true)
		case key == glfw.KeyC && action == glfw.Press:
			r.window.ToggleMouseCaptured()
			r.camera.ResetMouseState()
		case key == KeyX && action == glfw.Press:
			r.ToggleWireframe()
		case key == glfw.KeyV && action == glfw.Press:
			r.window.SetVSync(!r.window.VSyncEnabled())
		}
	})
}

// Window exposes the underlying window, for the main loop's timing and
// shutdown handling.
func (r *Renderer) Window() *openglhelper.Window { return r.window }

// Camera exposes the fly camera driving both the view matrix and the
// frustum test's viewProjection.
func (r *Renderer) Camera() *Camera { return r.camera }

// ShouldClose reports whether the window has received a close request.
func (r *Renderer) ShouldClose() bool { return r.window.ShouldClose() }

// BeginFrame processes camera input and clears the framebuffer.
func (r *Renderer) BeginFrame(deltaTime float32) {
	r.camera.ProcessKeyboardInput(deltaTime, r.window)
	r.window.Clear(mgl32.Vec4{0.05, 0.05, 0.1, 1.0})
	gl.Enable(gl.DEPTH_TEST)
}

// EndFrame swaps buffers and polls window/input events.
func (r *Renderer) EndFrame() {
	r.window.SwapBuffers()
	r.window.PollEvents()
}

// ToggleWireframe flips between solid and line polygon mode.
func (r *Renderer) ToggleWireframe() {
	r.isWireframe = !r.isWireframe
	if r.isWireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// Draw runs spec.md §4.6's per-frame render list against both arenas:
// partition on frustum+render-distance visibility, sort opaque
// front-to-back and transparent back-to-front, re-sort the
// transparent voxel order, then one indirect multi-draw per arena.
func (r *Renderer) Draw(opaque, transparent *pipeline.DrawArena, origin voxel.GlobalIndex) {
	view := r.camera.ViewMatrix()
	projection := r.camera.ProjectionMatrix()
	frustum := NewFrustum(projection.Mul4(view), ChunkBoundingRadius(r.settings.BlockLen))

	r.shader.Use()
	r.shader.SetMat4("view", view)
	r.shader.SetMat4("projection", projection)
	r.shader.SetVec3("viewPos", r.camera.Position())
	r.shader.SetFloat("blockLen", r.settings.BlockLen)

	r.vao.Bind()

	r.drawArena(opaque, r.opaqueVertexPool, r.opaqueIndexPool, r.opaqueIndirect, r.opaquePositions, origin, frustum, true, false)
	r.drawArena(transparent, r.transparentVertexPool, r.transparentIndexPool, r.transparentIndirect, r.transparentPositions, origin, frustum, false, true)
}

func (r *Renderer) visiblePredicate(origin voxel.GlobalIndex, frustum Frustum) func(voxel.GlobalIndex) bool {
	return func(id voxel.GlobalIndex) bool {
		if id.ChebyshevDistance(origin) > r.settings.RenderDistance {
			return false
		}
		return frustum.Visible(chunkAnchor(id, origin, r.settings.BlockLen))
	}
}

func (r *Renderer) drawArena(
	a *pipeline.DrawArena,
	vertexPool, indexPool *gpu.Pool,
	indirect, positions *openglhelper.TripleBuffer,
	origin voxel.GlobalIndex,
	frustum Frustum,
	frontToBack, transparent bool,
) {
	visible := a.Partition(r.visiblePredicate(origin, frustum))
	if visible > maxVisibleChunks {
		logger.Printf("visible chunk count %d exceeds %d, truncating draw", visible, maxVisibleChunks)
		visible = maxVisibleChunks
	}
	if visible == 0 {
		return
	}

	a.Sort(visible, func(x, y voxel.GlobalIndex) bool {
		dx, dy := x.ChebyshevDistance(origin), y.ChebyshevDistance(origin)
		if frontToBack {
			return dx < dy
		}
		return dx > dy
	})

	if transparent {
		viewPos := r.camera.Position()
		if err := a.ModifyIndices(visible, func(cmd *mesher.DrawCommand) bool {
			return cmd.Sort(origin, viewPos, r.settings.BlockLen)
		}); err != nil {
			logger.Printf("resort transparent indices: %v", err)
		}
	}

	indirect.WaitForSync()
	positions.WaitForSync()

	commands := a.IndirectCommands(visible)
	indirectBytes := unsafe.Slice((*byte)(unsafe.Pointer(&commands[0])), len(commands)*openglhelper.DrawElementsIndirectCommandSize)
	indirect.WriteCurrent(indirectBytes)

	entries := a.Entries(visible)
	anchors := make([]mgl32.Vec4, visible)
	for i, e := range entries {
		pos := chunkAnchor(e.ID, origin, r.settings.BlockLen)
		anchors[i] = mgl32.Vec4{pos.X(), pos.Y(), pos.Z(), 0}
	}
	anchorBytes := unsafe.Slice((*byte)(unsafe.Pointer(&anchors[0])), len(anchors)*int(unsafe.Sizeof(mgl32.Vec4{})))
	positions.WriteCurrent(anchorBytes)
	positions.Buffer.BindBaseRange(0, positions.CurrentOffsetBytes(), len(anchorBytes))

	vertexPool.Buffer().Bind()
	gl.VertexAttribIPointer(0, 2, gl.UNSIGNED_INT, 8, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	indexPool.Buffer().Bind()
	indirect.Buffer.Bind()

	openglhelper.MultiDrawElementsIndirectAt(gl.TRIANGLES, gl.UNSIGNED_INT, indirect.CurrentOffsetBytes(), visible)

	indirect.CreateFenceSync()
	indirect.Advance()
	positions.CreateFenceSync()
	positions.Advance()
}

// chunkAnchor returns chunkIndex's world-space (0,0,0) corner, relative
// to origin's own chunk anchor (the coordinate-space origin) —
// mirrors mesher.chunkAnchorPosition, needed here too since the
// renderer uploads anchors independently of the mesher's index rebuild.
func chunkAnchor(chunkIndex, origin voxel.GlobalIndex, blockLen float32) mgl32.Vec3 {
	d := chunkIndex.Sub(origin)
	edge := blockLen * float32(voxel.ChunkEdge)
	return mgl32.Vec3{edge * float32(d.I), edge * float32(d.J), edge * float32(d.K)}
}

// Cleanup releases all window, shader and buffer resources.
func (r *Renderer) Cleanup() {
	r.shader.Delete()
	r.vao.Delete()
	r.opaqueIndirect.Cleanup()
	r.transparentIndirect.Cleanup()
	r.opaquePositions.Cleanup()
	r.transparentPositions.Cleanup()
	r.window.Close()
}
