package pipeline

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/voxelcore/pkg/config"
	"github.com/ashgrove/voxelcore/pkg/container"
	"github.com/ashgrove/voxelcore/pkg/mesher"
	"github.com/ashgrove/voxelcore/pkg/scheduler"
	"github.com/ashgrove/voxelcore/pkg/terrain"
	"github.com/ashgrove/voxelcore/pkg/voxel"
)

// fakePool is a bump allocator satisfying arena.MemoryPool, letting
// the pipeline be exercised without a live GPU buffer.
type fakePool struct {
	next int
}

func newFakePool() *fakePool { return &fakePool{} }

func (p *fakePool) Alloc(data []byte) (int, bool, error) {
	addr := p.next
	p.next += len(data)
	return addr, false, nil
}
func (p *fakePool) Free(addr int) error { return nil }
func (p *fakePool) Realloc(addr int, data []byte) (int, bool, error) {
	return p.Alloc(data)
}
func (p *fakePool) Capacity() int { return p.next }

// flatGenerator produces a deterministic, unmistakably mixed column: a
// flat floor at surfaceHeight, guaranteeing at least one exposed
// top-facing quad in any chunk whose vertical range contains
// surfaceHeight.
func flatGenerator(blockLen float32, surfaceHeight float32) *terrain.Generator {
	return &terrain.Generator{
		Elevation:    func(float32, float32) float32 { return surfaceHeight },
		BlockTypeFor: terrain.DefaultBlockTypeFor,
		BlockLen:     blockLen,
	}
}

func newTestPipeline(t *testing.T, workers int) (*Pipeline, *scheduler.ThreadPool) {
	t.Helper()
	cont := container.New(nil)
	gen := flatGenerator(1.0, float32(voxel.ChunkEdge)/2)
	pool := scheduler.NewThreadPool(workers)
	settings := config.Default()
	settings.LoadDistance = 1
	settings.UnloadDistance = 1
	settings.RenderDistance = 1
	p := New(settings, cont, gen, pool,
		newFakePool(), newFakePool(),
		newFakePool(), newFakePool(),
	)
	return p, pool
}

func TestGenerateNewChunkInsertsChunkAndIsIdempotent(t *testing.T) {
	p, pool := newTestPipeline(t, 1)
	defer pool.Shutdown()

	idx := voxel.GlobalIndex{I: 0, J: 0, K: 0}
	_, err := p.generateNewChunk(idx)
	require.NoError(t, err)
	assert.True(t, p.container.Contains(idx))

	// A second call observes the chunk already present and is a no-op,
	// not a duplicate insert attempt.
	_, err = p.generateNewChunk(idx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.container.Len())
}

func TestMeshChunkReturnsInvalidWhenChunkAbsent(t *testing.T) {
	p, pool := newTestPipeline(t, 1)
	defer pool.Shutdown()

	result, err := p.meshChunk(voxel.GlobalIndex{I: 5, J: 5, K: 5})
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestMeshChunkProducesNonEmptyOpaqueForMixedColumn(t *testing.T) {
	p, pool := newTestPipeline(t, 1)
	defer pool.Shutdown()

	idx := voxel.GlobalIndex{I: 0, J: 0, K: 0}
	_, err := p.generateNewChunk(idx)
	require.NoError(t, err)

	result, err := p.meshChunk(idx)
	require.NoError(t, err)
	require.True(t, result.Valid)
	assert.False(t, result.Opaque.IsEmpty(), "a flat floor bisecting the chunk must expose at least one quad")
}

func TestRelightReturnsNoopWhenChunkAbsent(t *testing.T) {
	p, pool := newTestPipeline(t, 1)
	defer pool.Shutdown()

	_, err := p.relight(voxel.GlobalIndex{I: 9, J: 9, K: 9})
	require.NoError(t, err)
}

func TestApplyMeshResultInsertsAndRemoves(t *testing.T) {
	p, pool := newTestPipeline(t, 1)
	defer pool.Shutdown()

	idx := voxel.GlobalIndex{I: 0, J: 0, K: 0}
	_, err := p.generateNewChunk(idx)
	require.NoError(t, err)
	result, err := p.meshChunk(idx)
	require.NoError(t, err)
	require.True(t, result.Valid)

	p.applyMeshResult(idx, result)
	_, hasOpaque := p.Opaque.Get(idx)
	assert.True(t, hasOpaque)

	// An empty re-mesh (e.g. the chunk was dug out to nothing) removes
	// the arena entry rather than leaving a stale one.
	p.applyMeshResult(idx, meshResult{Valid: true, Opaque: emptyCommand(idx), Transparent: emptyCommand(idx)})
	_, hasOpaque = p.Opaque.Get(idx)
	assert.False(t, hasOpaque)
}

func TestEraseChunkRemovesFromContainerAndArenas(t *testing.T) {
	p, pool := newTestPipeline(t, 1)
	defer pool.Shutdown()

	idx := voxel.GlobalIndex{I: 0, J: 0, K: 0}
	_, _ = p.generateNewChunk(idx)
	result, _ := p.meshChunk(idx)
	p.applyMeshResult(idx, result)
	require.True(t, p.container.Contains(idx))

	_, err := p.eraseChunk(idx)
	require.NoError(t, err)
	assert.False(t, p.container.Contains(idx))
	_, hasOpaque := p.Opaque.Get(idx)
	assert.False(t, hasOpaque)
}

func TestRequestForceMeshDrainsThroughUpdate(t *testing.T) {
	p, pool := newTestPipeline(t, 2)
	defer pool.Shutdown()

	idx := voxel.GlobalIndex{I: 0, J: 0, K: 0}
	_, err := p.generateNewChunk(idx)
	require.NoError(t, err)

	p.RequestForceMesh(idx)

	require.Eventually(t, func() bool {
		p.Update(mgl32.Vec3{0, 0, 0}, time.Now())
		_, has := p.Opaque.Get(idx)
		return has
	}, time.Second, time.Millisecond)
}

func TestLoadNewChunksGeneratesBoundaryNeighbors(t *testing.T) {
	p, pool := newTestPipeline(t, 2)
	defer pool.Shutdown()

	origin := voxel.GlobalIndex{I: 0, J: 0, K: 0}
	_, err := p.generateNewChunk(origin)
	require.NoError(t, err)

	p.loadNewChunks(origin)

	require.Eventually(t, func() bool {
		return p.container.Len() > 1
	}, time.Second, time.Millisecond)
}

func TestCleanErasesChunksOutsideUnloadDistance(t *testing.T) {
	p, pool := newTestPipeline(t, 2)
	defer pool.Shutdown()

	far := voxel.GlobalIndex{I: 100, J: 0, K: 0}
	_, err := p.generateNewChunk(far)
	require.NoError(t, err)

	p.clean(voxel.GlobalIndex{I: 0, J: 0, K: 0})

	require.Eventually(t, func() bool {
		return !p.container.Contains(far)
	}, time.Second, time.Millisecond)
}

func emptyCommand(idx voxel.GlobalIndex) *mesher.DrawCommand {
	return &mesher.DrawCommand{Identity: idx}
}
