// Package arena implements a generic indirect multi-draw array: a
// tightly packed vector of draw commands, each backed by a GPU memory
// pool allocation, addressed by a caller-chosen stable handle rather
// than a slice index that partition/sort/remove would otherwise
// invalidate.
//
// Grounded directly on
// original_source/Engine/src/Engine/Renderer/MultiDrawArray.h's
// MultiDrawIndexedArray template (add/remove/mask/sort/amend), with
// Go generics standing in for the C++ CRTP command template and a
// pointer-identity Entry standing in for its shared_ptr<size_t>
// commandIndex indirection.
package arena

import (
	"log"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/ashgrove/voxelcore/internal/openglhelper"
	"github.com/ashgrove/voxelcore/pkg/voxelerr"
)

// indexStride is the byte width of one GPU index (always uint32 here).
const indexStride = 4

// IndexedPayload is what Arena needs from a caller's draw-command type
// to upload and re-upload it: mesher.DrawCommand satisfies this.
type IndexedPayload interface {
	VertexBytes() []byte
	IndexBytes() []byte
	IndexCount() int
}

// MemoryPool is the subset of *gpu.Pool's API Arena depends on,
// expressed as an interface so the address bookkeeping here can be
// tested without a live GPU buffer backing it.
type MemoryPool interface {
	Alloc(data []byte) (address int, resized bool, err error)
	Free(addr int) error
	Realloc(addr int, data []byte) (address int, resized bool, err error)
	Capacity() int
}

// Entry is one arena slot: a payload plus its current GPU placement.
// Callers hold onto the returned *Entry as their stable handle —
// Remove/Partition/Sort move it within the arena's internal slice, but
// the pointer itself, and therefore every field read through it,
// stays valid until the caller removes it.
type Entry[Ident comparable, Payload IndexedPayload] struct {
	ID      Ident
	Payload Payload

	vertexAddr int
	indexAddr  int
	indexCount int
	baseVertex uint32
	firstIndex uint32

	slot int // current index into Arena.entries, kept in sync on every swap
}

// BaseVertex and FirstIndex are this entry's current GPU placement,
// needed to build its per-frame indirect draw command.
func (e *Entry[Ident, Payload]) BaseVertex() uint32 { return e.baseVertex }
func (e *Entry[Ident, Payload]) FirstIndex() uint32 { return e.firstIndex }
func (e *Entry[Ident, Payload]) IndexCount() uint32 { return uint32(e.indexCount) }

// Arena is a tightly packed vector of draw commands sharing one vertex
// memory pool and one index memory pool, presentable to the GPU as a
// single glMultiDrawElementsIndirect call.
type Arena[Ident comparable, Payload IndexedPayload] struct {
	instanceTag uuid.UUID
	logger      *log.Logger

	vertexPool   MemoryPool
	indexPool    MemoryPool
	vertexStride int

	entries []*Entry[Ident, Payload]
	handles map[Ident]*Entry[Ident, Payload]
}

// New creates an arena whose vertex pool allocates in multiples of
// vertexStride bytes (one packed vertex's size) and whose index pool
// allocates raw uint32 index buffers.
func New[Ident comparable, Payload IndexedPayload](vertexPool, indexPool MemoryPool, vertexStride int) *Arena[Ident, Payload] {
	tag := uuid.New()
	return &Arena[Ident, Payload]{
		instanceTag:  tag,
		logger:       log.New(os.Stderr, "[arena "+tag.String()+"] ", log.LstdFlags),
		vertexPool:   vertexPool,
		indexPool:    indexPool,
		vertexStride: vertexStride,
		handles:      make(map[Ident]*Entry[Ident, Payload]),
	}
}

// Len returns the number of live draw commands.
func (a *Arena[Ident, Payload]) Len() int {
	return len(a.entries)
}

// Get looks up the entry for id, if one is currently inserted.
func (a *Arena[Ident, Payload]) Get(id Ident) (*Entry[Ident, Payload], bool) {
	e, ok := a.handles[id]
	return e, ok
}

// Entries exposes the first count entries in arena order, for per-
// frame indirect command construction; count must not exceed Len().
func (a *Arena[Ident, Payload]) Entries(count int) []*Entry[Ident, Payload] {
	return a.entries[:count]
}

// Insert allocates GPU space for payload's vertex and index data and
// appends it to the arena's tail. A payload with no vertex data is a
// no-op (spec's "must not exist in either arena" rule) — callers check
// this themselves before deciding which arena (if any) to insert into.
func (a *Arena[Ident, Payload]) Insert(id Ident, payload Payload) (*Entry[Ident, Payload], error) {
	if _, exists := a.handles[id]; exists {
		return nil, voxelerr.New(voxelerr.KindInvalidPlacement, "arena.Insert: id already present")
	}

	vertexBytes := payload.VertexBytes()
	if len(vertexBytes) == 0 {
		return nil, nil
	}
	indexBytes := payload.IndexBytes()

	vertexAddr, vResized, err := a.vertexPool.Alloc(vertexBytes)
	if err != nil {
		return nil, err
	}
	if vResized {
		a.logger.Printf("vertex pool resized to %d bytes", a.vertexPool.Capacity())
	}
	indexAddr, iResized, err := a.indexPool.Alloc(indexBytes)
	if err != nil {
		a.vertexPool.Free(vertexAddr)
		return nil, err
	}
	if iResized {
		a.logger.Printf("index pool resized to %d bytes", a.indexPool.Capacity())
	}

	entry := &Entry[Ident, Payload]{
		ID:         id,
		Payload:    payload,
		vertexAddr: vertexAddr,
		indexAddr:  indexAddr,
		indexCount: payload.IndexCount(),
		baseVertex: uint32(vertexAddr / a.vertexStride),
		firstIndex: uint32(indexAddr / indexStride),
		slot:       len(a.entries),
	}
	a.entries = append(a.entries, entry)
	a.handles[id] = entry
	return entry, nil
}

// Remove frees id's GPU regions and swap-removes it from the packed
// entry slice; a no-op if id isn't present.
func (a *Arena[Ident, Payload]) Remove(id Ident) error {
	entry, ok := a.handles[id]
	if !ok {
		return nil
	}

	if err := a.vertexPool.Free(entry.vertexAddr); err != nil {
		return err
	}
	if err := a.indexPool.Free(entry.indexAddr); err != nil {
		return err
	}

	last := len(a.entries) - 1
	a.entries[entry.slot] = a.entries[last]
	a.entries[entry.slot].slot = entry.slot
	a.entries = a.entries[:last]
	delete(a.handles, id)
	return nil
}

// Partition performs an in-place Hoare-style two-pointer partition,
// moving every entry whose ID satisfies predicate to the front, and
// returns how many entries now satisfy it. Matches
// original_source's MultiDrawArray::mask exactly, generalised beyond a
// single render-distance/visibility predicate.
func (a *Arena[Ident, Payload]) Partition(predicate func(Ident) bool) int {
	if len(a.entries) == 0 {
		return 0
	}
	left, right := 0, len(a.entries)-1
	for left < right {
		for predicate(a.entries[left].ID) && left < right {
			left++
		}
		for !predicate(a.entries[right].ID) && left < right {
			right--
		}
		if left != right {
			a.swap(left, right)
		}
	}
	if predicate(a.entries[left].ID) {
		left++
	}
	return left
}

// Sort stable-sorts the first count entries by less and renumbers
// their slots to match, per spec.md §4.6 ("stable sort... update
// stable handles to reflect the new positions").
func (a *Arena[Ident, Payload]) Sort(count int, less func(x, y Ident) bool) {
	window := a.entries[:count]
	sort.SliceStable(window, func(i, j int) bool {
		return less(window[i].ID, window[j].ID)
	})
	for i, e := range window {
		e.slot = i
	}
}

// ModifyIndices calls f on each of the first count entries' payloads;
// if f reports the payload changed, its index buffer is re-uploaded.
// An index count that grew beyond its original allocation is rejected
// (logged, left un-uploaded) rather than silently overrunning the
// region — mirroring original_source's identical safety check in
// MultiDrawArray::amend.
func (a *Arena[Ident, Payload]) ModifyIndices(count int, f func(Payload) bool) error {
	for _, e := range a.entries[:count] {
		oldCount := e.indexCount
		if !f(e.Payload) {
			continue
		}
		newCount := e.Payload.IndexCount()
		if newCount > oldCount {
			a.logger.Printf("modified draw command %v grew its index count (%d -> %d); discarding upload", e.ID, oldCount, newCount)
			continue
		}
		addr, _, err := a.indexPool.Realloc(e.indexAddr, e.Payload.IndexBytes())
		if err != nil {
			return err
		}
		e.indexAddr = addr
		e.indexCount = newCount
		e.firstIndex = uint32(addr / indexStride)
	}
	return nil
}

// IndirectCommands builds the first count entries' GPU indirect draw
// commands, ready for glMultiDrawElementsIndirect.
func (a *Arena[Ident, Payload]) IndirectCommands(count int) []openglhelper.DrawElementsIndirectCommand {
	out := make([]openglhelper.DrawElementsIndirectCommand, count)
	for i, e := range a.entries[:count] {
		out[i] = openglhelper.DrawElementsIndirectCommand{
			Count:         uint32(e.indexCount),
			InstanceCount: 1,
			FirstIndex:    e.firstIndex,
			BaseVertex:    int32(e.baseVertex),
			BaseInstance:  0,
		}
	}
	return out
}

func (a *Arena[Ident, Payload]) swap(i, j int) {
	a.entries[i], a.entries[j] = a.entries[j], a.entries[i]
	a.entries[i].slot = i
	a.entries[j].slot = j
}
