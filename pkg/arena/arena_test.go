package arena

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool is a bump allocator satisfying MemoryPool, letting arena's
// packing logic be tested without a live GPU buffer.
type fakePool struct {
	nextAddr int
	data     map[int][]byte
}

func newFakePool() *fakePool {
	return &fakePool{data: make(map[int][]byte)}
}

func (p *fakePool) Alloc(data []byte) (int, bool, error) {
	addr := p.nextAddr
	buf := append([]byte(nil), data...)
	p.data[addr] = buf
	p.nextAddr += len(data)
	return addr, false, nil
}

func (p *fakePool) Free(addr int) error {
	delete(p.data, addr)
	return nil
}

func (p *fakePool) Realloc(addr int, data []byte) (int, bool, error) {
	if existing, ok := p.data[addr]; ok && len(existing) == len(data) {
		copy(existing, data)
		return addr, false, nil
	}
	p.Free(addr)
	return p.Alloc(data)
}

func (p *fakePool) Capacity() int { return p.nextAddr }

// fakePayload implements IndexedPayload for tests.
type fakePayload struct {
	vertices []byte
	indices  []uint32
}

func newFakePayload(vertexCount int, indices ...uint32) *fakePayload {
	return &fakePayload{vertices: make([]byte, vertexCount*8), indices: append([]uint32(nil), indices...)}
}

func (f *fakePayload) VertexBytes() []byte { return f.vertices }

func (f *fakePayload) IndexBytes() []byte {
	out := make([]byte, len(f.indices)*4)
	for i, v := range f.indices {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func (f *fakePayload) IndexCount() int { return len(f.indices) }

func newTestArena() *Arena[string, *fakePayload] {
	return New[string, *fakePayload](newFakePool(), newFakePool(), 8)
}

func TestInsertComputesBaseVertexAndFirstIndex(t *testing.T) {
	a := newTestArena()
	e, err := a.Insert("chunk-a", newFakePayload(4, 0, 1, 2, 1, 3, 2))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, uint32(0), e.BaseVertex())
	assert.Equal(t, uint32(0), e.FirstIndex())
	assert.Equal(t, uint32(6), e.IndexCount())

	e2, err := a.Insert("chunk-b", newFakePayload(4, 0, 1, 2, 1, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), e2.BaseVertex()) // 32 bytes / 8-byte stride
	assert.Equal(t, uint32(6), e2.FirstIndex())  // 24 bytes / 4-byte stride
}

func TestInsertEmptyVertexDataIsNoop(t *testing.T) {
	a := newTestArena()
	e, err := a.Insert("empty", newFakePayload(0))
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Equal(t, 0, a.Len())
}

func TestInsertDuplicateIDErrors(t *testing.T) {
	a := newTestArena()
	_, err := a.Insert("chunk-a", newFakePayload(1, 0))
	require.NoError(t, err)
	_, err = a.Insert("chunk-a", newFakePayload(1, 0))
	assert.Error(t, err)
}

func TestRemoveSwapsLastEntryIntoFreedSlot(t *testing.T) {
	a := newTestArena()
	_, _ = a.Insert("a", newFakePayload(1, 0))
	_, _ = a.Insert("b", newFakePayload(1, 0))
	_, _ = a.Insert("c", newFakePayload(1, 0))

	require.NoError(t, a.Remove("a"))
	require.Equal(t, 2, a.Len())

	entries := a.Entries(2)
	ids := []string{entries[0].ID, entries[1].ID}
	assert.ElementsMatch(t, []string{"b", "c"}, ids)

	cEntry, ok := a.Get("c")
	require.True(t, ok)
	assert.Equal(t, 0, cEntry.slot) // "c" was swapped into "a"'s freed slot
}

func TestRemoveMissingIDIsNoop(t *testing.T) {
	a := newTestArena()
	assert.NoError(t, a.Remove("nonexistent"))
}

func TestPartitionMovesMatchingToFront(t *testing.T) {
	a := newTestArena()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, _ = a.Insert(id, newFakePayload(1, 0))
	}
	visible := map[string]bool{"b": true, "d": true}

	count := a.Partition(func(id string) bool { return visible[id] })
	assert.Equal(t, 2, count)

	front := a.Entries(count)
	for _, e := range front {
		assert.True(t, visible[e.ID])
	}
}

func TestSortOrdersFirstCountAndRenumbersSlots(t *testing.T) {
	a := newTestArena()
	_, _ = a.Insert("c", newFakePayload(1, 0))
	_, _ = a.Insert("a", newFakePayload(1, 0))
	_, _ = a.Insert("b", newFakePayload(1, 0))

	a.Sort(3, func(x, y string) bool { return x < y })
	entries := a.Entries(3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	for i, e := range entries {
		assert.Equal(t, i, e.slot)
	}
}

func TestModifyIndicesReuploadsOnShrinkOrEqualCount(t *testing.T) {
	a := newTestArena()
	e, _ := a.Insert("chunk", newFakePayload(4, 0, 1, 2, 1, 3, 2))

	changed := a.ModifyIndices(1, func(p *fakePayload) bool {
		p.indices = []uint32{2, 1, 0, 1, 2, 3} // same length, reordered
		return true
	})
	require.NoError(t, changed)
	assert.Equal(t, uint32(6), e.IndexCount())
}

func TestModifyIndicesRejectsGrowth(t *testing.T) {
	a := newTestArena()
	e, _ := a.Insert("chunk", newFakePayload(4, 0, 1, 2))

	err := a.ModifyIndices(1, func(p *fakePayload) bool {
		p.indices = []uint32{0, 1, 2, 3, 4, 5} // grew past original 3
		return true
	})
	require.NoError(t, err)
	// The arena's own bookkeeping must not have accepted the larger count.
	assert.Equal(t, uint32(3), e.IndexCount())
}

func TestModifyIndicesSkipsUnchangedEntries(t *testing.T) {
	a := newTestArena()
	e, _ := a.Insert("chunk", newFakePayload(4, 0, 1, 2))
	originalFirstIndex := e.FirstIndex()

	err := a.ModifyIndices(1, func(p *fakePayload) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, originalFirstIndex, e.FirstIndex())
}

func TestIndirectCommandsReflectsCurrentPlacement(t *testing.T) {
	a := newTestArena()
	_, _ = a.Insert("chunk", newFakePayload(4, 0, 1, 2, 1, 3, 2))

	cmds := a.IndirectCommands(1)
	require.Len(t, cmds, 1)
	assert.Equal(t, uint32(6), cmds[0].Count)
	assert.Equal(t, uint32(1), cmds[0].InstanceCount)
}
