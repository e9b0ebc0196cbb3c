// Package gpu implements a best-fit sub-allocator over one GPU buffer,
// so many small, variably-sized uploads (one per chunk's mesh) can
// share a single backing gl.Buffer instead of one buffer each.
//
// Grounded directly on
// original_source/Engine/src/Engine/Renderer/MemoryPool.h/.cpp, backed
// by the teacher's internal/openglhelper.BufferObject for the actual
// gl.BufferData/gl.BufferSubData calls.
package gpu

import (
	"log"
	"os"
	"unsafe"

	"github.com/ashgrove/voxelcore/internal/openglhelper"
)

var logger = log.New(os.Stderr, "[gpu] ", log.LstdFlags)

// Pool is a best-fit sub-allocator over one GPU buffer. Its address
// bookkeeping lives in allocator; Pool itself only does the actual GL
// calls around it.
type Pool struct {
	alloc *allocator

	buffer     *openglhelper.BufferObject
	bufferType uint32
	usage      openglhelper.BufferUsage
}

// NewPool creates a pool backed by a single buffer of bufferType
// (e.g. gl.ARRAY_BUFFER, gl.ELEMENT_ARRAY_BUFFER), starting at
// initialCapacity bytes, entirely free.
func NewPool(bufferType uint32, usage openglhelper.BufferUsage, initialCapacity int) *Pool {
	if initialCapacity <= 0 {
		initialCapacity = 64
	}
	return &Pool{
		alloc:      newAllocator(initialCapacity),
		buffer:     openglhelper.NewBufferObject(bufferType, initialCapacity, nil, usage),
		bufferType: bufferType,
		usage:      usage,
	}
}

// Buffer returns the backing buffer object, for binding into a VAO.
func (p *Pool) Buffer() *openglhelper.BufferObject {
	return p.buffer
}

// Capacity returns the buffer's current size in bytes.
func (p *Pool) Capacity() int {
	return p.alloc.capacity
}

// Alloc uploads data into the smallest free region that fits it
// (growing the buffer first if none exists) and returns the byte
// address of the new allocation plus whether the buffer was resized.
// Per spec.md §4.5 step 1, empty data is a defined no-op (address 0,
// resized false, no error) rather than a rejected precondition.
func (p *Pool) Alloc(data []byte) (address int, resized bool, err error) {
	if len(data) == 0 {
		return 0, false, nil
	}

	address, resized, newCapacity, err := p.alloc.alloc(len(data))
	if err != nil {
		return 0, false, err
	}

	if resized {
		p.resizeBuffer(newCapacity)
	}

	p.buffer.Bind()
	p.buffer.UpdateSubData(address, len(data), unsafe.Pointer(&data[0]))
	return address, resized, nil
}

// Free releases the allocation at addr, coalescing with an adjoining
// free region on either side.
func (p *Pool) Free(addr int) error {
	freedAddress, freedSize, err := p.alloc.free(addr)
	if err != nil {
		return err
	}
	logger.Printf("freed region address=%d size=%d", freedAddress, freedSize)
	return nil
}

// Realloc overwrites the allocation at addr in place if data is the
// same size, otherwise frees it and allocates anew (spec.md §4.5).
func (p *Pool) Realloc(addr int, data []byte) (address int, resized bool, err error) {
	if size, ok := p.alloc.sizeAt(addr); ok && size == len(data) {
		if len(data) > 0 {
			p.buffer.Bind()
			p.buffer.UpdateSubData(addr, len(data), unsafe.Pointer(&data[0]))
		}
		return addr, false, nil
	}
	if err := p.Free(addr); err != nil {
		return 0, false, err
	}
	return p.Alloc(data)
}

// resizeBuffer swaps in a new, larger backing buffer and blits the old
// buffer's full byte range onto it, preserving every live allocation.
func (p *Pool) resizeBuffer(newCapacity int) {
	resized := openglhelper.NewBufferObject(p.bufferType, newCapacity, nil, p.usage)
	openglhelper.CopyBufferSubData(p.buffer, resized, 0, 0, p.buffer.Size)
	p.buffer.Delete()
	p.buffer = resized
	logger.Printf("grew pool to capacity=%d bytes", newCapacity)
}
