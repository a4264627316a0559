package framestore

import (
	"fmt"
	"sync"
	"unsafe"
)

// Heap allocates frame buffers from Go memory. Its addresses are only
// meaningful to simulated peripherals; real DMA engines need a physically
// contiguous allocator such as UDMABuf.
type Heap struct {
	// Limit caps the total bytes handed out; zero means unlimited.
	Limit int

	mu    sync.Mutex
	inUse int
}

// NewHeap returns a heap allocator with the given byte limit.
func NewHeap(limit int) *Heap {
	return &Heap{Limit: limit}
}

type heapBuffer struct {
	data []byte
}

func (b *heapBuffer) Bytes() []byte { return b.data }

func (b *heapBuffer) PhysAddr() uint64 {
	return uint64(uintptr(unsafe.Pointer(unsafe.SliceData(b.data))))
}

// Alloc implements Allocator.
func (h *Heap) Alloc(size int) (Buffer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Limit > 0 && h.inUse+size > h.Limit {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrExhausted, size, h.inUse, h.Limit)
	}
	h.inUse += size
	return &heapBuffer{data: make([]byte, size)}, nil
}

// Free implements Allocator.
func (h *Heap) Free(buf Buffer) error {
	hb, ok := buf.(*heapBuffer)
	if !ok {
		return fmt.Errorf("buffer %T was not allocated by heap", buf)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.inUse -= len(hb.data)
	hb.data = nil
	return nil
}

// InUse returns the number of bytes currently allocated.
func (h *Heap) InUse() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}
