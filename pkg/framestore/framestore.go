// Package framestore manages the fixed ring of frame buffers that the video DMA
// engine writes captured frames into.
//
// A Store is created by Allocate and holds count buffers of a fixed byte
// capacity, addressed by index. Buffers are handed to readers only through
// View, which never exposes the underlying slice for writing.
package framestore

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrExhausted is returned when an allocator cannot satisfy a request.
var ErrExhausted = errors.New("frame buffer memory exhausted")

// ErrReleased is returned when a released store is accessed.
var ErrReleased = errors.New("frame store released")

// Buffer is a single DMA-capable memory region.
type Buffer interface {
	// Bytes returns the CPU mapping of the buffer.
	Bytes() []byte
	// PhysAddr returns the bus address the DMA engine should write to.
	PhysAddr() uint64
}

// Allocator hands out frame buffers one at a time.
type Allocator interface {
	Alloc(size int) (Buffer, error)
	Free(buf Buffer) error
}

// Store is a fixed-size ring of frame buffers.
type Store struct {
	alloc    Allocator
	buffers  []Buffer
	size     int
	mu       sync.Mutex
	released bool
}

// Allocate creates a store of count buffers with size bytes each.
// If any allocation fails, buffers that were already allocated are freed
// before the error is returned.
func Allocate(a Allocator, count, size int) (*Store, error) {
	if a == nil {
		return nil, errors.New("framestore: nil allocator")
	}
	if count <= 0 || size <= 0 {
		return nil, fmt.Errorf("framestore: invalid geometry %d x %d bytes", count, size)
	}

	buffers := make([]Buffer, 0, count)
	for i := 0; i < count; i++ {
		buf, err := a.Alloc(size)
		if err != nil {
			for _, b := range buffers {
				_ = a.Free(b)
			}
			if errors.Is(err, ErrExhausted) {
				return nil, fmt.Errorf("allocate buffer %d of %d: %w", i, count, err)
			}
			return nil, fmt.Errorf("allocate buffer %d of %d: %w: %w", i, count, ErrExhausted, err)
		}
		buffers = append(buffers, buf)
	}

	return &Store{
		alloc:   a,
		buffers: buffers,
		size:    size,
	}, nil
}

// Len returns the number of buffers in the store.
func (s *Store) Len() int {
	return len(s.buffers)
}

// Size returns the byte capacity of each buffer.
func (s *Store) Size() int {
	return s.size
}

// Addrs returns the bus addresses of all buffers in index order.
func (s *Store) Addrs() []uint64 {
	addrs := make([]uint64, len(s.buffers))
	for i, b := range s.buffers {
		addrs[i] = b.PhysAddr()
	}
	return addrs
}

// View returns a read-only view of the buffer at index.
func (s *Store) View(index int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return View{}, ErrReleased
	}
	if index < 0 || index >= len(s.buffers) {
		return View{}, fmt.Errorf("buffer index %d out of range [0,%d]", index, len(s.buffers)-1)
	}
	return View{index: index, data: s.buffers[index].Bytes()[:s.size]}, nil
}

// Released reports whether Release has been called.
func (s *Store) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Release returns every buffer to the allocator. It is safe to call more
// than once; only the first call frees memory.
func (s *Store) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	var errs []error
	for i, b := range s.buffers {
		if err := s.alloc.Free(b); err != nil {
			errs = append(errs, fmt.Errorf("free buffer %d: %w", i, err))
		}
	}
	s.buffers = nil
	return errors.Join(errs...)
}

// View is a read-only window onto one frame buffer.
// The contents may change underneath the view while DMA is writing to the
// buffer; readers that need a stable frame must read buffers that are not
// armed for capture.
type View struct {
	index int
	data  []byte
}

// Index returns the buffer index the view refers to.
func (v View) Index() int {
	return v.index
}

// Len returns the byte length of the view.
func (v View) Len() int {
	return len(v.data)
}

// At returns the byte at offset i.
func (v View) At(i int) byte {
	return v.data[i]
}

// CopyTo copies the frame into dst and returns the number of bytes copied.
func (v View) CopyTo(dst []byte) int {
	return copy(dst, v.data)
}

// Reader returns an io.Reader over the frame contents.
func (v View) Reader() io.Reader {
	return &viewReader{data: v.data}
}

type viewReader struct {
	data []byte
	off  int
}

func (r *viewReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}
