package xlnx

import (
	"fmt"
	"sync"
)

// Regs is a window of 32-bit memory-mapped peripheral registers.
type Regs interface {
	Read32(off uint32) uint32
	Write32(off uint32, val uint32)
	Close() error
}

// Mapper maps size bytes of physical address space starting at base.
type Mapper func(base uint64, size int) (Regs, error)

// MemRegs is an in-memory register file. It stands in for real hardware in
// tests; OnWrite lets a test model register side effects such as
// self-clearing reset bits.
type MemRegs struct {
	Base uint64

	mu      sync.Mutex
	regs    map[uint32]uint32
	size    int
	closed  bool
	OnWrite func(m *MemRegs, off, val uint32)
}

// NewMemRegs returns a zeroed register file of size bytes.
func NewMemRegs(base uint64, size int) *MemRegs {
	return &MemRegs{
		Base: base,
		regs: make(map[uint32]uint32),
		size: size,
	}
}

// Read32 implements Regs.
func (m *MemRegs) Read32(off uint32) uint32 {
	m.check(off)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off]
}

// Write32 implements Regs.
func (m *MemRegs) Write32(off, val uint32) {
	m.check(off)
	m.mu.Lock()
	m.regs[off] = val
	hook := m.OnWrite
	m.mu.Unlock()

	if hook != nil {
		hook(m, off, val)
	}
}

// Poke sets a register without triggering OnWrite.
func (m *MemRegs) Poke(off, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[off] = val
}

// Close implements Regs.
func (m *MemRegs) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemRegs) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MemRegs) check(off uint32) {
	if off%4 != 0 || int(off) >= m.size {
		panic(fmt.Sprintf("xlnx: register offset %#x outside %d byte window at %#x", off, m.size, m.Base))
	}
}

// MemMapper returns a Mapper that serves windows from the given register
// files keyed by base address.
func MemMapper(files ...*MemRegs) Mapper {
	byBase := make(map[uint64]*MemRegs, len(files))
	for _, f := range files {
		byBase[f.Base] = f
	}
	return func(base uint64, size int) (Regs, error) {
		f, ok := byBase[base]
		if !ok {
			return nil, fmt.Errorf("no device at %#x", base)
		}
		if size > f.size {
			return nil, fmt.Errorf("window of %d bytes at %#x exceeds device size %d", size, base, f.size)
		}
		return f, nil
	}
}
