//go:build linux

package framestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

const udmabufClassPath = "/sys/class/u-dma-buf"

// UDMABuf carves frame buffers out of a physically contiguous region
// exported by the u-dma-buf kernel module (/dev/udmabufN).
//
// Allocation is a bump pointer. The mapping is only torn down once every
// buffer handed out has been freed.
type UDMABuf struct {
	name     string
	mem      []byte
	physBase uint64
	align    int

	mu          sync.Mutex
	next        int
	outstanding int
}

type udmaBuffer struct {
	data []byte
	phys uint64
}

func (b *udmaBuffer) Bytes() []byte    { return b.data }
func (b *udmaBuffer) PhysAddr() uint64 { return b.phys }

// OpenUDMABuf maps the named u-dma-buf device, e.g. "udmabuf0".
func OpenUDMABuf(name string) (*UDMABuf, error) {
	sysPath := filepath.Join(udmabufClassPath, name)

	physBase, err := readSysfsUint(filepath.Join(sysPath, "phys_addr"))
	if err != nil {
		return nil, fmt.Errorf("read %s phys_addr: %w", name, err)
	}
	size, err := readSysfsUint(filepath.Join(sysPath, "size"))
	if err != nil {
		return nil, fmt.Errorf("read %s size: %w", name, err)
	}

	fd, err := unix.Open("/dev/"+name, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/%s: %w", name, err)
	}
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap /dev/%s: %w", name, err)
	}

	return &UDMABuf{
		name:     name,
		mem:      mem,
		physBase: physBase,
		align:    os.Getpagesize(),
	}, nil
}

// Alloc implements Allocator.
func (u *UDMABuf) Alloc(size int) (Buffer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.mem == nil {
		return nil, fmt.Errorf("%s: region closed", u.name)
	}

	start := (u.next + u.align - 1) &^ (u.align - 1)
	if start+size > len(u.mem) {
		return nil, fmt.Errorf("%w: %s has %d bytes free, %d requested", ErrExhausted, u.name, len(u.mem)-start, size)
	}
	u.next = start + size
	u.outstanding++

	return &udmaBuffer{
		data: u.mem[start : start+size : start+size],
		phys: u.physBase + uint64(start),
	}, nil
}

// Free implements Allocator.
func (u *UDMABuf) Free(buf Buffer) error {
	if _, ok := buf.(*udmaBuffer); !ok {
		return fmt.Errorf("buffer %T was not allocated by %s", buf, u.name)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.outstanding--
	if u.outstanding > 0 {
		return nil
	}
	u.next = 0
	return nil
}

// Close unmaps the region. Buffers still in use become invalid.
func (u *UDMABuf) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.mem == nil {
		return nil
	}
	err := unix.Munmap(u.mem)
	u.mem = nil
	return err
}

// readSysfsUint parses a decimal or 0x-prefixed hex value from a sysfs file.
func readSysfsUint(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 0, 64)
}
