//go:build linux

package xlnx

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const devMemPath = "/dev/mem"

// devMem is a register window mapped from /dev/mem.
type devMem struct {
	mem    []byte
	offset int // base - page aligned base
	size   int
}

// DevMemMapper maps peripheral registers through /dev/mem. It requires
// root or CAP_SYS_RAWIO.
func DevMemMapper(base uint64, size int) (Regs, error) {
	fd, err := unix.Open(devMemPath, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devMemPath, err)
	}
	defer unix.Close(fd)

	page := uint64(os.Getpagesize())
	aligned := base &^ (page - 1)
	offset := int(base - aligned)

	mem, err := unix.Mmap(fd, int64(aligned), offset+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x (+%d): %w", base, size, err)
	}

	return &devMem{mem: mem, offset: offset, size: size}, nil
}

func (d *devMem) addr(off uint32) *uint32 {
	if off%4 != 0 || int(off) >= d.size {
		panic(fmt.Sprintf("xlnx: register offset %#x outside %d byte window", off, d.size))
	}
	return (*uint32)(unsafe.Pointer(&d.mem[d.offset+int(off)]))
}

func (d *devMem) Read32(off uint32) uint32 {
	return atomic.LoadUint32(d.addr(off))
}

func (d *devMem) Write32(off, val uint32) {
	atomic.StoreUint32(d.addr(off), val)
}

func (d *devMem) Close() error {
	if d.mem == nil {
		return nil
	}
	err := unix.Munmap(d.mem)
	d.mem = nil
	return err
}
