//go:build !linux

package framestore

import (
	"errors"
	"runtime"
)

// UDMABuf is only available on Linux.
type UDMABuf struct{}

// OpenUDMABuf always fails off Linux.
func OpenUDMABuf(string) (*UDMABuf, error) {
	return nil, errors.New("u-dma-buf not supported on " + runtime.GOOS)
}

// Alloc implements Allocator.
func (u *UDMABuf) Alloc(int) (Buffer, error) {
	return nil, errors.New("u-dma-buf not supported on " + runtime.GOOS)
}

// Free implements Allocator.
func (u *UDMABuf) Free(Buffer) error {
	return nil
}

// Close is a no-op.
func (u *UDMABuf) Close() error {
	return nil
}
