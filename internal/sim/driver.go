// Package sim provides an in-memory capture peripheral. It behaves like
// the hardware driver closely enough to exercise the controller, the
// service and the API without an FPGA: a settable input signal, a DMA
// engine that paints test frames into the armed buffer, and hooks to
// inject driver failures.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/smazurov/vcapture/pkg/framestore"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// ErrNotConfigured mirrors the hardware driver's error for calls made
// before Configure.
var ErrNotConfigured = xlnx.ErrNotConfigured

// Calls counts driver invocations.
type Calls struct {
	Configure       int
	SetActiveBuffer int
	ProbeTiming     int
	Start           int
	Stop            int
	Teardown        int
}

// Driver is a simulated capture peripheral.
type Driver struct {
	// Memory resolves buffer addresses for the simulated DMA engine. Frames
	// are only painted when set.
	Memory *Memory

	// Failure injection. ConfigureStatus is returned by Configure when
	// nonzero; the errors are returned by the matching calls.
	ConfigureStatus xlnx.Status
	StartErr        error
	StopErr         error
	SetActiveErr    error
	TeardownErr     error

	mu         sync.Mutex
	configured bool
	addrs      []uint64
	stride     int
	active     int
	state      xlnx.State
	signal     xlnx.Timing
	frames     uint64
	calls      Calls
}

// NewDriver returns a simulated driver with a 1920x1080 input signal.
func NewDriver(mem *Memory) *Driver {
	return &Driver{
		Memory: mem,
		signal: xlnx.Timing{Width: 1920, Height: 1080},
	}
}

// SetSignal changes the format of the simulated video source. A zero
// timing models a disconnected source.
func (d *Driver) SetSignal(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signal = xlnx.Timing{Width: width, Height: height}
}

// Calls returns a snapshot of the call counters.
func (d *Driver) Calls() Calls {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Configure implements capture.Driver.
func (d *Driver) Configure(dma xlnx.DMAConfig, _ xlnx.GPIOConfig, _ uint64, addrs []uint64, stride int) xlnx.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls.Configure++
	if d.ConfigureStatus != xlnx.StatusSuccess {
		return d.ConfigureStatus
	}
	if d.configured {
		return xlnx.StatusDeviceBusy
	}
	if len(addrs) == 0 || len(addrs) > dma.NumFrameStores || stride <= 0 {
		return xlnx.StatusInvalidParam
	}

	d.addrs = append([]uint64(nil), addrs...)
	d.stride = stride
	d.active = 0
	d.state = xlnx.StateStopped
	d.configured = true
	return xlnx.StatusSuccess
}

// SetActiveBuffer implements capture.Driver.
func (d *Driver) SetActiveBuffer(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls.SetActiveBuffer++
	if !d.configured {
		return ErrNotConfigured
	}
	if d.SetActiveErr != nil {
		return d.SetActiveErr
	}
	if index < 0 || index >= len(d.addrs) {
		return fmt.Errorf("frame %d not programmed (have %d)", index, len(d.addrs))
	}
	d.active = index
	return nil
}

// ActiveBuffer implements capture.Driver.
func (d *Driver) ActiveBuffer() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// ProbeTiming implements capture.Driver.
func (d *Driver) ProbeTiming() (xlnx.Timing, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls.ProbeTiming++
	if !d.configured {
		return xlnx.Timing{}, ErrNotConfigured
	}
	return d.signal, nil
}

// Start implements capture.Driver.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls.Start++
	if !d.configured {
		return ErrNotConfigured
	}
	if d.StartErr != nil {
		return d.StartErr
	}
	if !d.signal.Valid() {
		return xlnx.ErrNoSignal
	}
	d.state = xlnx.StateRunning
	return nil
}

// Stop implements capture.Driver.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls.Stop++
	if !d.configured {
		return ErrNotConfigured
	}
	if d.StopErr != nil {
		return d.StopErr
	}
	d.state = xlnx.StateStopped
	return nil
}

// Status implements capture.Driver.
func (d *Driver) Status() xlnx.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Teardown implements capture.Driver.
func (d *Driver) Teardown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls.Teardown++
	if d.TeardownErr != nil {
		return d.TeardownErr
	}
	d.configured = false
	d.state = xlnx.StateStopped
	d.addrs = nil
	return nil
}

// Configured reports whether the driver holds a configuration.
func (d *Driver) Configured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

// Frames returns the number of frames written by Tick.
func (d *Driver) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Tick emulates one DMA frame transfer into the armed buffer. It is a
// no-op unless the driver is running with a valid signal.
func (d *Driver) Tick() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != xlnx.StateRunning || !d.signal.Valid() {
		return nil
	}
	if d.Memory == nil {
		d.frames++
		return nil
	}

	buf, ok := d.Memory.Lookup(d.addrs[d.active])
	if !ok {
		return fmt.Errorf("no buffer mapped at %#x", d.addrs[d.active])
	}
	if err := Paint(buf, d.signal, d.stride, d.frames); err != nil {
		return err
	}
	d.frames++
	return nil
}

// Paint writes a color bar pattern, shifted by seq, into buf.
func Paint(buf []byte, t xlnx.Timing, stride int, seq uint64) error {
	lineBytes := t.Width * xlnx.BytesPerPixel
	if lineBytes > stride {
		return fmt.Errorf("line of %d bytes exceeds stride %d", lineBytes, stride)
	}
	if t.Height*stride > len(buf) {
		return errors.New("frame does not fit buffer")
	}

	bars := [8][3]byte{
		{255, 255, 255}, {255, 255, 0}, {0, 255, 255}, {0, 255, 0},
		{255, 0, 255}, {255, 0, 0}, {0, 0, 255}, {0, 0, 0},
	}
	barWidth := t.Width / len(bars)
	if barWidth == 0 {
		barWidth = 1
	}
	shift := int(seq % uint64(t.Width))

	for y := 0; y < t.Height; y++ {
		row := buf[y*stride : y*stride+lineBytes]
		for x := 0; x < t.Width; x++ {
			bar := ((x + shift) % t.Width) / barWidth % len(bars)
			copy(row[x*xlnx.BytesPerPixel:], bars[bar][:])
		}
	}
	return nil
}

// Memory is a framestore.Allocator whose buffers the simulated DMA
// engine can find again by address.
type Memory struct {
	heap *framestore.Heap

	mu     sync.Mutex
	byAddr map[uint64][]byte
	allocs int
	frees  int
}

// NewMemory returns simulated DMA memory capped at limit bytes (0 for no cap).
func NewMemory(limit int) *Memory {
	return &Memory{
		heap:   framestore.NewHeap(limit),
		byAddr: make(map[uint64][]byte),
	}
}

// Alloc implements framestore.Allocator.
func (m *Memory) Alloc(size int) (framestore.Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allocs++
	buf, err := m.heap.Alloc(size)
	if err != nil {
		return nil, err
	}
	m.byAddr[buf.PhysAddr()] = buf.Bytes()
	return buf, nil
}

// Free implements framestore.Allocator.
func (m *Memory) Free(buf framestore.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frees++
	delete(m.byAddr, buf.PhysAddr())
	return m.heap.Free(buf)
}

// Lookup returns the buffer mapped at addr.
func (m *Memory) Lookup(addr uint64) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byAddr[addr]
	return b, ok
}

// Counts returns the number of Alloc and Free calls.
func (m *Memory) Counts() (allocs, frees int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocs, m.frees
}

// InUse returns the bytes currently allocated.
func (m *Memory) InUse() int {
	return m.heap.InUse()
}
