package xlnx

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testVDMABase = 0x43000000
	testGPIOBase = 0x41200000
	testVTCBase  = 0x43C10000
)

// fakeHardware wires register files together so that the VDMA reset bit
// self-clears and the halted bit follows run/stop.
type fakeHardware struct {
	vdma, gpio, vtc *MemRegs
}

func newFakeHardware() *fakeHardware {
	hw := &fakeHardware{
		vdma: NewMemRegs(testVDMABase, vdmaWindow),
		gpio: NewMemRegs(testGPIOBase, gpioWindow),
		vtc:  NewMemRegs(testVTCBase, vtcWindow),
	}
	hw.vdma.Poke(vdmaVersion, 0x62000050)
	hw.vdma.Poke(vdmaS2MMSR, srHalted)
	hw.vdma.OnWrite = func(m *MemRegs, off, val uint32) {
		if off != vdmaS2MMCR {
			return
		}
		if val&crReset != 0 {
			m.Poke(vdmaS2MMCR, val&^crReset)
		}
		if val&crRunStop != 0 {
			m.Poke(vdmaS2MMSR, 0)
		} else {
			m.Poke(vdmaS2MMSR, srHalted)
		}
	}
	return hw
}

func (hw *fakeHardware) setSignal(width, height int) {
	hw.vtc.Poke(vtcDetActive, uint32(height)<<16|uint32(width))
	hw.vtc.Poke(vtcDetStatus, vtcStatusLocked)
}

func (hw *fakeHardware) newDriver() *Driver {
	return NewDriver(DriverOptions{
		Mapper:       MemMapper(hw.vdma, hw.gpio, hw.vtc),
		PollInterval: time.Microsecond,
		LockTimeout:  5 * time.Millisecond,
		ResetTimeout: time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func testAddrs() []uint64 {
	return []uint64{0x10000000, 0x10600000, 0x10C00000}
}

func configure(t *testing.T, hw *fakeHardware) *Driver {
	t.Helper()
	d := hw.newDriver()
	status := d.Configure(DefaultDMAConfig(testVDMABase), DefaultGPIOConfig(testGPIOBase), testVTCBase, testAddrs(), 5760)
	if status != StatusSuccess {
		t.Fatalf("Configure() = %v, want success", status)
	}
	return d
}

func TestDriver_Configure(t *testing.T) {
	hw := newFakeHardware()
	d := configure(t, hw)

	if got := hw.vdma.Read32(vdmaS2MMFrmStore); got != 3 {
		t.Errorf("FRMSTORE = %d, want 3", got)
	}
	for i, a := range testAddrs() {
		if got := hw.vdma.Read32(uint32(vdmaS2MMAddr + 4*i)); got != uint32(a) {
			t.Errorf("START_ADDRESS%d = %#x, want %#x", i+1, got, a)
		}
	}
	if d.ActiveBuffer() != 0 {
		t.Errorf("ActiveBuffer() = %d, want 0", d.ActiveBuffer())
	}
	if d.Status() != StateStopped {
		t.Errorf("Status() = %v, want stopped", d.Status())
	}
	if hw.gpio.Read32(gpioTri)&1 != 0 {
		t.Error("reset line not configured as output")
	}
	if hw.gpio.Read32(gpioData)&1 != 0 {
		t.Error("reset line should be asserted after Configure")
	}

	if status := d.Configure(DefaultDMAConfig(testVDMABase), DefaultGPIOConfig(testGPIOBase), testVTCBase, testAddrs(), 5760); status != StatusDeviceBusy {
		t.Errorf("second Configure() = %v, want device busy", status)
	}
}

func TestDriver_ConfigureFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(dma *DMAConfig, gpio *GPIOConfig, vtc *uint64, addrs *[]uint64, stride *int)
		want   Status
	}{
		{
			name:   "too many frames",
			mutate: func(dma *DMAConfig, _ *GPIOConfig, _ *uint64, _ *[]uint64, _ *int) { dma.NumFrameStores = 2 },
			want:   StatusInvalidParam,
		},
		{
			name:   "zero stride",
			mutate: func(_ *DMAConfig, _ *GPIOConfig, _ *uint64, _ *[]uint64, stride *int) { *stride = 0 },
			want:   StatusInvalidParam,
		},
		{
			name:   "stride below max width",
			mutate: func(_ *DMAConfig, _ *GPIOConfig, _ *uint64, _ *[]uint64, stride *int) { *stride = 1024 },
			want:   StatusInvalidParam,
		},
		{
			name:   "missing vtc",
			mutate: func(_ *DMAConfig, _ *GPIOConfig, vtc *uint64, _ *[]uint64, _ *int) { *vtc = 0x43C20000 },
			want:   StatusDeviceNotFound,
		},
		{
			name:   "missing vdma",
			mutate: func(dma *DMAConfig, _ *GPIOConfig, _ *uint64, _ *[]uint64, _ *int) { dma.BaseAddress = 0x44000000 },
			want:   StatusDeviceNotFound,
		},
		{
			name: "64-bit address on 32-bit core",
			mutate: func(_ *DMAConfig, _ *GPIOConfig, _ *uint64, addrs *[]uint64, _ *int) {
				*addrs = []uint64{0x1_0000_0000}
			},
			want: StatusInvalidParam,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := newFakeHardware()
			d := hw.newDriver()

			dma, gpio := DefaultDMAConfig(testVDMABase), DefaultGPIOConfig(testGPIOBase)
			vtc, addrs, stride := uint64(testVTCBase), testAddrs(), 5760
			tt.mutate(&dma, &gpio, &vtc, &addrs, &stride)

			if got := d.Configure(dma, gpio, vtc, addrs, stride); got != tt.want {
				t.Errorf("Configure() = %v, want %v", got, tt.want)
			}
			if err := d.Start(); !errors.Is(err, ErrNotConfigured) {
				t.Errorf("Start() after failed Configure = %v, want ErrNotConfigured", err)
			}
		})
	}
}

func TestDriver_ConfigureResetTimeout(t *testing.T) {
	hw := newFakeHardware()
	hw.vdma.OnWrite = nil // reset bit never clears

	d := hw.newDriver()
	if got := d.Configure(DefaultDMAConfig(testVDMABase), DefaultGPIOConfig(testGPIOBase), testVTCBase, testAddrs(), 5760); got != StatusFailure {
		t.Errorf("Configure() = %v, want failure", got)
	}
	if !hw.vdma.Closed() {
		t.Error("VDMA window not unmapped after failed Configure")
	}
}

func TestDriver_StartStop(t *testing.T) {
	hw := newFakeHardware()
	hw.setSignal(1280, 720)
	d := configure(t, hw)

	if err := d.SetActiveBuffer(2); err != nil {
		t.Fatalf("SetActiveBuffer() error = %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if d.Status() != StateRunning {
		t.Errorf("Status() = %v, want running", d.Status())
	}
	if got := hw.vdma.Read32(vdmaS2MMHSize); got != 1280*3 {
		t.Errorf("HSIZE = %d, want %d", got, 1280*3)
	}
	if got := hw.vdma.Read32(vdmaS2MMVSize); got != 720 {
		t.Errorf("VSIZE = %d, want 720", got)
	}
	if got := hw.vdma.Read32(vdmaS2MMDlyStride); got != 5760 {
		t.Errorf("STRIDE = %d, want 5760", got)
	}
	if cr := hw.vdma.Read32(vdmaS2MMCR); cr&crCircularPark != 0 {
		t.Error("channel not in park mode")
	}
	if d.ActiveBuffer() != 2 {
		t.Errorf("ActiveBuffer() = %d, want 2", d.ActiveBuffer())
	}
	if !(&GPIO{regs: hw.gpio, data: gpioData, mask: 1}).Released() {
		t.Error("reset line still asserted while running")
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if d.Status() != StateStopped {
		t.Errorf("Status() = %v, want stopped", d.Status())
	}
}

func TestDriver_StartNoSignal(t *testing.T) {
	hw := newFakeHardware()
	d := configure(t, hw)

	if err := d.Start(); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("Start() error = %v, want ErrNoSignal", err)
	}
	if d.Status() != StateStopped {
		t.Errorf("Status() = %v, want stopped", d.Status())
	}
}

func TestDriver_StartOversizedFrame(t *testing.T) {
	hw := newFakeHardware()
	hw.setSignal(3840, 2160)
	d := configure(t, hw)

	if err := d.Start(); err == nil {
		t.Fatal("Start() with frame wider than stride should fail")
	}
}

func TestDriver_ProbeTimingTracksSignal(t *testing.T) {
	hw := newFakeHardware()
	d := configure(t, hw)

	timing, err := d.ProbeTiming()
	if err != nil {
		t.Fatalf("ProbeTiming() error = %v", err)
	}
	if timing.Valid() {
		t.Errorf("ProbeTiming() without lock = %v, want zero", timing)
	}

	hw.setSignal(1920, 1080)
	if timing, _ = d.ProbeTiming(); timing != (Timing{Width: 1920, Height: 1080}) {
		t.Errorf("ProbeTiming() = %v, want 1920x1080", timing)
	}

	hw.setSignal(640, 480)
	if timing, _ = d.ProbeTiming(); timing != (Timing{Width: 640, Height: 480}) {
		t.Errorf("ProbeTiming() after format change = %v, want 640x480", timing)
	}
}

func TestDriver_SetActiveBufferRange(t *testing.T) {
	hw := newFakeHardware()
	d := configure(t, hw)

	if err := d.SetActiveBuffer(3); err == nil {
		t.Error("SetActiveBuffer(3) with 3 frames should fail")
	}
	if err := d.SetActiveBuffer(-1); err == nil {
		t.Error("SetActiveBuffer(-1) should fail")
	}
}

func TestDriver_Teardown(t *testing.T) {
	hw := newFakeHardware()
	hw.setSignal(1920, 1080)
	d := configure(t, hw)

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}

	if !hw.vdma.Closed() || !hw.gpio.Closed() || !hw.vtc.Closed() {
		t.Error("register windows not closed")
	}
	if hw.vdma.Read32(vdmaS2MMSR)&srHalted == 0 {
		t.Error("VDMA not halted by Teardown")
	}
	if hw.gpio.Read32(gpioData)&1 != 0 {
		t.Error("reset line not asserted by Teardown")
	}
	if err := d.Teardown(); err != nil {
		t.Errorf("second Teardown() error = %v", err)
	}
}

func TestDriver_TeardownStuckHaltKeepsMappings(t *testing.T) {
	hw := newFakeHardware()
	hw.setSignal(1920, 1080)
	d := configure(t, hw)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The channel ignores run/stop clears until unstuck
	var stuck atomic.Bool
	stuck.Store(true)
	healthy := hw.vdma.OnWrite
	hw.vdma.OnWrite = func(m *MemRegs, off, val uint32) {
		if off == vdmaS2MMCR && val&crRunStop == 0 && stuck.Load() {
			return
		}
		healthy(m, off, val)
	}

	err := d.Teardown()
	if !errors.Is(err, errHaltTimeout) {
		t.Fatalf("Teardown() error = %v, want halt timeout", err)
	}
	if hw.vdma.Closed() || hw.gpio.Closed() || hw.vtc.Closed() {
		t.Error("register windows unmapped while the channel is running")
	}
	if d.Status() != StateRunning {
		t.Errorf("Status() = %v, want running", d.Status())
	}
	if err := d.Teardown(); err == nil {
		t.Fatal("retried Teardown() reported success with the channel still running")
	}

	stuck.Store(false)
	if err := d.Teardown(); err != nil {
		t.Fatalf("Teardown() after recovery error = %v", err)
	}
	if !hw.vdma.Closed() {
		t.Error("register windows not closed after recovery")
	}
	if hw.vdma.Read32(vdmaS2MMSR)&srHalted == 0 {
		t.Error("VDMA not halted")
	}
}

func TestConfigValidate(t *testing.T) {
	dma := DefaultDMAConfig(testVDMABase)
	if err := dma.Validate(3); err != nil {
		t.Errorf("default DMA config invalid: %v", err)
	}
	gpio := DefaultGPIOConfig(testGPIOBase)
	if err := gpio.Validate(); err != nil {
		t.Errorf("default GPIO config invalid: %v", err)
	}

	dmaCases := map[string]func(c *DMAConfig){
		"zero base":      func(c *DMAConfig) { c.BaseAddress = 0 },
		"unaligned base": func(c *DMAConfig) { c.BaseAddress = 0x43000002 },
		"no s2mm":        func(c *DMAConfig) { c.HasS2MM = false },
		"few fstores":    func(c *DMAConfig) { c.NumFrameStores = 2 },
		"many fstores":   func(c *DMAConfig) { c.NumFrameStores = 17 },
		"odd width":      func(c *DMAConfig) { c.S2MMDataWidth = 24 },
		"addr width":     func(c *DMAConfig) { c.AddrWidth = 48 },
		"genlock":        func(c *DMAConfig) { c.S2MMGenLockMode = 9 },
	}
	for name, mutate := range dmaCases {
		c := DefaultDMAConfig(testVDMABase)
		mutate(&c)
		if err := c.Validate(3); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidConfig", name, err)
		}
	}

	gpioCases := map[string]func(c *GPIOConfig){
		"zero base":        func(c *GPIOConfig) { c.BaseAddress = 0 },
		"unaligned base":   func(c *GPIOConfig) { c.BaseAddress = 0x41200001 },
		"bad channel":      func(c *GPIOConfig) { c.ResetChannel = 3 },
		"channel 2 single": func(c *GPIOConfig) { c.ResetChannel = 2 },
		"zero mask":        func(c *GPIOConfig) { c.ResetMask = 0 },
	}
	for name, mutate := range gpioCases {
		c := DefaultGPIOConfig(testGPIOBase)
		mutate(&c)
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidConfig", name, err)
		}
	}
}
