package capture

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/vcapture/internal/sim"
	"github.com/smazurov/vcapture/pkg/framestore"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

func testConfig() Config {
	return Config{
		DMA:            xlnx.DefaultDMAConfig(0x43000000),
		GPIO:           xlnx.DefaultGPIOConfig(0x41200000),
		VTCBaseAddress: 0x43C10000,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T) (*Controller, *sim.Driver, *sim.Memory) {
	t.Helper()
	mem := sim.NewMemory(0)
	drv := sim.NewDriver(mem)
	c, err := New(drv, testConfig(), Options{Allocator: mem, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, drv, mem
}

func TestNew(t *testing.T) {
	c, drv, mem := newTestController(t)

	if c.FrameIndex() != 0 {
		t.Errorf("FrameIndex() = %d, want 0", c.FrameIndex())
	}
	if c.State() != xlnx.StateStopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}
	if c.FrameStore().Len() != FrameCount {
		t.Errorf("FrameStore().Len() = %d, want %d", c.FrameStore().Len(), FrameCount)
	}
	if c.FrameStore().Size() != MaxFrameSize {
		t.Errorf("FrameStore().Size() = %d, want %d", c.FrameStore().Size(), MaxFrameSize)
	}
	if drv.Calls().Configure != 1 {
		t.Errorf("Configure calls = %d, want 1", drv.Calls().Configure)
	}
	if mem.InUse() != FrameCount*MaxFrameSize {
		t.Errorf("InUse() = %d, want %d", mem.InUse(), FrameCount*MaxFrameSize)
	}
}

func TestNew_InvalidArguments(t *testing.T) {
	mem := sim.NewMemory(0)

	if _, err := New(nil, testConfig(), Options{Allocator: mem, Logger: testLogger()}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("New(nil driver) error = %v, want ErrInvalidArgument", err)
	}

	tests := map[string]func(c *Config){
		"zero vtc":      func(c *Config) { c.VTCBaseAddress = 0 },
		"unaligned vtc": func(c *Config) { c.VTCBaseAddress = 0x43C10002 },
		"no s2mm":       func(c *Config) { c.DMA.HasS2MM = false },
		"gpio mask":     func(c *Config) { c.GPIO.ResetMask = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			drv := sim.NewDriver(mem)

			_, err := New(drv, cfg, Options{Allocator: mem, Logger: testLogger()})
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("New() error = %v, want ErrInvalidArgument", err)
			}
			if !errors.Is(err, xlnx.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want wrapped ErrInvalidConfig", err)
			}
			if drv.Calls().Configure != 0 {
				t.Error("driver configured despite invalid config")
			}
		})
	}

	if allocs, _ := mem.Counts(); allocs != 0 {
		t.Errorf("allocs = %d, want 0", allocs)
	}
}

func TestNew_DriverFailureReleasesBuffers(t *testing.T) {
	mem := sim.NewMemory(0)
	drv := sim.NewDriver(mem)
	drv.ConfigureStatus = xlnx.StatusDeviceNotFound

	c, err := New(drv, testConfig(), Options{Allocator: mem, Logger: testLogger()})
	if c != nil {
		t.Error("New() returned a controller on failure")
	}
	if !errors.Is(err, ErrInitializationFailed) {
		t.Fatalf("New() error = %v, want ErrInitializationFailed", err)
	}

	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("New() error %T is not *InitError", err)
	}
	if initErr.Status != xlnx.StatusDeviceNotFound {
		t.Errorf("InitError.Status = %v, want %v", initErr.Status, xlnx.StatusDeviceNotFound)
	}
	if !strings.Contains(err.Error(), "[2]") {
		t.Errorf("error %q does not carry the raw status", err)
	}

	allocs, frees := mem.Counts()
	if allocs != FrameCount || frees != allocs {
		t.Errorf("allocs = %d, frees = %d, want %d each", allocs, frees, FrameCount)
	}
	if mem.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", mem.InUse())
	}
}

func TestNew_AllocationFailure(t *testing.T) {
	mem := sim.NewMemory(2 * MaxFrameSize)
	drv := sim.NewDriver(mem)

	_, err := New(drv, testConfig(), Options{Allocator: mem, Logger: testLogger()})
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("New() error = %v, want ErrResourceExhausted", err)
	}
	if !errors.Is(err, framestore.ErrExhausted) {
		t.Errorf("New() error = %v, want wrapped framestore.ErrExhausted", err)
	}
	if mem.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", mem.InUse())
	}
	if allocs, frees := mem.Counts(); allocs != 3 || frees != 2 {
		t.Errorf("allocs = %d, frees = %d, want 3 and 2", allocs, frees)
	}
	if drv.Calls().Configure != 0 {
		t.Error("driver configured after allocation failure")
	}
}

func TestNew_SharedFrameStore(t *testing.T) {
	mem := sim.NewMemory(0)
	store, err := framestore.Allocate(mem, FrameCount, MaxFrameSize)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	defer store.Release()

	t.Run("close keeps store", func(t *testing.T) {
		drv := sim.NewDriver(mem)
		c, err := New(drv, testConfig(), Options{FrameStore: store, Logger: testLogger()})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.FrameStore() != store {
			t.Error("FrameStore() is not the supplied store")
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if store.Released() {
			t.Error("shared store released by controller")
		}
	})

	t.Run("driver failure keeps store", func(t *testing.T) {
		drv := sim.NewDriver(mem)
		drv.ConfigureStatus = xlnx.StatusFailure
		if _, err := New(drv, testConfig(), Options{FrameStore: store, Logger: testLogger()}); !errors.Is(err, ErrInitializationFailed) {
			t.Fatalf("New() error = %v, want ErrInitializationFailed", err)
		}
		if store.Released() {
			t.Error("shared store released after driver failure")
		}
	})

	t.Run("wrong geometry", func(t *testing.T) {
		small, err := framestore.Allocate(mem, 2, 64)
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		defer small.Release()

		drv := sim.NewDriver(mem)
		if _, err := New(drv, testConfig(), Options{FrameStore: small, Logger: testLogger()}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("New() error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestSelectFrame(t *testing.T) {
	c, drv, _ := newTestController(t)

	for index := 0; index < FrameCount; index++ {
		got, err := c.SelectFrame(index)
		if err != nil {
			t.Fatalf("SelectFrame(%d) error = %v", index, err)
		}
		if got != index {
			t.Errorf("SelectFrame(%d) = %d", index, got)
		}
		if c.FrameIndex() != index {
			t.Errorf("FrameIndex() = %d, want %d", c.FrameIndex(), index)
		}
		if drv.ActiveBuffer() != index {
			t.Errorf("driver ActiveBuffer() = %d, want %d", drv.ActiveBuffer(), index)
		}
	}
}

func TestSelectFrame_OutOfRange(t *testing.T) {
	c, drv, _ := newTestController(t)
	if _, err := c.SelectFrame(1); err != nil {
		t.Fatalf("SelectFrame(1) error = %v", err)
	}
	calls := drv.Calls().SetActiveBuffer

	for _, index := range []int{-100, -1, FrameCount, FrameCount + 1, 1 << 20} {
		got, err := c.SelectFrame(index)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SelectFrame(%d) error = %v, want ErrOutOfRange", index, err)
			continue
		}

		var rangeErr *RangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("error %T is not *RangeError", err)
		}
		if rangeErr.Index != index || rangeErr.Min != 0 || rangeErr.Max != FrameCount-1 {
			t.Errorf("RangeError = %+v", rangeErr)
		}
		if got != 1 || c.FrameIndex() != 1 {
			t.Errorf("index changed to %d/%d after rejected SelectFrame(%d)", got, c.FrameIndex(), index)
		}
	}

	if drv.Calls().SetActiveBuffer != calls {
		t.Error("driver called for out-of-range index")
	}
}

func TestSelectFrame_DriverError(t *testing.T) {
	c, drv, _ := newTestController(t)
	drv.SetActiveErr = errors.New("bus error")

	if _, err := c.SelectFrame(2); !errors.Is(err, ErrDriver) {
		t.Fatalf("SelectFrame() error = %v, want ErrDriver", err)
	}
	if c.FrameIndex() != 0 {
		t.Errorf("FrameIndex() = %d, want 0", c.FrameIndex())
	}
}

// misreportingDriver reports a fixed armed index regardless of requests.
type misreportingDriver struct {
	*sim.Driver
	active int
}

func (d *misreportingDriver) ActiveBuffer() int { return d.active }

func TestSelectFrame_DriverConfirmation(t *testing.T) {
	tests := []struct {
		name      string
		active    int
		wantErr   bool
		wantIndex int
	}{
		{name: "past last frame", active: FrameCount + 4, wantErr: true, wantIndex: 0},
		{name: "negative", active: -1, wantErr: true, wantIndex: 0},
		{name: "different valid frame", active: 2, wantIndex: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := sim.NewMemory(0)
			drv := &misreportingDriver{Driver: sim.NewDriver(mem)}
			c, err := New(drv, testConfig(), Options{Allocator: mem, Logger: testLogger()})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			t.Cleanup(func() { _ = c.Close() })

			drv.active = tt.active
			got, err := c.SelectFrame(1)
			if tt.wantErr {
				if !errors.Is(err, ErrDriver) {
					t.Fatalf("SelectFrame() error = %v, want ErrDriver", err)
				}
			} else if err != nil {
				t.Fatalf("SelectFrame() error = %v", err)
			}
			if got != tt.wantIndex || c.FrameIndex() != tt.wantIndex {
				t.Errorf("SelectFrame() = %d, FrameIndex() = %d, want %d", got, c.FrameIndex(), tt.wantIndex)
			}
			if _, err := c.Frame(); err != nil {
				t.Errorf("Frame() error = %v, cursor must stay a valid index", err)
			}
		})
	}
}

func TestNextFrame_VisitsEveryIndex(t *testing.T) {
	c, _, _ := newTestController(t)

	var visited []int
	for i := 0; i < FrameCount; i++ {
		index, err := c.NextFrame()
		if err != nil {
			t.Fatalf("NextFrame() error = %v", err)
		}
		visited = append(visited, index)
	}

	want := []int{1, 2, 0}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("NextFrame() sequence = %v, want %v", visited, want)
		}
	}
	if c.FrameIndex() != 0 {
		t.Errorf("FrameIndex() = %d after a full cycle, want 0", c.FrameIndex())
	}
}

func TestTiming_NotCached(t *testing.T) {
	c, drv, _ := newTestController(t)
	drv.SetSignal(1280, 720)

	first, err := c.Timing()
	if err != nil {
		t.Fatalf("Timing() error = %v", err)
	}
	second, _ := c.Timing()
	if first != second {
		t.Errorf("Timing() drifted: %v then %v", first, second)
	}
	if first != (xlnx.Timing{Width: 1280, Height: 720}) {
		t.Errorf("Timing() = %v, want 1280x720", first)
	}

	drv.SetSignal(800, 600)
	third, _ := c.Timing()
	if third != (xlnx.Timing{Width: 800, Height: 600}) {
		t.Errorf("Timing() after format change = %v, want 800x600", third)
	}

	if drv.Calls().ProbeTiming != 3 {
		t.Errorf("ProbeTiming calls = %d, want 3", drv.Calls().ProbeTiming)
	}
	if c.FrameIndex() != 0 || c.State() != xlnx.StateStopped {
		t.Error("Timing() mutated controller state")
	}
}

func TestStartStop(t *testing.T) {
	c, drv, _ := newTestController(t)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if c.State() != xlnx.StateRunning {
		t.Errorf("State() = %v, want running", c.State())
	}

	// Double start is forwarded to the driver untouched.
	if err := c.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if drv.Calls().Start != 2 {
		t.Errorf("Start calls = %d, want 2", drv.Calls().Start)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if c.State() != xlnx.StateStopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}
}

func TestStart_DriverErrors(t *testing.T) {
	c, drv, _ := newTestController(t)

	drv.SetSignal(0, 0)
	err := c.Start()
	if !errors.Is(err, ErrDriver) || !errors.Is(err, xlnx.ErrNoSignal) {
		t.Fatalf("Start() without signal error = %v", err)
	}
	if c.State() != xlnx.StateStopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}

	drv.SetSignal(1920, 1080)
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	drv.StopErr = errors.New("halt timeout")
	if err := c.Stop(); !errors.Is(err, ErrDriver) {
		t.Errorf("Stop() error = %v, want ErrDriver", err)
	}
	if c.State() != xlnx.StateRunning {
		t.Errorf("State() = %v, want running after failed stop", c.State())
	}
}

func TestReadFrame_Arguments(t *testing.T) {
	c, _, _ := newTestController(t)
	if _, err := c.SelectFrame(1); err != nil {
		t.Fatalf("SelectFrame() error = %v", err)
	}

	tests := []struct {
		name      string
		args      []string
		wantIndex int
		wantErr   error
	}{
		{name: "default", args: nil, wantIndex: 1},
		{name: "explicit", args: []string{"2"}, wantIndex: 2},
		{name: "explicit zero", args: []string{"0"}, wantIndex: 0},
		{name: "two args", args: []string{"1", "2"}, wantErr: ErrInvalidArgument},
		{name: "non-integer", args: []string{"two"}, wantErr: ErrInvalidArgument},
		{name: "float", args: []string{"1.5"}, wantErr: ErrInvalidArgument},
		{name: "empty", args: []string{""}, wantErr: ErrInvalidArgument},
		{name: "out of range", args: []string{"3"}, wantErr: ErrOutOfRange},
		{name: "negative", args: []string{"-1"}, wantErr: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := c.ReadFrame(tt.args...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadFrame(%q) error = %v, want %v", tt.args, err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("ReadFrame(%q) error = %v", tt.args, err)
				}
				if view.Index() != tt.wantIndex {
					t.Errorf("ReadFrame(%q).Index() = %d, want %d", tt.args, view.Index(), tt.wantIndex)
				}
				if view.Len() != MaxFrameSize {
					t.Errorf("ReadFrame(%q).Len() = %d, want %d", tt.args, view.Len(), MaxFrameSize)
				}
			}
			if c.FrameIndex() != 1 {
				t.Errorf("FrameIndex() = %d after ReadFrame, want 1", c.FrameIndex())
			}
		})
	}
}

func TestEndToEnd(t *testing.T) {
	mem := sim.NewMemory(0)
	drv := sim.NewDriver(mem)
	drv.SetSignal(640, 480)

	c, err := New(drv, testConfig(), Options{Allocator: mem, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.SelectFrame(2); err != nil {
		t.Fatalf("SelectFrame(2) error = %v", err)
	}
	if err := drv.Tick(); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	view, err := c.Frame()
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if view.Index() != 2 {
		t.Errorf("Frame().Index() = %d, want 2", view.Index())
	}
	// First bar of the pattern is white.
	for i := 0; i < xlnx.BytesPerPixel; i++ {
		if view.At(i) != 255 {
			t.Fatalf("pixel byte %d = %d, want 255", i, view.At(i))
		}
	}
	other, _ := c.FrameAt(0)
	if other.At(0) != 0 {
		t.Error("DMA wrote into a buffer that was not armed")
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if c.State() != xlnx.StateStopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestDescribe(t *testing.T) {
	c, drv, _ := newTestController(t)
	drv.SetSignal(1280, 720)
	if _, err := c.SelectFrame(2); err != nil {
		t.Fatalf("SelectFrame() error = %v", err)
	}

	summary, err := c.Describe()
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	for _, want := range []string{
		"State: 0 (stopped)",
		"Current Index: 2",
		"Current Width: 1280",
		"Current Height: 720",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("Describe() = %q, missing %q", summary, want)
		}
	}

	drv.SetSignal(1920, 1080)
	if s := c.String(); !strings.Contains(s, "Current Height: 1080") {
		t.Errorf("String() = %q, want live timing", s)
	}
}

// orderedDriver records teardown into a shared log.
type orderedDriver struct {
	*sim.Driver
	log *[]string
}

func (d orderedDriver) Teardown() error {
	*d.log = append(*d.log, "teardown")
	return d.Driver.Teardown()
}

// orderedMemory records frees into a shared log.
type orderedMemory struct {
	*sim.Memory
	log *[]string
}

func (m orderedMemory) Free(buf framestore.Buffer) error {
	*m.log = append(*m.log, "free")
	return m.Memory.Free(buf)
}

func TestClose_TeardownBeforeFree(t *testing.T) {
	var log []string
	mem := orderedMemory{Memory: sim.NewMemory(0), log: &log}
	drv := orderedDriver{Driver: sim.NewDriver(mem.Memory), log: &log}

	c, err := New(drv, testConfig(), Options{Allocator: mem, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := []string{"teardown", "free", "free", "free"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("release order = %v, want %v", log, want)
	}
	if c.State() != xlnx.StateStopped {
		t.Errorf("State() after Close = %v, want stopped", c.State())
	}

	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if len(log) != len(want) {
		t.Errorf("second Close() released again: %v", log)
	}
}

func TestClose_TeardownFailureKeepsBuffers(t *testing.T) {
	mem := sim.NewMemory(0)
	drv := sim.NewDriver(mem)
	c, err := New(drv, testConfig(), Options{Allocator: mem, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	drv.TeardownErr = errors.New("vdma did not halt")
	if err := c.Close(); !errors.Is(err, ErrDriver) {
		t.Fatalf("Close() error = %v, want ErrDriver", err)
	}
	if c.FrameStore().Released() {
		t.Fatal("frame store released while DMA may still be active")
	}

	drv.TeardownErr = nil
	if err := c.Close(); err != nil {
		t.Fatalf("retried Close() error = %v", err)
	}
	if !c.FrameStore().Released() {
		t.Error("frame store not released after successful Close")
	}
}

// AXI VDMA, VTC and GPIO register layout used by the register-level driver.
const (
	regS2MMControl = 0x30
	regS2MMStatus  = 0x34
	regVTCActive   = 0x20
	regVTCStatus   = 0x24
	regWindow      = 0x10000
	s2mmRunStop    = 1 << 0
	s2mmReset      = 1 << 2
	s2mmHalted     = 1 << 0
	vtcLocked      = 1 << 0
)

func TestClose_StuckChannelKeepsBuffers(t *testing.T) {
	cfg := testConfig()
	cfg.DMA.AddrWidth = 64

	vdma := xlnx.NewMemRegs(cfg.DMA.BaseAddress, regWindow)
	gpio := xlnx.NewMemRegs(cfg.GPIO.BaseAddress, regWindow)
	vtc := xlnx.NewMemRegs(cfg.VTCBaseAddress, regWindow)
	vtc.Poke(regVTCActive, 1080<<16|1920)
	vtc.Poke(regVTCStatus, vtcLocked)
	vdma.Poke(regS2MMStatus, s2mmHalted)

	var stuck atomic.Bool
	vdma.OnWrite = func(m *xlnx.MemRegs, off, val uint32) {
		if off != regS2MMControl {
			return
		}
		if val&s2mmReset != 0 {
			m.Poke(regS2MMControl, val&^s2mmReset)
		}
		switch {
		case val&s2mmRunStop != 0:
			m.Poke(regS2MMStatus, 0)
		case !stuck.Load():
			m.Poke(regS2MMStatus, s2mmHalted)
		}
	}

	drv := xlnx.NewDriver(xlnx.DriverOptions{
		Mapper:       xlnx.MemMapper(vdma, gpio, vtc),
		PollInterval: time.Microsecond,
		LockTimeout:  5 * time.Millisecond,
		ResetTimeout: time.Millisecond,
		Logger:       testLogger(),
	})
	heap := framestore.NewHeap(0)
	c, err := New(drv, cfg, Options{Allocator: heap, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stuck.Store(true)
	for attempt := 1; attempt <= 2; attempt++ {
		if err := c.Close(); !errors.Is(err, ErrDriver) {
			t.Fatalf("Close() attempt %d error = %v, want ErrDriver", attempt, err)
		}
		if c.FrameStore().Released() {
			t.Fatalf("frame store released on attempt %d with the channel running", attempt)
		}
	}
	if vdma.Closed() {
		t.Error("VDMA window unmapped with the channel running")
	}

	stuck.Store(false)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() after the channel halted error = %v", err)
	}
	if !c.FrameStore().Released() {
		t.Error("frame store not released after a clean teardown")
	}
	if heap.InUse() != 0 {
		t.Errorf("heap InUse() = %d, want 0", heap.InUse())
	}
}

func TestOperationsAfterClose(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := c.SelectFrame(1); !errors.Is(err, ErrClosed) {
		t.Errorf("SelectFrame() error = %v, want ErrClosed", err)
	}
	if _, err := c.NextFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("NextFrame() error = %v, want ErrClosed", err)
	}
	if _, err := c.Timing(); !errors.Is(err, ErrClosed) {
		t.Errorf("Timing() error = %v, want ErrClosed", err)
	}
	if err := c.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() error = %v, want ErrClosed", err)
	}
	if err := c.Stop(); !errors.Is(err, ErrClosed) {
		t.Errorf("Stop() error = %v, want ErrClosed", err)
	}
	if _, err := c.Frame(); !errors.Is(err, ErrClosed) {
		t.Errorf("Frame() error = %v, want ErrClosed", err)
	}
	if _, err := c.Describe(); !errors.Is(err, ErrClosed) {
		t.Errorf("Describe() error = %v, want ErrClosed", err)
	}
}
