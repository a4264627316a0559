// Package xlnx is a register-level driver for the Xilinx video capture
// pipeline: an AXI VDMA write channel, a Video Timing Controller used as a
// detector, and an AXI GPIO line holding the pipeline in reset.
package xlnx

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// BytesPerPixel is the width of one pixel on the capture stream.
const BytesPerPixel = 3

// ErrNoSignal is returned by Start when the timing detector cannot lock.
var ErrNoSignal = errors.New("no video signal detected")

// ErrNotConfigured is returned by operations issued before Configure.
var ErrNotConfigured = errors.New("driver not configured")

// DriverOptions configures a Driver.
type DriverOptions struct {
	// Mapper maps register windows. Defaults to DevMemMapper on Linux.
	Mapper Mapper

	// PollInterval between register status checks. Default 1ms.
	PollInterval time.Duration

	// LockTimeout bounds how long Start waits for the detector to lock.
	// Default 1s.
	LockTimeout time.Duration

	// ResetTimeout bounds DMA reset, start and halt handshakes. Default 100ms.
	ResetTimeout time.Duration

	// Logger for driver operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Driver implements the capture peripheral on top of mapped registers.
// It is not safe for concurrent use.
type Driver struct {
	opts   DriverOptions
	logger *slog.Logger

	vdmaRegs, vtcRegs, gpioRegs Regs

	vdma *VDMA
	vtc  *VTC
	gpio *GPIO

	stride int
	state  State
}

// NewDriver creates an unconfigured driver.
func NewDriver(opts DriverOptions) *Driver {
	if opts.Mapper == nil {
		opts.Mapper = defaultMapper
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Millisecond
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = time.Second
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		opts:   opts,
		logger: logger.With("component", "xlnx"),
	}
}

// Configure maps the peripherals, resets the DMA channel and programs the
// frame store addresses. It returns a raw status code; anything other than
// StatusSuccess leaves the driver unconfigured.
func (d *Driver) Configure(dma DMAConfig, gpio GPIOConfig, vtcBase uint64, addrs []uint64, stride int) Status {
	if d.vdma != nil {
		return StatusDeviceBusy
	}
	if len(addrs) == 0 || len(addrs) > dma.NumFrameStores || stride <= 0 {
		d.logger.Error("Invalid frame store parameters", "frames", len(addrs), "num_fstores", dma.NumFrameStores, "stride", stride)
		return StatusInvalidParam
	}
	if dma.S2MMMaxWidth > 0 && stride < dma.S2MMMaxWidth {
		d.logger.Error("Stride smaller than maximum line width", "stride", stride, "max_width", dma.S2MMMaxWidth)
		return StatusInvalidParam
	}

	var err error
	if d.vdmaRegs, err = d.opts.Mapper(dma.BaseAddress, vdmaWindow); err != nil {
		d.logger.Error("Failed to map VDMA", "base", fmt.Sprintf("%#x", dma.BaseAddress), "error", err)
		return d.unwind(StatusDeviceNotFound)
	}
	if d.gpioRegs, err = d.opts.Mapper(gpio.BaseAddress, gpioWindow); err != nil {
		d.logger.Error("Failed to map GPIO", "base", fmt.Sprintf("%#x", gpio.BaseAddress), "error", err)
		return d.unwind(StatusDeviceNotFound)
	}
	if d.vtcRegs, err = d.opts.Mapper(vtcBase, vtcWindow); err != nil {
		d.logger.Error("Failed to map VTC", "base", fmt.Sprintf("%#x", vtcBase), "error", err)
		return d.unwind(StatusDeviceNotFound)
	}

	d.vdma = newVDMA(d.vdmaRegs, dma, d.opts.PollInterval, d.tries(d.opts.ResetTimeout))
	d.vtc = &VTC{regs: d.vtcRegs}
	d.gpio = newGPIO(d.gpioRegs, gpio)

	d.gpio.Init()
	if err := d.vdma.Reset(); err != nil {
		d.logger.Error("VDMA reset failed", "error", err)
		return d.unwind(StatusFailure)
	}
	if err := d.vdma.SetFrameAddrs(addrs); err != nil {
		d.logger.Error("Failed to program frame stores", "error", err)
		return d.unwind(StatusInvalidParam)
	}
	d.vdma.Park(0)

	d.stride = stride
	d.state = StateStopped
	d.logger.Debug("Capture pipeline configured",
		"vdma_version", fmt.Sprintf("%#08x", d.vdma.Version()),
		"frames", len(addrs),
		"stride", stride)
	return StatusSuccess
}

// unwind releases any mapped windows and returns status.
func (d *Driver) unwind(status Status) Status {
	for _, r := range []Regs{d.vdmaRegs, d.gpioRegs, d.vtcRegs} {
		if r != nil {
			_ = r.Close()
		}
	}
	d.vdmaRegs, d.gpioRegs, d.vtcRegs = nil, nil, nil
	d.vdma, d.vtc, d.gpio = nil, nil, nil
	return status
}

// SetActiveBuffer parks the write channel on the given frame.
func (d *Driver) SetActiveBuffer(index int) error {
	if d.vdma == nil {
		return ErrNotConfigured
	}
	if index < 0 || index >= d.vdma.frames {
		return fmt.Errorf("frame %d not programmed (have %d)", index, d.vdma.frames)
	}
	d.vdma.Park(index)
	return nil
}

// ActiveBuffer reads back the parked frame from hardware.
func (d *Driver) ActiveBuffer() int {
	if d.vdma == nil {
		return 0
	}
	return d.vdma.Parked()
}

// ProbeTiming samples the timing detector.
func (d *Driver) ProbeTiming() (Timing, error) {
	if d.vtc == nil {
		return Timing{}, ErrNotConfigured
	}
	d.vtc.Enable()
	if !d.vtc.Locked() {
		return Timing{}, nil
	}
	return d.vtc.Detect(), nil
}

// Start releases the pipeline from reset, waits for the detector to lock
// and starts the DMA write channel sized to the detected frame.
func (d *Driver) Start() error {
	if d.vdma == nil {
		return ErrNotConfigured
	}

	d.gpio.Release()
	d.vtc.Enable()

	deadline := time.Now().Add(d.opts.LockTimeout)
	for !d.vtc.Locked() {
		if time.Now().After(deadline) {
			d.gpio.Assert()
			return ErrNoSignal
		}
		time.Sleep(d.opts.PollInterval)
	}

	timing := d.vtc.Detect()
	if !timing.Valid() || timing.Width*BytesPerPixel > d.stride {
		d.gpio.Assert()
		return fmt.Errorf("detected frame %s does not fit stride %d", timing, d.stride)
	}

	if err := d.vdma.Start(timing.Width*BytesPerPixel, d.stride, timing.Height); err != nil {
		d.gpio.Assert()
		return err
	}

	d.state = StateRunning
	d.logger.Info("Capture started", "timing", timing.String(), "frame", d.vdma.Parked())
	return nil
}

// Stop halts the DMA write channel and holds the pipeline in reset.
func (d *Driver) Stop() error {
	if d.vdma == nil {
		return ErrNotConfigured
	}

	err := d.vdma.Stop()
	d.gpio.Assert()
	d.state = StateStopped
	if err != nil {
		return err
	}
	d.logger.Info("Capture stopped")
	return nil
}

// Status returns the pipeline state.
func (d *Driver) Status() State {
	return d.state
}

// Teardown quiesces the hardware and unmaps all register windows. If the
// write channel does not halt, the windows stay mapped and Teardown may be
// called again.
func (d *Driver) Teardown() error {
	if d.vdma == nil {
		return nil
	}

	if !d.vdma.Halted() {
		if err := d.vdma.Stop(); err != nil {
			d.gpio.Assert()
			return fmt.Errorf("stop vdma: %w", err)
		}
	}
	d.gpio.Assert()
	d.vtc.Disable()

	var errs []error
	for _, r := range []Regs{d.vdmaRegs, d.gpioRegs, d.vtcRegs} {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.vdmaRegs, d.gpioRegs, d.vtcRegs = nil, nil, nil
	d.vdma, d.vtc, d.gpio = nil, nil, nil
	d.state = StateStopped
	return errors.Join(errs...)
}

func (d *Driver) tries(total time.Duration) int {
	n := int(total / d.opts.PollInterval)
	if n < 1 {
		n = 1
	}
	return n
}
