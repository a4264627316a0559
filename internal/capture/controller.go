// Package capture implements the video capture controller: a ring of
// FrameCount frame buffers, a cursor naming the buffer armed for the next
// DMA write, and start/stop control of the capture peripheral.
//
// A Controller performs no locking. It assumes a single owner; callers that
// share one across goroutines must serialize access themselves.
package capture

import (
	"fmt"
	"strings"

	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/pkg/framestore"
	"github.com/smazurov/vcapture/pkg/xlnx"
)

// Options configures a new Controller.
type Options struct {
	// FrameStore is an existing store to capture into (optional). The
	// controller shares it and never releases it.
	FrameStore *framestore.Store

	// Allocator for the internally created store. If nil, uses the Go heap.
	Allocator framestore.Allocator

	// Logger for controller operations. If nil, uses the "capture" module logger.
	Logger logging.Logger
}

// Controller is a capture session bound to one peripheral.
type Controller struct {
	drv    Driver
	store  *framestore.Store
	owned  bool
	index  int
	state  xlnx.State
	closed bool
	logger logging.Logger
}

// New allocates the frame store (unless one is supplied) and configures the
// driver with its buffer addresses. On failure nothing allocated here is
// left behind.
func New(drv Driver, cfg Config, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("capture")
	}

	if drv == nil {
		return nil, newError(ErrCodeInvalidArgument, "driver is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, newError(ErrCodeInvalidArgument, "invalid configuration", err)
	}

	store := opts.FrameStore
	owned := store == nil
	if owned {
		alloc := opts.Allocator
		if alloc == nil {
			alloc = framestore.NewHeap(0)
		}
		var err error
		store, err = framestore.Allocate(alloc, FrameCount, MaxFrameSize)
		if err != nil {
			return nil, newError(ErrCodeResourceExhausted, "unable to allocate frame buffers", err)
		}
	} else if err := checkStore(store); err != nil {
		return nil, err
	}

	status := drv.Configure(cfg.DMA, cfg.GPIO, cfg.VTCBaseAddress, store.Addrs(), Stride)
	if status != xlnx.StatusSuccess {
		if owned {
			if err := store.Release(); err != nil {
				logger.Warn("Failed to release frame buffers", "error", err)
			}
		}
		return nil, &InitError{Status: status}
	}

	c := &Controller{
		drv:    drv,
		store:  store,
		owned:  owned,
		index:  0,
		state:  drv.Status(),
		logger: logger,
	}
	logger.Info("Video capture initialized",
		"vdma", fmt.Sprintf("%#x", cfg.DMA.BaseAddress),
		"vtc", fmt.Sprintf("%#x", cfg.VTCBaseAddress),
		"frames", FrameCount,
		"shared_store", !owned,
		"state", c.state.String())
	return c, nil
}

func checkStore(store *framestore.Store) error {
	switch {
	case store.Released():
		return newError(ErrCodeInvalidArgument, "frame store already released", nil)
	case store.Len() != FrameCount:
		return newError(ErrCodeInvalidArgument,
			fmt.Sprintf("frame store has %d buffers, want %d", store.Len(), FrameCount), nil)
	case store.Size() < MaxFrameSize:
		return newError(ErrCodeInvalidArgument,
			fmt.Sprintf("frame buffers hold %d bytes, want at least %d", store.Size(), MaxFrameSize), nil)
	}
	return nil
}

// FrameIndex returns the index of the buffer armed for capture.
func (c *Controller) FrameIndex() int {
	return c.index
}

// SelectFrame arms the buffer at index and returns the index the driver
// reports back.
func (c *Controller) SelectFrame(index int) (int, error) {
	if c.closed {
		return c.index, ErrClosed
	}
	if index < 0 || index >= FrameCount {
		return c.index, &RangeError{Index: index, Min: 0, Max: FrameCount - 1}
	}

	if err := c.drv.SetActiveBuffer(index); err != nil {
		return c.index, newError(ErrCodeDriver, fmt.Sprintf("set active frame %d", index), err)
	}

	confirmed := c.drv.ActiveBuffer()
	if confirmed < 0 || confirmed >= FrameCount {
		c.logger.Error("Driver reported an invalid active frame", "requested", index, "active", confirmed)
		return c.index, newError(ErrCodeDriver, fmt.Sprintf("driver reported active frame %d outside [0,%d]", confirmed, FrameCount-1), nil)
	}
	if confirmed != index {
		c.logger.Warn("Driver armed a different frame", "requested", index, "active", confirmed)
	}
	c.index = confirmed
	c.logger.Debug("Frame selected", "index", confirmed)
	return confirmed, nil
}

// NextFrame advances the cursor by one, wrapping at FrameCount.
func (c *Controller) NextFrame() (int, error) {
	return c.SelectFrame((c.index + 1) % FrameCount)
}

// Timing probes the timing detector. The result is never cached; the
// source can change format at any time.
func (c *Controller) Timing() (xlnx.Timing, error) {
	if c.closed {
		return xlnx.Timing{}, ErrClosed
	}
	t, err := c.drv.ProbeTiming()
	if err != nil {
		return xlnx.Timing{}, newError(ErrCodeDriver, "probe timing", err)
	}
	return t, nil
}

// Start starts capturing into the armed buffer.
func (c *Controller) Start() error {
	if c.closed {
		return ErrClosed
	}
	err := c.drv.Start()
	c.state = c.drv.Status()
	if err != nil {
		return newError(ErrCodeDriver, "start capture", err)
	}
	return nil
}

// Stop halts capture.
func (c *Controller) Stop() error {
	if c.closed {
		return ErrClosed
	}
	err := c.drv.Stop()
	c.state = c.drv.Status()
	if err != nil {
		return newError(ErrCodeDriver, "stop capture", err)
	}
	return nil
}

// State returns the last status reported by the driver.
func (c *Controller) State() xlnx.State {
	return c.state
}

// Frame returns a read-only view of the armed buffer.
func (c *Controller) Frame() (framestore.View, error) {
	return c.FrameAt(c.index)
}

// FrameAt returns a read-only view of the buffer at index. It does not
// touch the driver or the cursor.
func (c *Controller) FrameAt(index int) (framestore.View, error) {
	if c.closed {
		return framestore.View{}, ErrClosed
	}
	if index < 0 || index >= FrameCount {
		return framestore.View{}, &RangeError{Index: index, Min: 0, Max: FrameCount - 1}
	}
	return c.store.View(index)
}

// FrameStore returns the store backing the controller.
func (c *Controller) FrameStore() *framestore.Store {
	return c.store
}

// Describe returns a diagnostic summary with a freshly probed timing.
func (c *Controller) Describe() (string, error) {
	timing, err := c.Timing()
	if err != nil {
		return "", err
	}
	return c.Summary(timing), nil
}

// Summary renders the Describe text for a timing the caller already probed.
func (c *Controller) Summary(timing xlnx.Timing) string {
	var b strings.Builder
	b.WriteString("Video Capture\n")
	fmt.Fprintf(&b, "   State: %d (%s)\n", uint32(c.state), c.state)
	fmt.Fprintf(&b, "   Current Index: %d\n", c.index)
	fmt.Fprintf(&b, "   Current Width: %d\n", timing.Width)
	fmt.Fprintf(&b, "   Current Height: %d", timing.Height)
	return b.String()
}

func (c *Controller) String() string {
	s, err := c.Describe()
	if err != nil {
		return fmt.Sprintf("Video Capture (state %s, index %d, timing unavailable: %v)", c.state, c.index, err)
	}
	return s
}

// Close tears the driver down and then releases the frame store if the
// controller allocated it. Buffers are never freed while DMA may still
// reference them: if teardown fails the store is kept and Close may be
// retried.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}

	if err := c.drv.Teardown(); err != nil {
		c.logger.Error("Driver teardown failed, keeping frame buffers", "error", err)
		return newError(ErrCodeDriver, "teardown driver", err)
	}
	c.closed = true
	c.state = c.drv.Status()

	if c.owned {
		if err := c.store.Release(); err != nil {
			return fmt.Errorf("release frame store: %w", err)
		}
	}

	c.logger.Info("Video capture closed", "shared_store", !c.owned)
	return nil
}
