package capture

import (
	"fmt"

	"github.com/smazurov/vcapture/pkg/xlnx"
)

// Frame buffer geometry.
const (
	FrameCount     = 3
	MaxFrameWidth  = 1920
	MaxFrameHeight = 1080
	Stride         = MaxFrameWidth * xlnx.BytesPerPixel
	MaxFrameSize   = MaxFrameHeight * Stride
)

// Driver is the capture peripheral: a DMA engine writing into the frame
// store, a timing detector and the pipeline reset line. All calls block
// until the hardware has accepted them.
type Driver interface {
	Configure(dma xlnx.DMAConfig, gpio xlnx.GPIOConfig, vtcBase uint64, addrs []uint64, stride int) xlnx.Status
	SetActiveBuffer(index int) error
	ActiveBuffer() int
	ProbeTiming() (xlnx.Timing, error)
	Start() error
	Stop() error
	Status() xlnx.State
	Teardown() error
}

// Config describes the peripherals behind a controller.
type Config struct {
	DMA            xlnx.DMAConfig  `toml:"vdma"`
	GPIO           xlnx.GPIOConfig `toml:"gpio"`
	VTCBaseAddress uint64          `toml:"vtc_base_address"`
}

// Validate checks every recognized parameter before any resource is touched.
func (c Config) Validate() error {
	if err := c.DMA.Validate(FrameCount); err != nil {
		return err
	}
	if err := c.GPIO.Validate(); err != nil {
		return err
	}
	if c.VTCBaseAddress == 0 {
		return fmt.Errorf("%w: vtc_base_address is required", xlnx.ErrInvalidConfig)
	}
	if c.VTCBaseAddress%4 != 0 {
		return fmt.Errorf("%w: vtc_base_address %#x is not word aligned", xlnx.ErrInvalidConfig, c.VTCBaseAddress)
	}
	return nil
}
