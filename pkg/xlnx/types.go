package xlnx

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

// Status is a raw driver status code as returned by Configure.
type Status int

// Driver status codes.
const (
	StatusSuccess        Status = 0
	StatusFailure        Status = 1
	StatusDeviceNotFound Status = 2
	StatusDeviceBusy     Status = 21
	StatusInvalidParam   Status = 15
	StatusNotSupported   Status = 19
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusDeviceNotFound:
		return "device not found"
	case StatusDeviceBusy:
		return "device busy"
	case StatusInvalidParam:
		return "invalid parameter"
	case StatusNotSupported:
		return "not supported"
	default:
		return "status " + strconv.Itoa(int(s))
	}
}

// State is the capture pipeline state reported by the driver.
type State uint32

// Capture states.
const (
	StateStopped State = 0
	StateRunning State = 1
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "state(" + strconv.FormatUint(uint64(s), 10) + ")"
	}
}

// Timing is the active video area reported by the timing detector.
type Timing struct {
	Width  int `json:"width" example:"1920" doc:"Active video width in pixels"`
	Height int `json:"height" example:"1080" doc:"Active video height in lines"`
}

// Valid reports whether both dimensions are nonzero.
func (t Timing) Valid() bool {
	return t.Width > 0 && t.Height > 0
}

func (t Timing) String() string {
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}

// GenLockMode selects how the S2MM channel synchronizes frame pointers.
type GenLockMode int

// Genlock modes.
const (
	GenLockMaster GenLockMode = iota
	GenLockSlave
	GenLockDynamicMaster
	GenLockDynamicSlave
)

// DMAConfig enumerates the VDMA hardware parameters the driver consumes.
// Field names follow the IP core's generated parameters.
type DMAConfig struct {
	BaseAddress        uint64      `toml:"base_address"`
	DeviceID           uint16      `toml:"device_id"`
	AddrWidth          int         `toml:"addr_width"`
	NumFrameStores     int         `toml:"num_fstores"`
	HasS2MM            bool        `toml:"has_s2mm"`
	HasS2MMDRE         bool        `toml:"has_s2mm_dre"`
	S2MMDataWidth      int         `toml:"s2mm_data_width"`
	S2MMBufferDepth    int         `toml:"s2mm_buf_depth"`
	S2MMGenLockMode    GenLockMode `toml:"s2mm_genlock"`
	S2MMMaxWidth       int         `toml:"s2mm_max_width"`
	HasSG              bool        `toml:"has_sg"`
	UseFsync           bool        `toml:"use_fsync"`
	FlushOnFsync       bool        `toml:"flush_on_fsync"`
	EnableVIDParamRead bool        `toml:"enable_vid_param_read"`
}

// GPIOConfig enumerates the AXI GPIO parameters used for the capture reset line.
type GPIOConfig struct {
	BaseAddress      uint64 `toml:"base_address"`
	DeviceID         uint16 `toml:"device_id"`
	IsDual           bool   `toml:"is_dual"`
	InterruptPresent bool   `toml:"interrupt_present"`
	ResetChannel     int    `toml:"reset_channel"`
	ResetMask        uint32 `toml:"reset_mask"`
}

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid peripheral configuration")

// Validate checks the VDMA parameters against what the capture driver needs.
func (c DMAConfig) Validate(minFrameStores int) error {
	switch {
	case c.BaseAddress == 0:
		return fmt.Errorf("%w: vdma base_address is required", ErrInvalidConfig)
	case c.BaseAddress%4 != 0:
		return fmt.Errorf("%w: vdma base_address %#x is not word aligned", ErrInvalidConfig, c.BaseAddress)
	case !c.HasS2MM:
		return fmt.Errorf("%w: vdma has no S2MM (write) channel", ErrInvalidConfig)
	case c.NumFrameStores < minFrameStores:
		return fmt.Errorf("%w: vdma num_fstores %d, need at least %d", ErrInvalidConfig, c.NumFrameStores, minFrameStores)
	case c.NumFrameStores > MaxFrameStores:
		return fmt.Errorf("%w: vdma num_fstores %d exceeds %d", ErrInvalidConfig, c.NumFrameStores, MaxFrameStores)
	case c.S2MMDataWidth < 8 || c.S2MMDataWidth > 1024 || bits.OnesCount(uint(c.S2MMDataWidth)) != 1:
		return fmt.Errorf("%w: vdma s2mm_data_width %d is not a power of two in [8,1024]", ErrInvalidConfig, c.S2MMDataWidth)
	case c.AddrWidth != 32 && c.AddrWidth != 64:
		return fmt.Errorf("%w: vdma addr_width %d, want 32 or 64", ErrInvalidConfig, c.AddrWidth)
	case c.S2MMGenLockMode < GenLockMaster || c.S2MMGenLockMode > GenLockDynamicSlave:
		return fmt.Errorf("%w: vdma s2mm_genlock %d unknown", ErrInvalidConfig, c.S2MMGenLockMode)
	}
	return nil
}

// Validate checks the GPIO parameters.
func (c GPIOConfig) Validate() error {
	switch {
	case c.BaseAddress == 0:
		return fmt.Errorf("%w: gpio base_address is required", ErrInvalidConfig)
	case c.BaseAddress%4 != 0:
		return fmt.Errorf("%w: gpio base_address %#x is not word aligned", ErrInvalidConfig, c.BaseAddress)
	case c.ResetChannel != 1 && c.ResetChannel != 2:
		return fmt.Errorf("%w: gpio reset_channel %d, want 1 or 2", ErrInvalidConfig, c.ResetChannel)
	case c.ResetChannel == 2 && !c.IsDual:
		return fmt.Errorf("%w: gpio reset_channel 2 requires a dual-channel core", ErrInvalidConfig)
	case c.ResetMask == 0:
		return fmt.Errorf("%w: gpio reset_mask is required", ErrInvalidConfig)
	}
	return nil
}

// DefaultDMAConfig returns the parameters of the reference capture design.
func DefaultDMAConfig(base uint64) DMAConfig {
	return DMAConfig{
		BaseAddress:     base,
		AddrWidth:       32,
		NumFrameStores:  3,
		HasS2MM:         true,
		S2MMDataWidth:   32,
		S2MMBufferDepth: 512,
		S2MMGenLockMode: GenLockMaster,
		S2MMMaxWidth:    1920 * 3,
		UseFsync:        true,
	}
}

// DefaultGPIOConfig returns a single-channel GPIO with bit 0 as the reset line.
func DefaultGPIOConfig(base uint64) GPIOConfig {
	return GPIOConfig{
		BaseAddress:  base,
		ResetChannel: 1,
		ResetMask:    0x1,
	}
}
