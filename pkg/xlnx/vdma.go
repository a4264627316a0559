package xlnx

import (
	"errors"
	"fmt"
	"time"
)

// AXI VDMA S2MM (stream to memory) register offsets.
const (
	vdmaParkPtr       = 0x28
	vdmaVersion       = 0x2C
	vdmaS2MMCR        = 0x30
	vdmaS2MMSR        = 0x34
	vdmaS2MMRegIndex  = 0x44
	vdmaS2MMFrmStore  = 0x48
	vdmaS2MMVSize     = 0xA0
	vdmaS2MMHSize     = 0xA4
	vdmaS2MMDlyStride = 0xA8
	vdmaS2MMAddr      = 0xAC

	vdmaWindow = 0x10000
)

// S2MM_VDMACR bits.
const (
	crRunStop      = 1 << 0
	crCircularPark = 1 << 1
	crReset        = 1 << 2
	crGenlockEn    = 1 << 3
	crGenlockSrc   = 1 << 7
)

// S2MM_VDMASR bits.
const (
	srHalted   = 1 << 0
	srIntErr   = 1 << 4
	srSlaveErr = 1 << 5
	srDecErr   = 1 << 6
	srErrMask  = srIntErr | srSlaveErr | srDecErr
)

// PARK_PTR_REG write frame reference field.
const (
	parkWrShift = 8
	parkWrMask  = 0x1F << parkWrShift
)

// MaxFrameStores is the largest frame store count the VDMA core supports.
const MaxFrameStores = 16

var (
	errResetTimeout = errors.New("vdma reset did not complete")
	errHaltTimeout  = errors.New("vdma channel did not halt")
	errStartTimeout = errors.New("vdma channel did not start")
)

// VDMA drives the S2MM channel of an AXI Video DMA core in park mode.
type VDMA struct {
	regs   Regs
	cfg    DMAConfig
	poll   time.Duration
	tries  int
	frames int
}

func newVDMA(regs Regs, cfg DMAConfig, poll time.Duration, tries int) *VDMA {
	return &VDMA{regs: regs, cfg: cfg, poll: poll, tries: tries}
}

// Reset soft-resets the S2MM channel.
func (v *VDMA) Reset() error {
	v.regs.Write32(vdmaS2MMCR, crReset)
	if !v.waitFor(func() bool { return v.regs.Read32(vdmaS2MMCR)&crReset == 0 }) {
		return errResetTimeout
	}
	return nil
}

// SetFrameAddrs programs the frame store start addresses.
func (v *VDMA) SetFrameAddrs(addrs []uint64) error {
	if len(addrs) == 0 || len(addrs) > MaxFrameStores {
		return fmt.Errorf("vdma: %d frame stores, want 1..%d", len(addrs), MaxFrameStores)
	}

	v.regs.Write32(vdmaS2MMFrmStore, uint32(len(addrs)))
	v.regs.Write32(vdmaS2MMRegIndex, 0)
	for i, a := range addrs {
		if v.cfg.AddrWidth == 64 {
			off := uint32(vdmaS2MMAddr + 8*i)
			v.regs.Write32(off, uint32(a))
			v.regs.Write32(off+4, uint32(a>>32))
			continue
		}
		if a>>32 != 0 {
			return fmt.Errorf("vdma: frame %d address %#x needs 64-bit addressing", i, a)
		}
		v.regs.Write32(uint32(vdmaS2MMAddr+4*i), uint32(a))
	}
	v.frames = len(addrs)
	return nil
}

// Park pins the write channel to frame index.
func (v *VDMA) Park(index int) {
	park := v.regs.Read32(vdmaParkPtr) &^ parkWrMask
	v.regs.Write32(vdmaParkPtr, park|uint32(index)<<parkWrShift&parkWrMask)
}

// Parked returns the frame index the write channel is pinned to.
func (v *VDMA) Parked() int {
	return int(v.regs.Read32(vdmaParkPtr)&parkWrMask) >> parkWrShift
}

// Start runs the channel in park mode for frames of the given geometry.
// Writing VSIZE commits the transfer.
func (v *VDMA) Start(hsizeBytes, stride, vsize int) error {
	cr := uint32(crRunStop)
	if v.cfg.UseFsync {
		cr |= crGenlockEn
	}
	if v.cfg.S2MMGenLockMode == GenLockSlave || v.cfg.S2MMGenLockMode == GenLockDynamicSlave {
		cr |= crGenlockSrc
	}
	v.regs.Write32(vdmaS2MMCR, cr)
	v.regs.Write32(vdmaS2MMHSize, uint32(hsizeBytes))
	v.regs.Write32(vdmaS2MMDlyStride, uint32(stride)&0xFFFF)
	v.regs.Write32(vdmaS2MMVSize, uint32(vsize))

	if !v.waitFor(func() bool { return v.regs.Read32(vdmaS2MMSR)&srHalted == 0 }) {
		return errStartTimeout
	}
	if sr := v.regs.Read32(vdmaS2MMSR); sr&srErrMask != 0 {
		return fmt.Errorf("vdma: channel error, status %#08x", sr)
	}
	return nil
}

// Stop clears run/stop and waits for the channel to halt.
func (v *VDMA) Stop() error {
	v.regs.Write32(vdmaS2MMCR, v.regs.Read32(vdmaS2MMCR)&^crRunStop)
	if !v.waitFor(v.Halted) {
		return errHaltTimeout
	}
	return nil
}

// Halted reports whether the channel is halted.
func (v *VDMA) Halted() bool {
	return v.regs.Read32(vdmaS2MMSR)&srHalted != 0
}

// Version returns the raw core version register.
func (v *VDMA) Version() uint32 {
	return v.regs.Read32(vdmaVersion)
}

func (v *VDMA) waitFor(cond func() bool) bool {
	for i := 0; i < v.tries; i++ {
		if cond() {
			return true
		}
		time.Sleep(v.poll)
	}
	return cond()
}
