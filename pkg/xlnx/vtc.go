package xlnx

// Video Timing Controller detector registers.
const (
	vtcCtl          = 0x000
	vtcDetActive    = 0x020
	vtcDetStatus    = 0x024
	vtcWindow       = 0x10000
	vtcCtlSwEnable  = 1 << 0
	vtcCtlRegUpdate = 1 << 1
	vtcCtlDetEnable = 1 << 3
	vtcStatusLocked = 1 << 0
	vtcSizeMask     = 0x1FFF
)

// VTC reads the active video size from a timing detector.
type VTC struct {
	regs Regs
}

// Enable turns on the detector.
func (v *VTC) Enable() {
	v.regs.Write32(vtcCtl, vtcCtlSwEnable|vtcCtlRegUpdate|vtcCtlDetEnable)
}

// Disable turns the detector off.
func (v *VTC) Disable() {
	v.regs.Write32(vtcCtl, 0)
}

// Locked reports whether the detector has locked onto the input signal.
func (v *VTC) Locked() bool {
	return v.regs.Read32(vtcDetStatus)&vtcStatusLocked != 0
}

// Detect samples the active size registers.
func (v *VTC) Detect() Timing {
	active := v.regs.Read32(vtcDetActive)
	return Timing{
		Width:  int(active & vtcSizeMask),
		Height: int(active >> 16 & vtcSizeMask),
	}
}
