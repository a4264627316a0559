package xlnx

// AXI GPIO registers.
const (
	gpioData   = 0x0
	gpioTri    = 0x4
	gpio2Data  = 0x8
	gpio2Tri   = 0xC
	gpioWindow = 0x10000
)

// GPIO drives the active-low reset line of the capture pipeline.
type GPIO struct {
	regs Regs
	data uint32
	tri  uint32
	mask uint32
}

func newGPIO(regs Regs, cfg GPIOConfig) *GPIO {
	g := &GPIO{regs: regs, data: gpioData, tri: gpioTri, mask: cfg.ResetMask}
	if cfg.ResetChannel == 2 {
		g.data, g.tri = gpio2Data, gpio2Tri
	}
	return g
}

// Init configures the reset line as an output and holds it in reset.
func (g *GPIO) Init() {
	g.regs.Write32(g.tri, g.regs.Read32(g.tri)&^g.mask)
	g.Assert()
}

// Assert drives the reset line low.
func (g *GPIO) Assert() {
	g.regs.Write32(g.data, g.regs.Read32(g.data)&^g.mask)
}

// Release drives the reset line high.
func (g *GPIO) Release() {
	g.regs.Write32(g.data, g.regs.Read32(g.data)|g.mask)
}

// Released reports whether the pipeline is out of reset.
func (g *GPIO) Released() bool {
	return g.regs.Read32(g.data)&g.mask == g.mask
}
