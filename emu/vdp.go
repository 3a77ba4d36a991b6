package emu

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/user-none/emvdp/emu/log"
)

// Model identifies which VDP generation is being emulated.
type Model int

const (
	ModelTMS9918 Model = iota // SG-1000 / TMS9918A
	ModelSMS                  // Master System 315-5124
	ModelSMS2                 // Master System II 315-5246 (extended heights)
	ModelGG                   // Game Gear (12-bit CRAM)
	ModelMD                   // Mega Drive 315-5313 (Mode 4 + Mode 5)
)

var modelNames = []string{"tms9918", "sms", "sms2", "gg", "md"}

func (m Model) String() string {
	if m >= 0 && int(m) < len(modelNames) {
		return modelNames[m]
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel returns the model with the given name.
func ParseModel(s string) (Model, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modelNames {
		if s == name {
			return Model(i), nil
		}
	}
	switch s {
	case "genesis", "megadrive", "315-5313":
		return ModelMD, nil
	case "sg1000", "tms":
		return ModelTMS9918, nil
	}
	return 0, fmt.Errorf("unknown VDP model %q", s)
}

// Renderer is the per-mode rasterizer. The VDP only decides when a line must
// be drawn or re-composed; the drawing itself lives outside this package.
type Renderer interface {
	// RenderLine draws the given active line from VRAM/CRAM/VSRAM.
	RenderLine(mode RenderMode, line int)
	// RemapLine re-composes the given line through the current palette
	// without walking tile data again.
	RemapLine(line int)
}

// CPU is the VDP's view of a bus master. Cycles are master clocks.
type CPU interface {
	// Stall freezes the CPU until the given master-clock cycle.
	Stall(cycle uint64)
	// SetIRQ drives the CPU interrupt input (0 = deasserted).
	SetIRQ(level uint8)
}

// BusReader provides word-level read access to the 68K bus for DMA transfers.
type BusReader interface {
	ReadWord(addr uint32) uint16
}

// RAMReader is optionally implemented by a BusReader to serve DMA from
// 68K work RAM without going through the full address decoder.
type RAMReader interface {
	ReadRAMWord(offset uint16) uint16
}

// IOReader is optionally implemented by a BusReader to serve DMA sourced
// from the I/O chip registers.
type IOReader interface {
	ReadIOByte(addr uint32) uint8
}

type nopRenderer struct{}

func (nopRenderer) RenderLine(RenderMode, int) {}
func (nopRenderer) RemapLine(int) {}

type nopCPU struct{}

func (nopCPU) Stall(uint64) {}
func (nopCPU) SetIRQ(uint8) {}

// busMaster identifies which CPU issued a port access.
type busMaster uint8

const (
	master68K busMaster = iota
	masterZ80
)

func (m busMaster) String() string {
	if m == masterZ80 {
		return "z80"
	}
	return "68k"
}

// VDP is the video display processor shared by the TMS9918, SMS/GG and
// Mega Drive consoles.
type VDP struct {
	model Model
	isPAL bool

	vram  [0x10000]uint8 // 16KB used below ModelMD
	cram  [0x80]uint8    // packed palette words, big-endian
	vsram [0x80]uint8    // 40 entries used, rest mirrors what was written
	sat   [0x400]uint8   // internal sprite attribute shadow

	regs [0x20]uint8

	// Control port state machine
	pending    bool
	addrLatch  uint16
	addr       uint16
	code       uint8
	readBuffer uint8 // Mode 4/TMS data port read buffer
	ggLatch    uint8 // Game Gear CRAM even byte

	// Writes deferred while a bus DMA owns the bus
	cached []cachedWrite

	// Register-derived state, recomputed by writeRegister
	ntab, ntbb, ntwb uint16
	satb, hscb       uint16
	satBaseMask      uint16
	satAddrMask      uint16
	ctab, pgtab      uint16 // TMS colour / pattern generator tables
	spgtab           uint16 // TMS/Mode 4 sprite pattern generator
	hscrollMask      uint32
	playfieldShift   uint8
	playfieldColMask uint8
	playfieldRowMask uint16
	clip             [2]WindowClip
	maxSpritePixels  int
	border           uint8
	renderMode       RenderMode
	activeHeight     int
	vcMax            int
	timing           *widthTiming

	// Palette cache (normal, shadow, highlight) plus backdrop
	palette  [3][0x40]color.RGBA
	backdrop color.RGBA

	// Status and counters
	status         uint16 // sticky flags: VInt, SOVR, SCOL, VBlank, DMA busy
	oddFrame       bool
	line           int
	linesPerFrame  int
	lineStartCycle uint64
	hvLatch        uint32 // bit 16 set while latched
	hintCounter    int
	vintDelivered  bool
	vintStatusRead bool // status read already reported this frame's VInt
	fifthSprite    uint8

	// Interrupts
	hintPending bool
	vintPending bool
	irqLevel    uint8 // level currently driven on the main CPU
	z80IRQ      bool  // MD: VBlank line held on the Z80

	// DMA
	dmaType        DMAType
	dmaLength      uint32
	dmaSrc         uint16
	dmaEndCycle    uint64
	dmaFillPending bool

	// FIFO
	fifo           [4]uint16
	fifoIdx        int
	fifoWriteCount int
	fifoByteAccess bool
	fifoSlots      int
	fifoNextCycle  uint64

	// Pattern cache invalidation
	bgNameDirty [0x800]uint8
	bgNameList  [0x800]uint16
	bgListIndex int

	// Collaborators
	renderer Renderer
	m68k     CPU
	z80      CPU
	bus      BusReader

	lastCycle [2]uint64
	restoring bool
}

// NewVDP creates a VDP of the given model in its power-on state.
func NewVDP(model Model, isPAL bool) *VDP {
	v := &VDP{
		model:    model,
		isPAL:    isPAL,
		renderer: nopRenderer{},
		m68k:     nopCPU{},
		z80:      nopCPU{},
	}
	v.Reset()
	return v
}

// SetRenderer installs the rasterizer called for mid-line redraws.
func (v *VDP) SetRenderer(r Renderer) {
	if r == nil {
		r = nopRenderer{}
	}
	v.renderer = r
}

// SetCPUs connects the 68K and Z80 views used for stalls and interrupts.
// Either may be nil when the console lacks that CPU.
func (v *VDP) SetCPUs(main68k, z80 CPU) {
	if main68k == nil {
		main68k = nopCPU{}
	}
	if z80 == nil {
		z80 = nopCPU{}
	}
	v.m68k = main68k
	v.z80 = z80
}

// SetBus sets the bus reader for DMA transfers.
// Called after GenesisBus is created due to circular construction dependency.
func (v *VDP) SetBus(bus BusReader) {
	v.bus = bus
}

// Model returns the emulated chip generation.
func (v *VDP) Model() Model {
	return v.model
}

// IsPAL reports whether the VDP runs 50Hz timing.
func (v *VDP) IsPAL() bool {
	return v.isPAL
}

// Reset performs a hardware reset: memories and registers are cleared,
// derived state is rebuilt, and the registers the boot ROM would have
// programmed are written through the normal register path.
func (v *VDP) Reset() {
	v.vram = [0x10000]uint8{}
	v.cram = [0x80]uint8{}
	v.vsram = [0x80]uint8{}
	v.sat = [0x400]uint8{}
	v.regs = [0x20]uint8{}

	v.pending = false
	v.addrLatch = 0
	v.addr = 0
	v.code = 0
	v.readBuffer = 0
	v.ggLatch = 0
	v.cached = v.cached[:0]

	v.status = 0
	v.oddFrame = false
	v.line = 0
	v.lineStartCycle = 0
	v.hvLatch = 0
	v.hintCounter = 0
	v.vintDelivered = false
	v.vintStatusRead = false
	v.fifthSprite = 0

	v.hintPending = false
	v.vintPending = false
	v.irqLevel = 0
	v.z80IRQ = false

	v.dmaType = DMABusExternal
	v.dmaLength = 0
	v.dmaSrc = 0
	v.dmaEndCycle = 0
	v.dmaFillPending = false

	v.fifo = [4]uint16{}
	v.fifoIdx = 0
	v.fifoWriteCount = 0
	v.fifoByteAccess = false
	v.fifoSlots = 0
	v.fifoNextCycle = 0

	v.lastCycle = [2]uint64{}

	if v.isPAL {
		v.linesPerFrame = 313
	} else {
		v.linesPerFrame = 262
	}

	v.rebuildDerived()
	v.rebuildPalette()
	v.invalidateAllTiles()

	v.restoring = true
	for _, w := range bootRegisters(v.model) {
		v.writeRegister(w.reg, w.val, 0)
	}
	v.restoring = false

	log.ModVDP.Debugf("reset model=%s pal=%v", v.model, v.isPAL)
}

type regWrite struct {
	reg uint8
	val uint8
}

// bootRegisters returns the register values left behind by each console's
// boot ROM.
func bootRegisters(m Model) []regWrite {
	switch m {
	case ModelMD:
		return []regWrite{{0, 0x04}, {1, 0x04}, {10, 0xFF}, {15, 0x02}}
	case ModelTMS9918:
		return nil
	default:
		return []regWrite{
			{0, 0x36}, {1, 0x80}, {2, 0xFF}, {3, 0xFF},
			{4, 0xFF}, {5, 0xFF}, {6, 0xFF}, {10, 0xFF},
		}
	}
}

// --- Register helpers ---

func (v *VDP) mode5() bool {
	return v.model == ModelMD && v.regs[1]&0x04 != 0
}

func (v *VDP) displayEnabled() bool {
	return v.regs[1]&0x40 != 0
}

func (v *VDP) vIntEnabled() bool {
	return v.regs[1]&0x20 != 0
}

func (v *VDP) dmaEnabled() bool {
	return v.regs[1]&0x10 != 0
}

func (v *VDP) hIntEnabled() bool {
	return v.regs[0]&0x10 != 0
}

func (v *VDP) h40Mode() bool {
	return v.mode5() && v.regs[12]&0x01 != 0
}

func (v *VDP) autoIncrement() uint16 {
	return uint16(v.regs[15])
}

func (v *VDP) vramMask() uint16 {
	if v.model == ModelMD {
		return 0xFFFF
	}
	return 0x3FFF
}

// interlaceMode returns the interlace mode from reg 12 bits 2:1.
// 0 = no interlace, 1 = interlace normal, 2 = invalid, 3 = interlace double-res.
func (v *VDP) interlaceMode() int {
	if !v.mode5() {
		return 0
	}
	return int((v.regs[12] >> 1) & 0x03)
}

func (v *VDP) interlaceDoubleRes() bool {
	return v.interlaceMode() == 3
}

// inVBlank reports the stored vertical blanking flag.
func (v *VDP) inVBlank() bool {
	return v.status&statusVBlank != 0
}

// blanked reports whether VRAM access is unrestricted: vertical blanking or
// display disabled.
func (v *VDP) blanked() bool {
	return v.inVBlank() || !v.displayEnabled()
}

// lineCycle returns the master-clock offset of cycle within the current line.
func (v *VDP) lineCycle(cycle uint64) int {
	if cycle <= v.lineStartCycle {
		return 0
	}
	return int(cycle - v.lineStartCycle)
}

// inHBlankWindow reports whether a change at cycle lands in the active
// display window early enough that the current line has not been output
// yet and must be redrawn.
func (v *VDP) inHBlankWindow(cycle uint64) bool {
	return !v.restoring &&
		v.line < v.activeHeight &&
		v.lineCycle(cycle) <= hblankRedrawCutoff
}

// ActiveHeight returns the current active display height.
func (v *VDP) ActiveHeight() int {
	return v.activeHeight
}

// ActiveWidth returns the current active display width.
func (v *VDP) ActiveWidth() int {
	if v.h40Mode() {
		return 320
	}
	return 256
}

// RenderHeight returns the framebuffer render height. Double in interlace mode 2.
func (v *VDP) RenderHeight() int {
	if v.interlaceDoubleRes() {
		return v.activeHeight * 2
	}
	return v.activeHeight
}

// RenderMode returns the rasterizer selection for the current registers.
func (v *VDP) RenderMode() RenderMode {
	return v.renderMode
}

// Register returns the raw value of register r.
func (v *VDP) Register(r int) uint8 {
	return v.regs[r&0x1F]
}

// VRAM exposes tile memory to the renderer.
func (v *VDP) VRAM() []uint8 {
	return v.vram[:int(v.vramMask())+1]
}

// VSRAM exposes vertical scroll memory to the renderer.
func (v *VDP) VSRAM() []uint8 {
	return v.vsram[:]
}

// SAT exposes the internal sprite attribute shadow to the renderer.
func (v *VDP) SAT() []uint8 {
	return v.sat[:]
}

// CRAMWord returns palette entry i in the chip's internal packed format.
func (v *VDP) CRAMWord(i int) uint16 {
	i = (i & 0x3F) << 1
	return uint16(v.cram[i])<<8 | uint16(v.cram[i+1])
}

func (v *VDP) setCRAMWord(i int, w uint16) {
	i = (i & 0x3F) << 1
	v.cram[i] = uint8(w >> 8)
	v.cram[i+1] = uint8(w)
}

func (v *VDP) vsramWord(addr uint16) uint16 {
	a := addr & 0x7E
	return uint16(v.vsram[a])<<8 | uint16(v.vsram[a+1])
}

func (v *VDP) setVSRAMWord(addr uint16, w uint16) {
	a := addr & 0x7E
	v.vsram[a] = uint8(w >> 8)
	v.vsram[a+1] = uint8(w)
}

// SetSpriteStatus is called by the renderer when sprite evaluation finds an
// overflow or a collision. fifth is the TMS fifth-sprite number.
func (v *VDP) SetSpriteStatus(overflow, collision bool, fifth uint8) {
	if overflow {
		v.status |= statusSpriteOverflow
	}
	if collision {
		v.status |= statusSpriteCollision
	}
	if v.model == ModelTMS9918 {
		v.fifthSprite = fifth & 0x1F
	}
}

func (v *VDP) cpuFor(m busMaster) CPU {
	if m == masterZ80 {
		return v.z80
	}
	return v.m68k
}

// mainMaster returns the CPU wired to the VDP interrupt output.
func (v *VDP) mainMaster() busMaster {
	if v.model == ModelMD {
		return master68K
	}
	return masterZ80
}
