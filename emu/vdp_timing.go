package emu

// Master clocks per scanline on every model.
const MasterCyclesPerLine = 3420

// Line-relative thresholds, in master clocks.
const (
	hblankEndCycle     = 588 // status HBlank bit reads set before this point
	vintTriggerCycle   = 788 // VInt asserted this far into the first VBlank line
	hblankRedrawCutoff = 860 // mid-line changes after this are seen next line

	// Wait state charged for a data port read with an invalid code (two
	// 68K cycles).
	invalidAccessPenalty = 14
)

// Status register bits.
const (
	statusFIFOEmpty       = 0x0200
	statusFIFOFull        = 0x0100
	statusVInt            = 0x0080
	statusSpriteOverflow  = 0x0040
	statusSpriteCollision = 0x0020
	statusOddFrame        = 0x0010
	statusVBlank          = 0x0008
	statusHBlank          = 0x0004
	statusDMABusy         = 0x0002
	statusPAL             = 0x0001

	// Bits 15:10 of the Mode 5 status word read back as 011101 on the MD chip.
	statusFixedBits = 0x7400
)

// RenderMode selects the rasterizer path for a line.
type RenderMode uint8

const (
	RenderGraphic1 RenderMode = iota
	RenderGraphic2
	RenderMulticolor
	RenderText
	RenderMode4
	RenderMode5
	RenderMode5Interlace
	RenderInvalid
)

var renderModeNames = [...]string{
	"graphic1", "graphic2", "multicolor", "text",
	"mode4", "mode5", "mode5-interlace", "invalid",
}

func (m RenderMode) String() string {
	if int(m) < len(renderModeNames) {
		return renderModeNames[m]
	}
	return "invalid"
}

// WindowClip describes which columns a plane covers on a window line.
// Units are 2-cell columns.
type WindowClip struct {
	Left, Right int
	Enable      bool
}

// widthTiming groups every table that depends on H32/H40.
type widthTiming struct {
	h40             bool
	fifoSlots       []int   // access slot positions within a line
	dmaActiveRate   int     // access slots per active line
	hcounter        []uint8 // H counter value per master clock in a line
	satBaseMask     uint16
	satAddrMask     uint16
	maxSpritePixels int
	windowColumns   int
}

// FIFO access slots, in master clocks from line start. The four trailing
// entries are the first slots of the next line so the next-slot lookup never
// runs off the end.
var fifoTimingH32 = []int{
	230, 510, 810, 970, 1130, 1450, 1610, 1770, 2090, 2250, 2410, 2730, 2890, 3050, 3350, 3370,
	MasterCyclesPerLine + 230, MasterCyclesPerLine + 510, MasterCyclesPerLine + 810, MasterCyclesPerLine + 970,
}

var fifoTimingH40 = []int{
	352, 820, 948, 1076, 1332, 1460, 1588, 1844, 1972, 2100, 2356, 2484, 2612, 2868, 2996, 3124, 3364, 3380,
	MasterCyclesPerLine + 352, MasterCyclesPerLine + 820, MasterCyclesPerLine + 948, MasterCyclesPerLine + 1076,
}

// DMA bytes per line, indexed [blanked][h40].
var dmaTiming = [2][2]int{
	{16, 18},
	{167, 205},
}

// V counter overflow points, indexed [height][pal]. Counts above the limit
// jump back by one frame's worth of lines.
var vcTable = [4][2]int{
	{0xDA, 0xF2},   // 192 lines
	{0xEA, 0x102},  // 224 lines
	{0xDA, 0xF2},   // unused
	{0x106, 0x10A}, // 240 lines
}

var (
	hcTableH32 = buildHCounter(0xE9, 0x93)
	hcTableH40 = buildHCounter(0xE4, 0xB6)
	hcTableM4  = buildHCounterM4()
)

var (
	timingH32 = &widthTiming{
		fifoSlots:       fifoTimingH32,
		dmaActiveRate:   16,
		hcounter:        hcTableH32,
		satBaseMask:     0xFE00,
		satAddrMask:     0x01FF,
		maxSpritePixels: 256,
		windowColumns:   16,
	}
	timingH40 = &widthTiming{
		h40:             true,
		fifoSlots:       fifoTimingH40,
		dmaActiveRate:   18,
		hcounter:        hcTableH40,
		satBaseMask:     0xFC00,
		satAddrMask:     0x03FF,
		maxSpritePixels: 320,
		windowColumns:   20,
	}
	timingM4 = &widthTiming{
		fifoSlots:       fifoTimingH32,
		dmaActiveRate:   16,
		hcounter:        hcTableM4,
		satBaseMask:     0xFE00,
		satAddrMask:     0x01FF,
		maxSpritePixels: 256,
		windowColumns:   16,
	}
)

// buildHCounter spreads the H counter sequence first..0xFF, 0x00..last over
// one line of master clocks. The sequence starts at the beginning of HBlank.
func buildHCounter(first, last int) []uint8 {
	seq := make([]uint8, 0, 256)
	for h := first; h <= 0xFF; h++ {
		seq = append(seq, uint8(h))
	}
	for h := 0; h <= last; h++ {
		seq = append(seq, uint8(h))
	}
	table := make([]uint8, MasterCyclesPerLine)
	for c := range table {
		table[c] = seq[c*len(seq)/MasterCyclesPerLine]
	}
	return table
}

// buildHCounterM4 produces the Mode 4 H counter as seen from the Z80 port.
// The counter steps every 20 master clocks (two pixels), running 0x00-0x93
// across the active area and border, then jumping to 0xE9-0xFF.
func buildHCounterM4() []uint8 {
	table := make([]uint8, MasterCyclesPerLine)
	for c := range table {
		idx := c / 20
		if idx < 0x94 {
			table[c] = uint8(idx)
		} else {
			table[c] = uint8(0xE9 + idx - 0x94)
		}
	}
	return table
}

// selectTiming picks the width-dependent tables for the current registers.
func (v *VDP) selectTiming() *widthTiming {
	if !v.mode5() {
		return timingM4
	}
	if v.regs[12]&0x01 != 0 {
		return timingH40
	}
	return timingH32
}

// vcLimit returns the overflow point for the current height and region.
func (v *VDP) vcLimit() int {
	pal := 0
	if v.isPAL {
		pal = 1
	}
	switch v.activeHeight {
	case 224:
		return vcTable[1][pal]
	case 240:
		return vcTable[3][pal]
	default:
		return vcTable[0][pal]
	}
}
