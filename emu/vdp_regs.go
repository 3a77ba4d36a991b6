package emu

import "github.com/user-none/emvdp/emu/log"

// Horizontal scroll masks indexed by reg 11 bits 1:0.
var hscrollMasks = [4]uint32{0x00000000, 0x00000007, 0xFFFFFFF8, 0xFFFFFFFF}

// Playfield size tables indexed by reg 16 bit pairs.
var (
	playfieldShifts   = [4]uint8{6, 7, 0, 8}
	playfieldColMasks = [4]uint8{0x0F, 0x1F, 0x0F, 0x3F}
	playfieldRowMasks = [4]uint16{0x0FF, 0x1FF, 0x2FF, 0x3FF}
)

// DerivedState is a snapshot of every value the register bank derives from
// the raw registers.
type DerivedState struct {
	Mode         RenderMode
	ActiveHeight int
	VCMax        int
	H40          bool

	NameTableA   uint16
	NameTableB   uint16
	WindowTable  uint16
	SpriteTable  uint16
	HScrollTable uint16

	ColorTable         uint16
	PatternTable       uint16
	SpritePatternTable uint16

	SATBaseMask      uint16
	SATAddrMask      uint16
	HScrollMask      uint32
	PlayfieldShift   uint8
	PlayfieldColMask uint8
	PlayfieldRowMask uint16
	WindowClip       [2]WindowClip
	MaxSpritePixels  int
	Border           uint8
}

// DerivedState returns the register-derived values currently in effect.
func (v *VDP) DerivedState() DerivedState {
	return DerivedState{
		Mode:               v.renderMode,
		ActiveHeight:       v.activeHeight,
		VCMax:              v.vcMax,
		H40:                v.timing.h40,
		NameTableA:         v.ntab,
		NameTableB:         v.ntbb,
		WindowTable:        v.ntwb,
		SpriteTable:        v.satb,
		HScrollTable:       v.hscb,
		ColorTable:         v.ctab,
		PatternTable:       v.pgtab,
		SpritePatternTable: v.spgtab,
		SATBaseMask:        v.satBaseMask,
		SATAddrMask:        v.satAddrMask,
		HScrollMask:        v.hscrollMask,
		PlayfieldShift:     v.playfieldShift,
		PlayfieldColMask:   v.playfieldColMask,
		PlayfieldRowMask:   v.playfieldRowMask,
		WindowClip:         v.clip,
		MaxSpritePixels:    v.maxSpritePixels,
		Border:             v.border,
	}
}

// registerCount returns how many registers the model decodes right now.
func (v *VDP) registerCount() uint8 {
	switch {
	case v.model == ModelTMS9918:
		return 8
	case v.mode5():
		return 24
	default:
		return 11
	}
}

// writeRegister stores a register value and applies the side effects of
// every bit that changed.
func (v *VDP) writeRegister(reg uint8, data uint8, cycle uint64) {
	reg &= 0x1F
	if reg >= v.registerCount() {
		log.ModVDP.Debugf("ignored write to reg %d (0x%02X)", reg, data)
		return
	}

	old := v.regs[reg]
	v.regs[reg] = data
	changed := old ^ data
	if changed == 0 {
		return
	}

	switch reg {
	case 0:
		if changed&0x10 != 0 && v.hintPending {
			v.updateIRQ()
		}
		if v.mode5() {
			if changed&0x04 != 0 && v.inHBlankWindow(cycle) && v.displayEnabled() {
				v.renderer.RemapLine(v.line)
			}
			if changed&0x02 != 0 && !v.restoring {
				if data&0x02 != 0 {
					v.hvLatch = uint32(v.hvCounter(cycle)) | 0x10000
				} else {
					v.hvLatch = 0
				}
			}
		} else if changed&0x06 != 0 {
			v.updateRenderMode()
		}

	case 1:
		if changed&0x20 != 0 {
			v.updateIRQ()
		}
		if v.model == ModelMD && changed&0x04 != 0 {
			// Mode 5 toggles the whole register decoder
			v.rebuildDerived()
			v.rebuildPalette()
		} else if changed&0x18 != 0 {
			v.updateRenderMode()
		}
		if changed&0x40 != 0 && v.inHBlankWindow(cycle) {
			v.renderer.RenderLine(v.renderMode, v.line)
		}

	case 2, 3, 4, 5, 6:
		v.updateTableBases()
		if reg <= 4 && v.inHBlankWindow(cycle) && v.displayEnabled() {
			v.renderer.RenderLine(v.renderMode, v.line)
		}

	case 7:
		v.updateBorder()
		if v.inHBlankWindow(cycle) && v.displayEnabled() {
			v.renderer.RemapLine(v.line)
		}

	case 11:
		v.hscrollMask = hscrollMasks[data&0x03]

	case 12:
		if changed&0x01 != 0 {
			v.updateWidth()
		}
		if changed&0x06 != 0 {
			v.updateRenderMode()
		}
		if changed&0x08 != 0 && v.inHBlankWindow(cycle) && v.displayEnabled() {
			v.renderer.RemapLine(v.line)
		}

	case 13:
		v.hscb = uint16(data) << 10 & 0xFC00

	case 16:
		v.updatePlayfieldSize()

	case 17:
		v.updateWindowClip()
	}
}

// rebuildDerived recomputes every register-derived value from scratch.
func (v *VDP) rebuildDerived() {
	v.updateWidth()
	v.updateRenderMode()
	v.updateBorder()
	v.hscrollMask = hscrollMasks[v.regs[11]&0x03]
	v.hscb = uint16(v.regs[13]) << 10 & 0xFC00
	v.updatePlayfieldSize()
}

// updateWidth swaps every H32/H40 dependent value.
func (v *VDP) updateWidth() {
	old := v.timing
	v.timing = v.selectTiming()
	if old != nil && old != v.timing {
		// The FIFO slot count runs from the top of the frame; restate the
		// lines already passed at the new rate.
		v.fifoSlots += (v.timing.dmaActiveRate - old.dmaActiveRate) * v.line
	}
	v.satBaseMask = v.timing.satBaseMask
	v.satAddrMask = v.timing.satAddrMask
	v.maxSpritePixels = v.timing.maxSpritePixels
	v.updateTableBases()
	v.updateWindowClip()
}

func (v *VDP) computeRenderMode() (RenderMode, int) {
	if v.mode5() {
		height := 224
		if v.regs[1]&0x08 != 0 {
			height = 240
		}
		if v.interlaceDoubleRes() {
			return RenderMode5Interlace, height
		}
		return RenderMode5, height
	}

	m := v.regs[0]&0x06 | v.regs[1]&0x18
	if v.model == ModelMD || (v.model != ModelTMS9918 && m&0x04 != 0) {
		height := 192
		if v.model == ModelSMS2 || v.model == ModelGG {
			switch m {
			case 0x16:
				height = 224
			case 0x0E:
				height = 240
			}
		}
		return RenderMode4, height
	}

	switch m & 0x1A {
	case 0x00:
		return RenderGraphic1, 192
	case 0x02:
		return RenderGraphic2, 192
	case 0x08:
		return RenderMulticolor, 192
	case 0x10:
		return RenderText, 192
	}
	return RenderInvalid, 192
}

func (v *VDP) updateRenderMode() {
	mode, height := v.computeRenderMode()
	if mode != v.renderMode || height != v.activeHeight {
		log.ModVDP.Debugf("render mode %s, %d lines", mode, height)
	}
	v.renderMode = mode
	v.activeHeight = height
	v.vcMax = v.vcLimit()
	v.updateTableBases()
}

// updateTableBases recomputes the VRAM table addresses from regs 2-6.
func (v *VDP) updateTableBases() {
	r := &v.regs
	switch v.renderMode {
	case RenderMode5, RenderMode5Interlace:
		v.ntab = uint16(r[2]) << 10 & 0xE000
		if v.timing.h40 {
			v.ntwb = uint16(r[3]) << 10 & 0xF000
		} else {
			v.ntwb = uint16(r[3]) << 10 & 0xF800
		}
		v.ntbb = uint16(r[4]) << 13 & 0xE000
		v.satb = uint16(r[5]) << 9 & v.satBaseMask
		v.ctab, v.pgtab, v.spgtab = 0, 0, 0
	case RenderMode4:
		v.ntab = uint16(r[2]) << 10 & 0x3800
		v.satb = uint16(r[5]) << 7 & 0x3F00
		v.spgtab = uint16(r[6]) << 11 & 0x2000
		v.ntbb, v.ntwb, v.ctab, v.pgtab = 0, 0, 0, 0
	default:
		v.ntab = uint16(r[2]&0x0F) << 10
		v.satb = uint16(r[5]&0x7F) << 7
		v.spgtab = uint16(r[6]&0x07) << 11
		if v.renderMode == RenderGraphic2 {
			v.ctab = uint16(r[3]&0x80) << 6
			v.pgtab = uint16(r[4]&0x04) << 11
		} else {
			v.ctab = uint16(r[3]) << 6
			v.pgtab = uint16(r[4]&0x07) << 11
		}
		v.ntbb, v.ntwb = 0, 0
	}
}

func (v *VDP) updateBorder() {
	if v.mode5() {
		v.border = v.regs[7] & 0x3F
	} else {
		v.border = 0x10 | v.regs[7]&0x0F
	}
	v.updateBackdrop()
}

func (v *VDP) updatePlayfieldSize() {
	d := v.regs[16]
	v.playfieldShift = playfieldShifts[d&0x03]
	v.playfieldColMask = playfieldColMasks[d&0x03]
	v.playfieldRowMask = playfieldRowMasks[(d>>4)&0x03]
}

// updateWindowClip splits the line between plane A (clip[0]) and the window
// plane (clip[1]) from reg 17.
func (v *VDP) updateWindowClip() {
	d := v.regs[17]
	hp := int(d & 0x1F)
	sw := v.timing.windowColumns

	a, w := 0, 1
	if d&0x80 != 0 {
		a, w = 1, 0
	}

	switch {
	case hp == 0:
		v.clip[a] = WindowClip{Left: 0, Right: sw, Enable: true}
		v.clip[w].Enable = false
	case hp > sw:
		v.clip[w] = WindowClip{Left: 0, Right: sw, Enable: true}
		v.clip[a].Enable = false
	default:
		v.clip[w] = WindowClip{Left: 0, Right: hp, Enable: true}
		v.clip[a] = WindowClip{Left: hp, Right: sw, Enable: true}
	}
}
