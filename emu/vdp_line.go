package emu

// --- Scanline hooks ---

// StartScanline moves the VDP to line, which begins at master cycle. It
// handles frame and VBlank boundaries, steps the line interrupt counter,
// continues any outstanding DMA and draws active lines. It reports whether
// a line interrupt fired.
func (v *VDP) StartScanline(line int, cycle uint64) (hInt bool) {
	v.line = line
	v.lineStartCycle = cycle

	if v.z80IRQ {
		v.z80IRQ = false
		v.z80.SetIRQ(0)
	}

	if line == 0 {
		v.status &^= statusVBlank
		v.vintDelivered = false
		v.vintStatusRead = false
		v.fifoSlots = 0
		if v.interlaceMode()&1 != 0 {
			v.oddFrame = !v.oddFrame
		} else {
			v.oddFrame = false
		}
	}

	if line == v.activeHeight {
		v.status |= statusVBlank
		v.flushFIFO()
	}

	// The counter reloads from reg 10 outside the active area and counts
	// down once per active line. The SMS also counts the first VBlank line.
	last := v.activeHeight - 1
	if v.model != ModelMD {
		last = v.activeHeight
	}
	if line == 0 || line > last {
		v.hintCounter = int(v.regs[10])
	}
	if line <= last {
		v.hintCounter--
		if v.hintCounter < 0 {
			v.hintCounter = int(v.regs[10])
			v.raiseHInt()
			hInt = v.hIntEnabled()
		}
	}

	if v.dmaLength > 0 {
		v.runDMA(cycle)
	}

	if line < v.activeHeight {
		v.renderer.RenderLine(v.renderMode, line)
	}
	return hInt
}

// EndScanline finishes the current line. On the first VBlank line it
// raises the frame interrupt if the host has not already done so at
// VIntCycle.
func (v *VDP) EndScanline(cycle uint64) {
	if v.line == v.activeHeight {
		v.RaiseVInt(cycle)
	}
}

// Line returns the current scanline.
func (v *VDP) Line() int {
	return v.line
}

// LineStartCycle returns the master cycle at which the current line began.
func (v *VDP) LineStartCycle() uint64 {
	return v.lineStartCycle
}

// LinesPerFrame returns 262 (NTSC) or 313 (PAL).
func (v *VDP) LinesPerFrame() int {
	return v.linesPerFrame
}

// InVBlank reports whether the beam is in vertical blanking.
func (v *VDP) InVBlank() bool {
	return v.inVBlank()
}
