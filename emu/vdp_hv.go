package emu

// --- Status register ---

// ReadStatus returns the 68K status word and applies the read side
// effects: the control port latch resets and the VInt, sprite overflow and
// sprite collision flags clear.
//
//	15-10  fixed 011101
//	9      FIFO empty
//	8      FIFO full
//	7      VInt happened
//	6      sprite overflow
//	5      sprite collision
//	4      odd field (interlace)
//	3      VBlank, or display disabled
//	2      HBlank
//	1      DMA busy (fill/copy)
//	0      PAL
func (v *VDP) ReadStatus(cycle uint64) uint16 {
	v.checkCycle(master68K, cycle)
	if v.model != ModelMD {
		return uint16(v.readStatusM4())
	}
	return v.readStatus(cycle)
}

func (v *VDP) readStatus(cycle uint64) uint16 {
	if v.fifoWriteCount > 0 {
		v.fifoUpdate(cycle)
	}
	if v.dmaBusyExpired(cycle) {
		v.status &^= statusDMABusy
	}

	s := v.statusWord(cycle, v.fifoWriteCount)
	if s&statusVInt != 0 {
		v.vintStatusRead = true
	}

	v.pending = false
	v.status &^= statusVInt | statusSpriteOverflow | statusSpriteCollision
	return s
}

// PeekStatus returns what ReadStatus would return at cycle without changing
// any state.
func (v *VDP) PeekStatus(cycle uint64) uint16 {
	if v.model != ModelMD {
		return uint16(v.statusByte())
	}
	count := v.fifoWriteCount
	if count > 0 {
		retired, _, _ := v.fifoProgress(cycle)
		count -= retired
	}
	return v.statusWord(cycle, count)
}

func (v *VDP) dmaBusyExpired(cycle uint64) bool {
	return v.status&statusDMABusy != 0 && v.dmaLength == 0 && cycle >= v.dmaEndCycle
}

// statusWord combines the stored flags with the bits computed from the
// beam position at cycle.
func (v *VDP) statusWord(cycle uint64, fifoCount int) uint16 {
	s := v.status&0x00FF | statusFixedBits
	if v.dmaBusyExpired(cycle) {
		s &^= statusDMABusy
	}
	if v.isPAL {
		s |= statusPAL
	}
	if !v.displayEnabled() {
		s |= statusVBlank
	}
	if v.lineCycle(cycle)%MasterCyclesPerLine < hblankEndCycle {
		s |= statusHBlank
	}
	if v.vintDue(cycle) {
		s |= statusVInt
	}
	if v.oddFrame && v.interlaceMode()&1 != 0 {
		s |= statusOddFrame
	}
	switch fifoCount {
	case 0:
		s |= statusFIFOEmpty
	case 4:
		s |= statusFIFOFull
	}
	return s
}

// vintDue reports whether the VInt trigger point has passed on the first
// VBlank line while the interrupt itself has not been raised yet. Once a
// status read has returned the flag it stays clear for the frame.
func (v *VDP) vintDue(cycle uint64) bool {
	return !v.vintDelivered && !v.vintStatusRead &&
		v.line == v.activeHeight &&
		v.lineCycle(cycle) >= vintTriggerCycle
}

// --- HV counter ---

// ReadHVCounter returns the HV counter (V in the high byte). In Mode 5 a
// value latched through reg 0 bit 1 is returned while the latch is held.
func (v *VDP) ReadHVCounter(cycle uint64) uint16 {
	if v.hvLatch&0x10000 != 0 && v.mode5() {
		return uint16(v.hvLatch)
	}
	return v.hvCounter(cycle)
}

// LatchHV captures the counter as the external HL input does (light guns,
// TH on the SMS ports). In Mode 5 it only takes effect with reg 0 bit 1 set.
func (v *VDP) LatchHV(cycle uint64) {
	if v.mode5() && v.regs[0]&0x02 == 0 {
		return
	}
	v.hvLatch = uint32(v.hvCounter(cycle)) | 0x10000
}

// hvCounter computes the free-running counter at cycle.
func (v *VDP) hvCounter(cycle uint64) uint16 {
	elapsed := v.lineCycle(cycle)
	hc := v.timing.hcounter[elapsed%MasterCyclesPerLine]

	vc := v.line + elapsed/MasterCyclesPerLine
	if vc > v.vcMax {
		vc -= v.linesPerFrame
	}

	if mode := v.interlaceMode(); mode&1 != 0 {
		if mode == 3 {
			vc <<= 1
		}
		// Bit 8 shows up in bit 0
		vc = vc&^1 | (vc>>8)&1
	}

	return uint16(vc&0xFF)<<8 | uint16(hc)
}

// VCounter returns the 8-bit V counter at cycle.
func (v *VDP) VCounter(cycle uint64) uint8 {
	return uint8(v.hvCounter(cycle) >> 8)
}

// HCounter returns the 8-bit H counter at cycle, or the latched value when
// the latch is held.
func (v *VDP) HCounter(cycle uint64) uint8 {
	if v.hvLatch&0x10000 != 0 {
		return uint8(v.hvLatch)
	}
	return uint8(v.hvCounter(cycle))
}
