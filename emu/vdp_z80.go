package emu

import "github.com/user-none/emvdp/emu/log"

// Byte-wide ports as seen from the Z80. SMS-family chips and the MD chip in
// Mode 4 use the two-byte command protocol with a read buffer. The MD chip
// in Mode 5 sees each byte on both halves of the data bus for control
// writes; data accesses are byte wide and bypass the FIFO.

// WriteControlByte handles a Z80 write to the control port.
func (v *VDP) WriteControlByte(cycle uint64, data uint8) {
	v.checkCycle(masterZ80, cycle)
	if v.mode5() {
		v.writeControl(masterZ80, cycle, uint16(data)<<8|uint16(data))
		return
	}
	v.writeControlM4(cycle, data)
}

// WriteDataByte handles a Z80 write to the data port.
func (v *VDP) WriteDataByte(cycle uint64, data uint8) {
	v.checkCycle(masterZ80, cycle)
	if v.mode5() {
		v.writeDataZ80M5(cycle, data)
		return
	}
	v.writeDataM4(cycle, data)
}

// ReadDataByte handles a Z80 read from the data port.
func (v *VDP) ReadDataByte(cycle uint64) uint8 {
	v.checkCycle(masterZ80, cycle)
	if v.mode5() {
		return v.readDataZ80M5()
	}
	return v.readDataM4()
}

// ReadStatusByte handles a Z80 read from the control port. In Mode 5 it
// returns the low byte of the status word.
func (v *VDP) ReadStatusByte(cycle uint64) uint8 {
	v.checkCycle(masterZ80, cycle)
	if v.mode5() {
		return uint8(v.readStatus(cycle))
	}
	return v.readStatusM4()
}

// --- Mode 4 / TMS ---

func (v *VDP) writeControlM4(cycle uint64, data uint8) {
	if !v.pending {
		v.addrLatch = uint16(data)
		v.addr = v.addr&0x3F00 | uint16(data)
		v.pending = true
		return
	}
	v.pending = false
	v.addr = uint16(data&0x3F)<<8 | v.addrLatch&0xFF
	v.code = (data >> 6) & 0x03

	// The TMS9918 decodes only bit 7 for register writes
	if v.model == ModelTMS9918 && v.code&0x02 != 0 {
		v.writeRegister(data&0x07, uint8(v.addrLatch), cycle)
		return
	}

	switch v.code {
	case 0:
		v.readBuffer = v.vram[v.addr&0x3FFF]
		v.addr = (v.addr + 1) & 0x3FFF
	case 2:
		reg := data & 0x0F
		if v.model == ModelMD {
			reg = data & 0x1F
		}
		v.writeRegister(reg, uint8(v.addrLatch), cycle)
	}
}

func (v *VDP) writeDataM4(cycle uint64, data uint8) {
	v.pending = false

	switch {
	case v.code == 3 && v.model == ModelGG:
		// 12-bit colours: the even byte is held until the odd byte arrives
		if v.addr&1 == 0 {
			v.ggLatch = data
		} else {
			w := uint16(data&0x0F)<<8 | uint16(v.ggLatch)
			v.cramWriteM4(cycle, int(v.addr>>1)&0x1F, w)
		}
	case v.code == 3 && v.model != ModelTMS9918:
		v.cramWriteM4(cycle, int(v.addr&0x1F), uint16(data&0x3F))
	default:
		a := v.addr & 0x3FFF
		if v.vram[a] != data {
			v.vram[a] = data
			v.markTileDirty(a)
		}
	}

	v.readBuffer = data
	v.addr = (v.addr + 1) & 0x3FFF
}

func (v *VDP) cramWriteM4(cycle uint64, index int, w uint16) {
	if v.storeCRAM(index, w) && v.inHBlankWindow(cycle) && v.displayEnabled() {
		v.renderer.RemapLine(v.line)
	}
}

func (v *VDP) readDataM4() uint8 {
	v.pending = false
	data := v.readBuffer
	v.readBuffer = v.vram[v.addr&0x3FFF]
	v.addr = (v.addr + 1) & 0x3FFF
	return data
}

// statusByte returns the SMS/TMS status: VInt, overflow, collision and, on
// the TMS9918, the fifth sprite number.
func (v *VDP) statusByte() uint8 {
	s := uint8(v.status) & 0xE0
	if v.model == ModelTMS9918 {
		s |= v.fifthSprite
	}
	return s
}

// readStatusM4 returns the status byte, clears the sticky flags and
// acknowledges both interrupt sources.
func (v *VDP) readStatusM4() uint8 {
	s := v.statusByte()
	v.pending = false
	v.status &^= statusVInt | statusSpriteOverflow | statusSpriteCollision
	v.acknowledgeM4()
	return s
}

// --- Mode 5 from the Z80 ---

func (v *VDP) writeDataZ80M5(cycle uint64, data uint8) {
	v.pending = false

	v.fifo[v.fifoIdx] = uint16(data) << 8
	v.fifoIdx = (v.fifoIdx + 1) & 3

	switch v.code & 0x0F {
	case 0x01: // VRAM, even address lands in the low byte
		index := v.addr ^ 1
		v.satByte(index, data)
		if v.vram[index] != data {
			v.vram[index] = data
			v.markTileDirty(index)
		}
	case 0x03: // CRAM
		index := int(v.addr>>1) & 0x3F
		w := v.CRAMWord(index)
		if v.addr&1 != 0 {
			w = w&0x3F | uint16(data&0x0E)<<5
		} else {
			w = w&0x1C0 | uint16(data&0x0E)>>1 | uint16(data&0xE0)>>2
		}
		if v.storeCRAM(index, w) && v.inHBlankWindow(cycle) && v.displayEnabled() {
			v.renderer.RemapLine(v.line)
		}
	case 0x05: // VSRAM
		v.vsram[(v.addr&0x7F)^1] = data
	default:
		log.ModBus.Debugf("z80 write 0x%02X with invalid code 0x%02X", data, v.code)
	}

	v.addr += v.autoIncrement()

	if v.dmaFillPending {
		v.startFill(cycle)
	}
}

func (v *VDP) readDataZ80M5() uint8 {
	v.pending = false

	var data uint8
	switch v.code & 0x0F {
	case 0x00: // VRAM
		data = v.vram[v.addr^1]
	case 0x04: // VSRAM
		data = v.vsram[(v.addr&0x7F)^1]
	case 0x08: // CRAM
		w := v.CRAMWord(int(v.addr>>1) & 0x3F)
		if v.addr&1 != 0 {
			data = uint8(w>>5) & 0x0E
		} else {
			data = uint8(w<<1)&0x0E | uint8(w<<2)&0xE0
		}
	default:
		log.ModBus.Debugf("z80 read with invalid code 0x%02X", v.code)
	}

	v.addr += v.autoIncrement()
	return data
}
