package emu

import "github.com/user-none/emvdp/emu/log"

// --- Data port ---

// WriteData handles a 68K word write to the data port.
func (v *VDP) WriteData(cycle uint64, data uint16) {
	v.checkCycle(master68K, cycle)
	if v.model != ModelMD {
		v.writeDataM4(cycle, uint8(data))
		return
	}
	v.writeData(master68K, cycle, data)
}

func (v *VDP) writeData(m busMaster, cycle uint64, data uint16) {
	v.pending = false

	if v.busDMAOutstanding() {
		v.cacheWrite(false, data)
		return
	}

	// Only the 68K is throttled by the FIFO during active display
	if m == master68K && !v.blanked() {
		v.fifoWrite(cycle)
	}

	v.busWrite(m, cycle, data)

	if v.dmaFillPending {
		v.startFill(cycle)
	}
}

// busWrite queues data in the FIFO and stores it at the destination chosen
// by the access code.
func (v *VDP) busWrite(m busMaster, cycle uint64, data uint16) {
	v.fifo[v.fifoIdx] = data
	v.fifoIdx = (v.fifoIdx + 1) & 3

	switch v.code & 0x0F {
	case 0x01: // VRAM
		index := v.addr & 0xFFFE
		if v.addr&1 != 0 {
			data = data>>8 | data<<8
		}
		v.satWord(index, data)
		if uint16(v.vram[index])<<8|uint16(v.vram[index+1]) != data {
			v.vram[index] = uint8(data >> 8)
			v.vram[index+1] = uint8(data)
			v.markTileDirty(index)
		}

	case 0x03: // CRAM
		index := int(v.addr>>1) & 0x3F
		if v.storeCRAM(index, packCRAM(data)) && v.colorVisible(index) && v.inHBlankWindow(cycle) && v.displayEnabled() {
			v.renderer.RemapLine(v.line)
		}

	case 0x05: // VSRAM
		v.setVSRAMWord(v.addr, data)
		if v.regs[11]&0x04 != 0 && v.inHBlankWindow(cycle) && v.displayEnabled() {
			// 2-cell vertical scroll is fetched per column
			v.renderer.RenderLine(v.renderMode, v.line)
		}

	default:
		log.ModBus.WithField("master", m).Debugf("write 0x%04X with invalid code 0x%02X", data, v.code)
	}

	v.addr += v.autoIncrement()
}

// storeCRAM writes a packed colour and refreshes the palette cache. It
// reports whether the entry changed.
func (v *VDP) storeCRAM(index int, w uint16) bool {
	index &= 0x3F
	if v.CRAMWord(index) == w {
		return false
	}
	v.setCRAMWord(index, w)
	v.updateColor(index)
	if index == int(v.border&0x3F) {
		v.updateBackdrop()
	}
	return true
}

// colorVisible reports whether a CRAM entry can reach the screen. Entry 0
// of each palette is transparent unless it is the backdrop.
func (v *VDP) colorVisible(index int) bool {
	return index&0x0F != 0 || index == int(v.border&0x3F)
}

// ReadData handles a 68K word read from the data port.
func (v *VDP) ReadData(cycle uint64) uint16 {
	v.checkCycle(master68K, cycle)
	if v.model != ModelMD {
		return uint16(v.readDataM4())
	}
	return v.readData(master68K, cycle)
}

// readData returns the word at the address register. Bits the destination
// does not store come from the most recently queued FIFO entry.
func (v *VDP) readData(m busMaster, cycle uint64) uint16 {
	v.pending = false
	noise := v.fifo[(v.fifoIdx+3)&3]

	var data uint16
	switch v.code & 0x1F {
	case 0x00: // VRAM
		a := v.addr & 0xFFFE
		data = uint16(v.vram[a])<<8 | uint16(v.vram[a+1])
	case 0x04: // VSRAM
		a := v.addr & 0x7E
		if a >= 0x50 {
			a = 0
		}
		data = v.vsramWord(a)&0x07FF | noise&0xF800
	case 0x08: // CRAM
		data = unpackCRAM(v.CRAMWord(int(v.addr>>1))) | noise&0xF111
	case 0x0C: // VRAM, 8-bit
		data = uint16(v.vram[v.addr^1]) | noise&0xFF00
	default:
		log.ModBus.WithField("master", m).Debugf("read with invalid code 0x%02X", v.code)
		v.cpuFor(m).Stall(cycle + invalidAccessPenalty)
		data = noise
	}

	v.addr += v.autoIncrement()
	return data
}
