package emu

import "github.com/user-none/emvdp/emu/log"

// --- Control port ---

// WriteControl handles a 68K word write to the control port.
//
// The first word either writes a register (bits 15:14 = 10) or latches
// address bits 13:0 and code bits 1:0. In Mode 5 a second word follows with
// address bits 15:14 and code bits 5:2; CD5 starts a DMA when reg 1 allows
// it.
func (v *VDP) WriteControl(cycle uint64, data uint16) {
	v.checkCycle(master68K, cycle)
	if v.model != ModelMD {
		v.writeControlM4(cycle, uint8(data))
		return
	}
	v.writeControl(master68K, cycle, data)
}

func (v *VDP) writeControl(m busMaster, cycle uint64, data uint16) {
	if !v.pending {
		// A long word write can start a bus DMA with its first half; the
		// second half lands after the transfer.
		if v.busDMAOutstanding() {
			v.cacheWrite(true, data)
			return
		}

		if data&0xC000 == 0x8000 {
			v.writeRegister(uint8(data>>8)&0x1F, uint8(data), cycle)
		} else {
			v.pending = v.mode5()
		}

		v.addr = v.addrLatch | data&0x3FFF
		v.code = v.code&0x3C | uint8(data>>14)&0x03
	} else {
		v.pending = false
		v.addrLatch = (data & 0x03) << 14
		v.addr = v.addrLatch | v.addr&0x3FFF
		v.code = v.code&0x03 | uint8(data>>2)&0x3C

		if v.code&0x20 != 0 {
			if v.dmaEnabled() {
				v.triggerDMA(m, cycle)
			} else {
				log.ModDMA.Debugf("CD5 set with DMA disabled, code=0x%02X", v.code)
			}
		}
	}

	// VRAM words take two access slots
	v.fifoByteAccess = v.code&0x0F < 0x03
}

// Pending reports whether the control port is waiting for a second word.
func (v *VDP) Pending() bool {
	return v.pending
}

// Address returns the current address register.
func (v *VDP) Address() uint16 {
	return v.addr
}

// Code returns the current 6-bit access code.
func (v *VDP) Code() uint8 {
	return v.code
}
