package emu

import (
	"fmt"

	"github.com/user-none/emvdp/emu/log"
)

// DMAType is the kind of transfer the DMA engine is running. Bus transfers
// are split by the 68K address region they read from.
type DMAType uint8

const (
	DMABusExternal DMAType = iota // cartridge / expansion, below 0x800000
	DMABusIO                      // Z80 area, I/O chip, 0x800000-0xBFFFFF
	DMABusRAM                     // work RAM, 0xC00000 and up
	DMAFill
	DMACopy
)

var dmaTypeNames = [...]string{"bus-external", "bus-io", "bus-ram", "fill", "copy"}

func (t DMAType) String() string {
	if int(t) < len(dmaTypeNames) {
		return dmaTypeNames[t]
	}
	return fmt.Sprintf("DMAType(%d)", int(t))
}

// fromBus reports whether the transfer reads the 68K bus and so freezes it.
func (t DMAType) fromBus() bool {
	return t <= DMABusRAM
}

// busDMAType decodes the source region from reg 23 bits 6:4 (A23-A21).
func busDMAType(reg23 uint8) DMAType {
	switch (reg23 >> 4) & 0x07 {
	case 4, 5:
		return DMABusIO
	case 6, 7:
		return DMABusRAM
	default:
		return DMABusExternal
	}
}

type cachedWrite struct {
	ctrl bool
	data uint16
}

// Upper bound on writes deferred behind a bus DMA. The 68K is frozen for the
// transfer so only the tail of one long-word access can ever arrive.
const maxCachedWrites = 8

// DMAActive reports whether a transfer still has units left to move.
func (v *VDP) DMAActive() bool {
	return v.dmaLength > 0
}

// DMALength returns the remaining transfer length in units.
func (v *VDP) DMALength() uint32 {
	return v.dmaLength
}

// dmaRegLength returns the length programmed in regs 19/20; zero means 0x10000.
func (v *VDP) dmaRegLength() uint32 {
	length := uint32(v.regs[19]) | uint32(v.regs[20])<<8
	if length == 0 {
		length = 0x10000
	}
	return length
}

func (v *VDP) dmaRegSource() uint16 {
	return uint16(v.regs[21]) | uint16(v.regs[22])<<8
}

// triggerDMA starts the transfer selected by reg 23 bits 7:6 after a
// control word set CD5.
func (v *VDP) triggerDMA(m busMaster, cycle uint64) {
	switch v.regs[23] >> 6 {
	case 2:
		// Started by the next data port write
		v.dmaFillPending = true
		log.ModDMA.Debugf("fill armed addr=0x%04X code=0x%02X", v.addr, v.code)
	case 3:
		v.dmaLength = v.dmaRegLength()
		v.dmaSrc = v.dmaRegSource()
		v.dmaType = DMACopy
		log.ModDMA.Debugf("copy src=0x%04X dst=0x%04X len=%d", v.dmaSrc, v.addr, v.dmaLength)
		v.runDMA(cycle)
	default:
		if m == masterZ80 {
			log.ModDMA.Debugf("bus DMA ignored while Z80 drives the port")
			return
		}
		v.dmaLength = v.dmaRegLength()
		v.dmaSrc = v.dmaRegSource()
		v.dmaType = busDMAType(v.regs[23])
		log.ModDMA.Debugf("%s src=0x%06X dst=0x%04X code=0x%02X len=%d",
			v.dmaType, uint32(v.regs[23]&0x7F)<<17|uint32(v.dmaSrc)<<1, v.addr, v.code, v.dmaLength)
		v.runDMA(cycle)
	}
}

// startFill runs a fill armed by a previous control word. The data write
// that starts it has already gone through the normal write path.
func (v *VDP) startFill(cycle uint64) {
	v.dmaFillPending = false
	v.dmaLength = v.dmaRegLength()
	v.dmaType = DMAFill
	log.ModDMA.Debugf("fill start addr=0x%04X len=%d", v.addr, v.dmaLength)
	v.runDMA(cycle)
}

// dmaRate returns the access slots per line available to the current
// transfer. Word writes to VRAM and copies (read + write) take two slots.
func (v *VDP) dmaRate() int {
	blank := 0
	if v.blanked() {
		blank = 1
	}
	h40 := 0
	if v.timing.h40 {
		h40 = 1
	}
	rate := dmaTiming[blank][h40]
	if v.dmaType == DMACopy || (v.dmaType.fromBus() && v.code&0x06 == 0) {
		rate >>= 1
	}
	return rate
}

// runDMA transfers as much of the outstanding DMA as fits before the end of
// the current line, or the end of VBlank when in vertical blanking.
func (v *VDP) runDMA(cycle uint64) {
	if v.dmaLength == 0 {
		return
	}
	rate := v.dmaRate()

	var end uint64
	if v.inVBlank() {
		end = v.lineStartCycle + uint64(v.linesPerFrame-v.line)*MasterCyclesPerLine
	} else {
		end = v.lineStartCycle + MasterCyclesPerLine
	}
	var dmaCycles uint64
	if end > cycle {
		dmaCycles = end - cycle
	}

	dmaBytes := uint32(dmaCycles * uint64(rate) / MasterCyclesPerLine)
	if dmaBytes > v.dmaLength {
		dmaBytes = v.dmaLength
		dmaCycles = uint64(dmaBytes) * MasterCyclesPerLine / uint64(rate)
	}

	if v.dmaType.fromBus() {
		v.m68k.Stall(cycle + dmaCycles)
	} else {
		v.status |= statusDMABusy
		v.dmaEndCycle = cycle + dmaCycles
	}

	if dmaBytes == 0 {
		return
	}
	v.consumeDMA(dmaBytes)

	switch v.dmaType {
	case DMAFill:
		v.dmaFill(dmaBytes)
	case DMACopy:
		v.dmaCopy(dmaBytes)
	default:
		v.dmaBus(dmaBytes, cycle)
	}

	if v.dmaLength == 0 {
		v.finishDMA(cycle + dmaCycles)
	}
}

func (v *VDP) consumeDMA(n uint32) {
	if n > v.dmaLength {
		panic(fmt.Sprintf("vdp: DMA length underflow (%d - %d)", v.dmaLength, n))
	}
	v.dmaLength -= n
}

// finishDMA updates the source and length registers the way the chip's
// counters leave them, then replays writes deferred during the transfer.
func (v *VDP) finishDMA(cycle uint64) {
	end := v.dmaRegSource() + uint16(v.regs[19]) + uint16(v.regs[20])<<8
	v.regs[21] = uint8(end)
	v.regs[22] = uint8(end >> 8)
	v.regs[19] = 0
	v.regs[20] = 0
	log.ModDMA.Debugf("%s done, source regs 0x%04X", v.dmaType, end)

	if len(v.cached) == 0 {
		return
	}
	pending := append([]cachedWrite(nil), v.cached...)
	v.cached = v.cached[:0]
	for _, w := range pending {
		if w.ctrl {
			v.writeControl(master68K, cycle, w.data)
		} else {
			v.writeData(master68K, cycle, w.data)
		}
	}
}

// cacheWrite defers a port write that arrived while a bus DMA holds the bus.
func (v *VDP) cacheWrite(ctrl bool, data uint16) {
	if len(v.cached) >= maxCachedWrites {
		log.ModDMA.Warnf("dropping port write 0x%04X, %d writes already deferred", data, len(v.cached))
		return
	}
	log.ModDMA.Debugf("deferred write ctrl=%v data=0x%04X", ctrl, data)
	v.cached = append(v.cached, cachedWrite{ctrl: ctrl, data: data})
}

// busDMAOutstanding reports whether a 68K bus transfer is still running.
func (v *VDP) busDMAOutstanding() bool {
	return v.dmaLength > 0 && v.dmaType.fromBus()
}

// dmaBus copies n words from the 68K bus. The source wraps inside its
// 128KB window.
func (v *VDP) dmaBus(n uint32, cycle uint64) {
	base := uint32(v.regs[23]&0x7F) << 17
	src := base | uint32(v.dmaSrc)<<1&0x1FFFF
	for ; n > 0; n-- {
		data := v.readDMASource(src)
		src = base | (src+2)&0x1FFFF
		v.busWrite(master68K, cycle, data)
	}
	v.dmaSrc = uint16(src >> 1)
}

func (v *VDP) readDMASource(addr uint32) uint16 {
	if v.bus == nil {
		return 0
	}
	switch v.dmaType {
	case DMABusRAM:
		return v.readDMARAM(uint16(addr))
	case DMABusIO:
		switch {
		case addr <= 0xA0FFFF:
			return v.readDMARAM(uint16(addr))
		case addr <= 0xA1001F:
			// The I/O chip drives both byte lanes
			var b uint8
			if io, ok := v.bus.(IOReader); ok {
				b = io.ReadIOByte(addr)
			} else {
				b = uint8(v.bus.ReadWord(addr))
			}
			return uint16(b)<<8 | uint16(b)
		default:
			return v.readDMARAM(uint16(addr))
		}
	default:
		return v.bus.ReadWord(addr)
	}
}

func (v *VDP) readDMARAM(offset uint16) uint16 {
	if ram, ok := v.bus.(RAMReader); ok {
		return ram.ReadRAMWord(offset)
	}
	return v.bus.ReadWord(0xFF0000 | uint32(offset))
}

// dmaFill writes n fill units. VRAM fills repeat the high byte of the last
// queued word at addr^1; CRAM and VSRAM fills repeat the next FIFO word.
func (v *VDP) dmaFill(n uint32) {
	inc := v.autoIncrement()
	switch v.code & 0x0F {
	case 0x01:
		data := uint8(v.fifo[(v.fifoIdx+3)&3] >> 8)
		for ; n > 0; n-- {
			v.writeVRAMByte(v.addr^1, data)
			v.addr += inc
		}
	case 0x03:
		data := packCRAM(v.fifo[v.fifoIdx])
		for ; n > 0; n-- {
			v.storeCRAM(int(v.addr>>1), data)
			v.addr += inc
		}
	case 0x05:
		data := v.fifo[v.fifoIdx]
		for ; n > 0; n-- {
			v.setVSRAMWord(v.addr, data)
			v.addr += inc
		}
	default:
		v.addr += inc * uint16(n)
	}
}

// dmaCopy copies n VRAM bytes from the DMA source to the address register.
// Any code other than a VRAM copy only advances the counters.
func (v *VDP) dmaCopy(n uint32) {
	inc := v.autoIncrement()
	if v.code&0x1E != 0x10 {
		v.dmaSrc += uint16(n)
		v.addr += inc * uint16(n)
		return
	}
	for ; n > 0; n-- {
		v.writeVRAMByte(v.addr, v.vram[v.dmaSrc])
		v.dmaSrc++
		v.addr += inc
	}
}
