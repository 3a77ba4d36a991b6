package emu

import (
	"hash/crc32"

	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
)

const (
	mainRAMSize = 0x10000  // 64KB main 68K RAM
	z80RAMSize  = 0x2000   // 8KB Z80 RAM
	maxROMSize  = 0x400000 // 4MB max ROM

	// Master clocks per CPU cycle.
	m68kClockDivider = 7
	z80ClockDivider  = 15
)

// GenesisBus implements m68k.CycleBus with the parts of the console memory
// map the VDP talks to, and serves as the VDP's DMA source.
//
// Address map (M68K view, 24-bit):
//
//	0x000000-0x3FFFFF  ROM (up to 4MB, read-only)
//	0xA00000-0xA0FFFF  Z80 address space (0xA00000-0xA01FFF = 8KB Z80 RAM)
//	0xA10000-0xA1001F  I/O registers
//	0xA11100-0xA11101  Z80 bus request
//	0xA11200-0xA11201  Z80 reset
//	0xC00000-0xC00003  VDP data port
//	0xC00004-0xC00007  VDP control port
//	0xC00008-0xC0000F  VDP HV counter
//	0xC00011           PSG write port
//	0xFF0000-0xFFFFFF  68K main RAM (64KB, mirrored)
type GenesisBus struct {
	rom    []byte
	ram    [mainRAMSize]byte
	z80RAM [z80RAMSize]byte
	romCRC uint32
	vdp    *VDP
	io     *IO
	psg    *sn76489.SN76489

	z80BusRequested bool
	z80Reset        bool
	z80PendingReset bool // Set when Z80 reset transitions from asserted to deasserted
}

// NewGenesisBus creates a new GenesisBus with the given ROM, VDP, IO and PSG.
func NewGenesisBus(rom []byte, vdp *VDP, io *IO, psg *sn76489.SN76489) *GenesisBus {
	if len(rom) > maxROMSize {
		rom = rom[:maxROMSize]
	}
	return &GenesisBus{
		rom:    rom,
		romCRC: crc32.ChecksumIEEE(rom),
		vdp:    vdp,
		io:     io,
		psg:    psg,
	}
}

// Read implements m68k.Bus.
func (b *GenesisBus) Read(s m68k.Size, addr uint32) uint32 {
	return b.ReadCycle(0, s, addr)
}

// ReadCycle implements m68k.CycleBus. cycle is the 68K cycle count.
func (b *GenesisBus) ReadCycle(cycle uint64, s m68k.Size, addr uint32) uint32 {
	addr &= 0xFFFFFF // 24-bit address bus

	switch {
	case addr < 0x400000:
		return b.readROM(s, addr)
	case addr >= 0xA00000 && addr <= 0xA0FFFF:
		return b.readZ80(s, addr)
	case addr >= 0xA10000 && addr <= 0xA1001F:
		return b.readIO(s, addr)
	case addr >= 0xA11100 && addr <= 0xA11101:
		// Bus granted to the 68K reads as bit 0 clear
		if b.z80BusRequested {
			return b.readSized(s, 0x00, 0x00)
		}
		return b.readSized(s, 0x01, 0x00)
	case addr >= 0xA11200 && addr <= 0xA11201:
		return b.readSized(s, 0x00, 0x00)
	case addr >= 0xC00000 && addr <= 0xDFFFFF:
		return b.readVDP(cycle*m68kClockDivider, s, addr)
	case addr >= 0xFF0000:
		return b.readRAM(s, addr)
	default:
		return 0
	}
}

// readVDP handles the VDP ports, mirrored every 32 bytes. Byte reads take
// the high byte at even addresses and the low byte at odd ones.
func (b *GenesisBus) readVDP(mclk uint64, s m68k.Size, addr uint32) uint32 {
	var read func() uint16
	switch port := addr & 0x1F; {
	case port <= 0x03:
		read = func() uint16 { return b.vdp.ReadData(mclk) }
	case port <= 0x07:
		read = func() uint16 { return b.vdp.ReadStatus(mclk) }
	case port <= 0x0F:
		read = func() uint16 { return b.vdp.ReadHVCounter(mclk) }
	default:
		return 0
	}

	switch s {
	case m68k.Long:
		hi := uint32(read())
		lo := uint32(read())
		return hi<<16 | lo
	case m68k.Byte:
		val := read()
		if addr&1 == 0 {
			return uint32(val >> 8)
		}
		return uint32(val & 0xFF)
	default:
		return uint32(read())
	}
}

// Write implements m68k.Bus.
func (b *GenesisBus) Write(s m68k.Size, addr uint32, value uint32) {
	b.WriteCycle(0, s, addr, value)
}

// WriteCycle implements m68k.CycleBus. cycle is the 68K cycle count.
func (b *GenesisBus) WriteCycle(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	addr &= 0xFFFFFF // 24-bit address bus

	switch {
	case addr < 0x400000:
		// ROM, read-only
	case addr >= 0xA00000 && addr <= 0xA0FFFF:
		b.writeZ80(s, addr, value)
	case addr >= 0xA10000 && addr <= 0xA1001F:
		b.writeIO(cycle*m68kClockDivider, s, addr, value)
	case addr >= 0xA11100 && addr <= 0xA11101:
		if s == m68k.Byte {
			if addr == 0xA11100 {
				b.z80BusRequested = value&0x01 != 0
			}
		} else {
			b.z80BusRequested = value&0x0100 != 0
		}
	case addr >= 0xA11200 && addr <= 0xA11201:
		// Writing 0x0000 asserts reset, 0x0100 releases it
		var newReset bool
		if s == m68k.Byte {
			if addr == 0xA11200 {
				newReset = value&0x01 != 0
			} else {
				newReset = b.z80Reset
			}
		} else {
			newReset = value&0x0100 != 0
		}
		if !b.z80Reset && newReset {
			b.z80PendingReset = true
		}
		b.z80Reset = newReset
	case addr >= 0xC00000 && addr <= 0xDFFFFF:
		b.writeVDP(cycle*m68kClockDivider, s, addr, value)
	case addr >= 0xFF0000:
		b.writeRAM(s, addr, value)
	}
}

// writeVDP handles the VDP ports. Long writes are two word accesses, high
// word first. Byte writes are seen on both halves of the data bus.
func (b *GenesisBus) writeVDP(mclk uint64, s m68k.Size, addr uint32, value uint32) {
	var write func(uint16)
	switch port := addr & 0x1F; {
	case port <= 0x03:
		write = func(w uint16) { b.vdp.WriteData(mclk, w) }
	case port <= 0x07:
		write = func(w uint16) { b.vdp.WriteControl(mclk, w) }
	case port >= 0x10 && port < 0x18:
		// PSG answers on the whole $10-$17 range
		b.psg.Write(byte(value))
		return
	default:
		return
	}

	switch s {
	case m68k.Long:
		write(uint16(value >> 16))
		write(uint16(value))
	case m68k.Byte:
		write(uint16(value&0xFF)<<8 | uint16(value&0xFF))
	default:
		write(uint16(value))
	}
}

// Reset clears RAM. Implements m68k.Bus.
func (b *GenesisBus) Reset() {
	b.ram = [mainRAMSize]byte{}
	b.z80RAM = [z80RAMSize]byte{}
}

// GetROMCRC32 returns the CRC32 of the loaded ROM.
func (b *GenesisBus) GetROMCRC32() uint32 {
	return b.romCRC
}

// readROM reads from ROM with big-endian byte order.
func (b *GenesisBus) readROM(s m68k.Size, addr uint32) uint32 {
	romLen := uint32(len(b.rom))
	switch s {
	case m68k.Byte:
		if addr < romLen {
			return uint32(b.rom[addr])
		}
	case m68k.Word:
		if addr+1 < romLen {
			return uint32(b.rom[addr])<<8 | uint32(b.rom[addr+1])
		}
	case m68k.Long:
		if addr+3 < romLen {
			return uint32(b.rom[addr])<<24 | uint32(b.rom[addr+1])<<16 |
				uint32(b.rom[addr+2])<<8 | uint32(b.rom[addr+3])
		}
	}
	return 0
}

// readRAM reads from main RAM (64KB, mirrored) with big-endian byte order.
func (b *GenesisBus) readRAM(s m68k.Size, addr uint32) uint32 {
	idx := addr & 0xFFFF
	switch s {
	case m68k.Byte:
		return uint32(b.ram[idx])
	case m68k.Word:
		return uint32(b.ReadRAMWord(uint16(idx)))
	case m68k.Long:
		return uint32(b.ReadRAMWord(uint16(idx)))<<16 | uint32(b.ReadRAMWord(uint16(idx+2)))
	}
	return 0
}

// writeRAM writes to main RAM (64KB, mirrored) with big-endian byte order.
func (b *GenesisBus) writeRAM(s m68k.Size, addr uint32, value uint32) {
	idx := addr & 0xFFFF
	switch s {
	case m68k.Byte:
		b.ram[idx] = byte(value)
	case m68k.Word:
		b.ram[idx] = byte(value >> 8)
		b.ram[(idx+1)&0xFFFF] = byte(value)
	case m68k.Long:
		b.ram[idx] = byte(value >> 24)
		b.ram[(idx+1)&0xFFFF] = byte(value >> 16)
		b.ram[(idx+2)&0xFFFF] = byte(value >> 8)
		b.ram[(idx+3)&0xFFFF] = byte(value)
	}
}

// readZ80 reads from the Z80 address space. Only the RAM is decoded; the
// sound chip area reads as open bus.
func (b *GenesisBus) readZ80(s m68k.Size, addr uint32) uint32 {
	offset := addr - 0xA00000
	if offset >= z80RAMSize {
		return 0
	}
	var val uint32
	n := sizeBytes(s)
	for i := uint32(0); i < n; i++ {
		val <<= 8
		if offset+i < z80RAMSize {
			val |= uint32(b.z80RAM[offset+i])
		}
	}
	return val
}

// writeZ80 writes to Z80 RAM.
func (b *GenesisBus) writeZ80(s m68k.Size, addr uint32, value uint32) {
	offset := addr - 0xA00000
	if offset >= z80RAMSize {
		return
	}
	n := sizeBytes(s)
	for i := uint32(0); i < n; i++ {
		if offset+i < z80RAMSize {
			b.z80RAM[offset+i] = byte(value >> (8 * (n - 1 - i)))
		}
	}
}

// readIO reads from I/O register space. Word and long reads are built from
// consecutive byte registers.
func (b *GenesisBus) readIO(s m68k.Size, addr uint32) uint32 {
	var val uint32
	n := sizeBytes(s)
	for i := uint32(0); i < n; i++ {
		val = val<<8 | uint32(b.io.ReadRegister(addr+i))
	}
	return val
}

// writeIO writes to I/O register space.
func (b *GenesisBus) writeIO(mclk uint64, s m68k.Size, addr uint32, value uint32) {
	n := sizeBytes(s)
	for i := uint32(0); i < n; i++ {
		b.io.WriteRegister(mclk, addr+i, byte(value>>(8*(n-1-i))))
	}
}

// ReadWord reads a 16-bit word from the bus at the given address.
// Used by the VDP for external bus DMA.
func (b *GenesisBus) ReadWord(addr uint32) uint16 {
	addr &= 0xFFFFFF
	switch {
	case addr >= 0xC00000 && addr <= 0xDFFFFF:
		// The VDP cannot read its own ports as a DMA source
		return 0xFFFF
	case addr >= 0xA10000 && addr <= 0xA1001F:
		val := b.io.ReadRegister(addr | 1)
		return uint16(val)<<8 | uint16(val)
	}
	return uint16(b.ReadCycle(0, m68k.Word, addr))
}

// ReadRAMWord reads a word of work RAM at offset. Used by the VDP for RAM
// and Z80-area DMA, both of which see the 68K work RAM.
func (b *GenesisBus) ReadRAMWord(offset uint16) uint16 {
	return uint16(b.ram[offset])<<8 | uint16(b.ram[offset+1])
}

// ReadIOByte reads an I/O chip register for DMA.
func (b *GenesisBus) ReadIOByte(addr uint32) uint8 {
	return b.io.ReadRegister(addr | 1)
}

// readSized returns a 2-byte value as the appropriate size.
func (b *GenesisBus) readSized(s m68k.Size, hi, lo byte) uint32 {
	switch s {
	case m68k.Byte:
		return uint32(hi)
	case m68k.Word:
		return uint32(hi)<<8 | uint32(lo)
	case m68k.Long:
		return uint32(hi)<<24 | uint32(lo)<<16
	}
	return 0
}

func sizeBytes(s m68k.Size) uint32 {
	switch s {
	case m68k.Byte:
		return 1
	case m68k.Long:
		return 4
	}
	return 2
}
