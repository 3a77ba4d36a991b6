package emu

import "github.com/user-none/go-chip-m68k"

// Z80Memory implements z80.Bus for the console Z80 address space.
//
// Z80 memory map (16-bit):
//
//	0x0000-0x1FFF  Z80 RAM (8KB)
//	0x2000-0x3FFF  Z80 RAM mirror
//	0x4000-0x5FFF  Sound chip ports (not decoded)
//	0x6000         Bank register (write-only, bit-by-bit)
//	0x6001-0x7EFF  Unused (reads return 0xFF)
//	0x7F00-0x7F1F  VDP ports (data, control, HV counter, PSG)
//	0x7F20-0x7FFF  Reserved
//	0x8000-0xFFFF  M68K bank window (32KB via bank register)
type Z80Memory struct {
	bus          *GenesisBus
	bankRegister uint16 // 9-bit shift register for M68K bank address

	// Master cycle of the instruction being executed. The Z80 bus has no
	// per-access timestamp, so the console sets this before each step.
	mclk uint64
}

// NewZ80Memory creates a Z80Memory connected to the given GenesisBus.
func NewZ80Memory(bus *GenesisBus) *Z80Memory {
	return &Z80Memory{bus: bus}
}

// Fetch reads an opcode byte during an M1 cycle.
func (m *Z80Memory) Fetch(addr uint16) uint8 {
	return m.Read(addr)
}

// Read reads a byte from the Z80 address space.
func (m *Z80Memory) Read(addr uint16) uint8 {
	switch {
	case addr < 0x4000:
		return m.bus.z80RAM[addr&0x1FFF]
	case addr < 0x6000:
		return 0xFF
	case addr >= 0x7F00 && addr < 0x7F20:
		return m.readVDP(addr)
	case addr < 0x8000:
		return 0xFF
	default:
		m68kAddr := m.bankAddr(addr)
		if m68kAddr >= 0xC00000 && m68kAddr <= 0xDFFFFF {
			return m.readVDP(uint16(m68kAddr))
		}
		return uint8(m.bus.ReadCycle(0, m68k.Byte, m68kAddr))
	}
}

// readVDP handles a Z80 read of the VDP ports. The control port returns
// the low status byte at odd addresses and the high byte, read without
// side effects, at even ones.
func (m *Z80Memory) readVDP(addr uint16) uint8 {
	vdp := m.bus.vdp
	switch port := addr & 0x1F; {
	case port <= 0x03:
		return vdp.ReadDataByte(m.mclk)
	case port <= 0x07:
		if addr&1 == 0 {
			return uint8(vdp.PeekStatus(m.mclk) >> 8)
		}
		return vdp.ReadStatusByte(m.mclk)
	case port <= 0x0F:
		val := vdp.ReadHVCounter(m.mclk)
		if addr&1 == 0 {
			return uint8(val >> 8)
		}
		return uint8(val)
	default:
		// PSG ($10-$17) and debug ($18-$1F) are write-only
		return 0xFF
	}
}

// Write writes a byte to the Z80 address space.
func (m *Z80Memory) Write(addr uint16, val uint8) {
	switch {
	case addr < 0x4000:
		m.bus.z80RAM[addr&0x1FFF] = val
	case addr < 0x6000:
		// Sound chip ports
	case addr == 0x6000:
		// Shift in bit 0, 9 bits total
		m.bankRegister = (m.bankRegister >> 1) | (uint16(val&1) << 8)
	case addr >= 0x7F00 && addr < 0x7F20:
		m.writeVDP(addr, val)
	case addr < 0x8000:
		// Unused and reserved
	default:
		m68kAddr := m.bankAddr(addr)
		if m68kAddr >= 0xC00000 && m68kAddr <= 0xDFFFFF {
			m.writeVDP(uint16(m68kAddr), val)
			return
		}
		m.bus.WriteCycle(0, m68k.Byte, m68kAddr, uint32(val))
	}
}

func (m *Z80Memory) writeVDP(addr uint16, val uint8) {
	vdp := m.bus.vdp
	switch port := addr & 0x1F; {
	case port <= 0x03:
		vdp.WriteDataByte(m.mclk, val)
	case port <= 0x07:
		vdp.WriteControlByte(m.mclk, val)
	case port >= 0x10 && port < 0x18:
		m.bus.psg.Write(val)
	}
}

func (m *Z80Memory) bankAddr(addr uint16) uint32 {
	return uint32(m.bankRegister)<<15 | uint32(addr&0x7FFF)
}

// In reads from an I/O port. The Z80 here has no I/O ports; all
// peripherals are memory-mapped.
func (m *Z80Memory) In(port uint16) uint8 {
	return 0xFF
}

// Out writes to an I/O port. No-op.
func (m *Z80Memory) Out(port uint16, val uint8) {}
