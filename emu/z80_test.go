package emu

import (
	"testing"

	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

func TestZ80Port_Stall(t *testing.T) {
	mem := makeTestZ80Memory()
	p := &z80Port{cpu: z80.New(mem)}

	// Rounds up to the next Z80 cycle
	p.Stall(31)
	if p.cycles != 3 {
		t.Errorf("expected 3 cycles, got %d", p.cycles)
	}
	if p.mclk() != 45 {
		t.Errorf("expected master clock 45, got %d", p.mclk())
	}

	// Never moves backwards
	p.Stall(10)
	if p.cycles != 3 {
		t.Errorf("expected 3 cycles after an earlier stall, got %d", p.cycles)
	}
}

func TestZ80Port_InterruptServiced(t *testing.T) {
	mem := makeTestZ80Memory()
	cpu := z80.New(mem)
	p := &z80Port{cpu: cpu}

	// im 1; ei; halt
	for i, b := range []byte{0xED, 0x56, 0xFB, 0x76} {
		mem.Write(uint16(i), b)
	}
	// 0x38: ld a,$77; ld ($1000),a; halt
	for i, b := range []byte{0x3E, 0x77, 0x32, 0x00, 0x10, 0x76} {
		mem.Write(0x38+uint16(i), b)
	}

	for i := 0; i < 4; i++ {
		cpu.Step()
	}
	if !cpu.Halted() {
		t.Fatal("expected the Z80 halted waiting for the interrupt")
	}

	p.SetIRQ(IRQLevelSMS)
	for i := 0; i < 6; i++ {
		cpu.Step()
	}
	p.SetIRQ(0)
	if got := mem.Read(0x1000); got != 0x77 {
		t.Errorf("expected the IM 1 handler to store 0x77, got 0x%02X", got)
	}
}

func TestZ80Port_NoInterruptWhenDisabled(t *testing.T) {
	mem := makeTestZ80Memory()
	cpu := z80.New(mem)
	p := &z80Port{cpu: cpu}

	// With IFF1 clear after reset the NOP at 0 runs normally
	p.SetIRQ(IRQLevelSMS)
	cpu.Step()
	if cpu.Registers().PC != 1 {
		t.Errorf("expected PC 1, got 0x%04X", cpu.Registers().PC)
	}
}

func TestM68KPort_Stall(t *testing.T) {
	bus := makeTestBus()
	cpu := m68k.New(bus)
	p := &m68kPort{cpu: cpu}

	before := cpu.Cycles()
	p.Stall(before*m68kClockDivider + 64)
	if got := cpu.Cycles(); got != before+10 {
		t.Errorf("expected %d cycles, got %d", before+10, got)
	}
	p.Stall(0)
	if got := cpu.Cycles(); got != before+10 {
		t.Errorf("expected an earlier stall ignored, got %d", got)
	}
}

func TestM68KPort_IRQLevel(t *testing.T) {
	bus := makeTestBus()
	p := &m68kPort{cpu: m68k.New(bus)}

	if p.mask() != 7 {
		t.Errorf("expected mask 7 after reset, got %d", p.mask())
	}
	p.SetIRQ(IRQLevelVInt)
	if p.level != IRQLevelVInt {
		t.Errorf("expected level 6, got %d", p.level)
	}
	p.SetIRQ(0)
	if p.level != 0 {
		t.Errorf("expected level 0, got %d", p.level)
	}
}
