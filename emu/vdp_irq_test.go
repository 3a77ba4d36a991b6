package emu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const vblankStart = 224 * MasterCyclesPerLine

func TestVDP_VIntRaiseAndAcknowledge(t *testing.T) {
	vdp := makeTestVDP()
	cpu := &testCPU{}
	vdp.SetCPUs(cpu, nil)
	setReg(vdp, 1, 0x64)

	vdp.StartScanline(224, vblankStart)
	if vdp.VIntCycle() != vblankStart+vintTriggerCycle {
		t.Errorf("expected VInt at %d, got %d", vblankStart+vintTriggerCycle, vdp.VIntCycle())
	}
	vdp.RaiseVInt(vdp.VIntCycle())
	if vdp.IRQLevel() != IRQLevelVInt {
		t.Errorf("expected level 6, got %d", vdp.IRQLevel())
	}

	if vec := vdp.AcknowledgeInterrupt(IRQLevelVInt); vec != AutoVector {
		t.Errorf("expected autovector, got %d", vec)
	}
	if _, vint := vdp.InterruptsPending(); vint {
		t.Error("expected VInt cleared by acknowledge")
	}
	if diff := cmp.Diff([]uint8{6, 0}, cpu.levels); diff != "" {
		t.Errorf("irq levels mismatch (-want +got):\n%s", diff)
	}
}

func TestVDP_VIntDisabledStaysPending(t *testing.T) {
	vdp := makeTestVDP()
	cpu := &testCPU{}
	vdp.SetCPUs(cpu, nil)
	setReg(vdp, 1, 0x44)

	vdp.StartScanline(224, vblankStart)
	vdp.RaiseVInt(vdp.VIntCycle())
	if vdp.IRQLevel() != 0 || len(cpu.levels) != 0 {
		t.Errorf("expected no interrupt with VInt disabled, got level %d", vdp.IRQLevel())
	}

	// Enabling it later drives the pending interrupt
	vdp.WriteControl(vblankStart+1000, 0x8164)
	if diff := cmp.Diff([]uint8{6}, cpu.levels); diff != "" {
		t.Errorf("irq levels mismatch (-want +got):\n%s", diff)
	}
}

func TestVDP_VIntDeliveredOncePerFrame(t *testing.T) {
	vdp := makeTestVDP()
	cpu := &testCPU{}
	vdp.SetCPUs(cpu, nil)
	setReg(vdp, 1, 0x64)

	vdp.StartScanline(224, vblankStart)
	vdp.RaiseVInt(vdp.VIntCycle())
	vdp.AcknowledgeInterrupt(IRQLevelVInt)
	vdp.EndScanline(vblankStart + MasterCyclesPerLine)
	if _, vint := vdp.InterruptsPending(); vint {
		t.Error("expected EndScanline not to raise a second VInt")
	}

	vdp.StartScanline(0, 262*MasterCyclesPerLine)
	vdp.StartScanline(224, 262*MasterCyclesPerLine+vblankStart)
	vdp.EndScanline(262*MasterCyclesPerLine + vblankStart + MasterCyclesPerLine)
	if _, vint := vdp.InterruptsPending(); !vint {
		t.Error("expected EndScanline to raise the next frame's VInt")
	}
}

func TestVDP_HIntCounter(t *testing.T) {
	vdp := makeTestVDP()
	cpu := &testCPU{}
	vdp.SetCPUs(cpu, nil)
	setReg(vdp, 0, 0x14)
	setReg(vdp, 10, 2)

	var fired []int
	for line := 0; line < 9; line++ {
		if vdp.StartScanline(line, uint64(line)*MasterCyclesPerLine) {
			fired = append(fired, line)
			vdp.AcknowledgeInterrupt(IRQLevelHInt)
		}
	}
	if diff := cmp.Diff([]int{2, 5, 8}, fired); diff != "" {
		t.Errorf("hint lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint8{4, 0, 4, 0, 4, 0}, cpu.levels); diff != "" {
		t.Errorf("irq levels mismatch (-want +got):\n%s", diff)
	}
}

func TestVDP_HIntNotCountedInVBlank(t *testing.T) {
	vdp := makeTestVDP()
	setReg(vdp, 0, 0x14)
	setReg(vdp, 10, 0)
	for line := 0; line < 224; line++ {
		vdp.StartScanline(line, uint64(line)*MasterCyclesPerLine)
	}
	if vdp.StartScanline(224, vblankStart) {
		t.Error("expected no line interrupt on the first VBlank line")
	}
}

func TestVDP_VIntPriority(t *testing.T) {
	vdp := makeTestVDP()
	cpu := &testCPU{}
	vdp.SetCPUs(cpu, nil)
	setReg(vdp, 0, 0x14)
	setReg(vdp, 1, 0x64)
	setReg(vdp, 10, 0)

	vdp.StartScanline(223, 223*MasterCyclesPerLine)
	vdp.StartScanline(224, vblankStart)
	vdp.RaiseVInt(vdp.VIntCycle())
	if vdp.IRQLevel() != IRQLevelVInt {
		t.Fatalf("expected VInt to win, got level %d", vdp.IRQLevel())
	}
	vdp.AcknowledgeInterrupt(IRQLevelVInt)
	if vdp.IRQLevel() != IRQLevelHInt {
		t.Errorf("expected HInt still pending, got level %d", vdp.IRQLevel())
	}
	vdp.AcknowledgeInterrupt(IRQLevelHInt)
	if vdp.IRQLevel() != 0 {
		t.Errorf("expected no level, got %d", vdp.IRQLevel())
	}
}

func TestVDP_VIntDrivesZ80ForOneLine(t *testing.T) {
	vdp := makeTestVDP()
	z80 := &testCPU{}
	vdp.SetCPUs(nil, z80)

	vdp.StartScanline(224, vblankStart)
	vdp.RaiseVInt(vdp.VIntCycle())
	vdp.StartScanline(225, vblankStart+MasterCyclesPerLine)
	if diff := cmp.Diff([]uint8{1, 0}, z80.levels); diff != "" {
		t.Errorf("z80 irq mismatch (-want +got):\n%s", diff)
	}
}

func TestVDP_StatusVIntDue(t *testing.T) {
	vdp := makeTestVDP()
	vdp.StartScanline(224, vblankStart)
	if s := vdp.PeekStatus(vblankStart + 700); s&statusVInt != 0 {
		t.Errorf("expected VInt clear before the trigger point, got 0x%04X", s)
	}
	if s := vdp.PeekStatus(vblankStart + 800); s&statusVInt == 0 {
		t.Errorf("expected VInt due after the trigger point, got 0x%04X", s)
	}

	vdp.RaiseVInt(vblankStart + 800)
	if s := vdp.ReadStatus(vblankStart + 900); s&statusVInt == 0 {
		t.Errorf("expected VInt flag, got 0x%04X", s)
	}
	if s := vdp.ReadStatus(vblankStart + 1000); s&statusVInt != 0 {
		t.Errorf("expected VInt flag cleared by the read, got 0x%04X", s)
	}
}

func TestVDP_StatusReadClearsVIntDue(t *testing.T) {
	vdp := makeTestVDP()
	cpu := &testCPU{}
	vdp.SetCPUs(cpu, nil)
	setReg(vdp, 1, 0x64)
	vdp.StartScanline(224, vblankStart)

	if s := vdp.ReadStatus(vblankStart + 800); s&statusVInt == 0 {
		t.Fatalf("expected VInt flag on the first read, got 0x%04X", s)
	}
	if s := vdp.ReadStatus(vblankStart + 800); s&statusVInt != 0 {
		t.Errorf("expected VInt flag cleared on the second read, got 0x%04X", s)
	}

	buf := make([]byte, VDPSerializeSize)
	if err := vdp.Serialize(buf); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored := makeTestVDP()
	if err := restored.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if s := restored.PeekStatus(vblankStart + 850); s&statusVInt != 0 {
		t.Errorf("expected the read to survive a restore, got 0x%04X", s)
	}

	// The interrupt itself still fires, without setting the flag again
	vdp.RaiseVInt(vblankStart + 900)
	if diff := cmp.Diff([]uint8{6}, cpu.levels); diff != "" {
		t.Errorf("irq levels mismatch (-want +got):\n%s", diff)
	}
	if s := vdp.ReadStatus(vblankStart + 1000); s&statusVInt != 0 {
		t.Errorf("expected VInt flag to stay clear, got 0x%04X", s)
	}

	// Next frame reports it again
	frame := uint64(262 * MasterCyclesPerLine)
	vdp.StartScanline(0, frame)
	vdp.StartScanline(224, frame+vblankStart)
	if s := vdp.ReadStatus(frame + vblankStart + 800); s&statusVInt == 0 {
		t.Errorf("expected VInt flag on the next frame, got 0x%04X", s)
	}
}

func TestVDP_StatusBits(t *testing.T) {
	vdp := makeTestVDP()
	setReg(vdp, 1, 0x44)
	vdp.StartScanline(10, 10*MasterCyclesPerLine)
	start := uint64(10 * MasterCyclesPerLine)

	s := vdp.PeekStatus(start + 100)
	if s&0xFC00 != statusFixedBits {
		t.Errorf("expected fixed bits 0x7400, got 0x%04X", s&0xFC00)
	}
	if s&statusHBlank == 0 {
		t.Errorf("expected HBlank early in the line, got 0x%04X", s)
	}
	if s&statusVBlank != 0 {
		t.Errorf("expected no VBlank in the active area, got 0x%04X", s)
	}
	if s&statusPAL != 0 {
		t.Errorf("expected NTSC, got 0x%04X", s)
	}
	if s = vdp.PeekStatus(start + 1000); s&statusHBlank != 0 {
		t.Errorf("expected HBlank clear mid-line, got 0x%04X", s)
	}

	// Display off reads as VBlank
	setReg(vdp, 1, 0x04)
	if s = vdp.PeekStatus(start + 1000); s&statusVBlank == 0 {
		t.Errorf("expected VBlank with the display off, got 0x%04X", s)
	}

	pal := NewVDP(ModelMD, true)
	if s = pal.PeekStatus(0); s&statusPAL == 0 {
		t.Errorf("expected PAL bit, got 0x%04X", s)
	}
}

func TestVDP_StatusReadClearsSpriteFlags(t *testing.T) {
	vdp := makeTestVDP()
	vdp.SetSpriteStatus(true, true, 0)

	peek := vdp.PeekStatus(1000)
	if peek != vdp.PeekStatus(1000) {
		t.Error("expected peek to be repeatable")
	}
	first := vdp.ReadStatus(1000)
	if first&(statusSpriteOverflow|statusSpriteCollision) == 0 {
		t.Errorf("expected sprite flags, got 0x%04X", first)
	}
	second := vdp.ReadStatus(1000)
	if second != first&^(statusSpriteOverflow|statusSpriteCollision) {
		t.Errorf("expected 0x%04X, got 0x%04X", first&^0x60, second)
	}
}

func TestVDP_OddFrameFlag(t *testing.T) {
	vdp := makeTestVDP()
	setReg(vdp, 12, 0x02)
	vdp.StartScanline(0, 0)
	first := vdp.PeekStatus(1000) & statusOddFrame
	vdp.StartScanline(0, 262*MasterCyclesPerLine)
	second := vdp.PeekStatus(262*MasterCyclesPerLine+1000) & statusOddFrame
	if first == second {
		t.Errorf("expected the odd frame flag to toggle, got 0x%X twice", first)
	}
}

func TestVDP_SMSInterrupts(t *testing.T) {
	vdp := NewVDP(ModelSMS, false)
	z80 := &testCPU{}
	vdp.SetCPUs(nil, z80)
	vdp.WriteControlByte(0, 0x26) // line interrupts off
	vdp.WriteControlByte(0, 0x80)
	vdp.WriteControlByte(0, 0xA0)
	vdp.WriteControlByte(0, 0x81)

	vdp.StartScanline(192, 192*MasterCyclesPerLine)
	vdp.RaiseVInt(192*MasterCyclesPerLine + vintTriggerCycle)
	if vdp.IRQLevel() != 1 {
		t.Errorf("expected level 1, got %d", vdp.IRQLevel())
	}
	if s := vdp.ReadStatusByte(192*MasterCyclesPerLine + 1000); s&0x80 == 0 {
		t.Errorf("expected VInt flag, got 0x%02X", s)
	}
	if diff := cmp.Diff([]uint8{1, 0}, z80.levels); diff != "" {
		t.Errorf("z80 irq mismatch (-want +got):\n%s", diff)
	}
}

func TestVDP_SMSHIntCountsFirstVBlankLine(t *testing.T) {
	vdp := NewVDP(ModelSMS, false)
	vdp.WriteControlByte(0, 0x00)
	vdp.WriteControlByte(0, 0x8A)
	for line := 0; line < 192; line++ {
		vdp.StartScanline(line, uint64(line)*MasterCyclesPerLine)
	}
	if !vdp.StartScanline(192, 192*MasterCyclesPerLine) {
		t.Error("expected a line interrupt on line 192")
	}
	if vdp.StartScanline(193, 193*MasterCyclesPerLine) {
		t.Error("expected no line interrupt on line 193")
	}
}
