package emu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVDP_SerializeRoundTrip(t *testing.T) {
	vdp := makeTestVDP()
	vdp.SetBus(&mockBusReader{data: map[uint32]uint16{}})
	setReg(vdp, 2, 0x30)
	setReg(vdp, 12, 0x81)
	setReg(vdp, 17, 0x85)
	vdp.WriteControl(0, 0xC000)
	vdp.WriteControl(0, 0x0000)
	vdp.WriteData(0, 0x0E0E)
	vdp.WriteControl(0, 0x4000)
	vdp.WriteControl(0, 0x0000)
	vdp.WriteData(0, 0xBEEF)

	// Leave a bus DMA in flight with a deferred write
	vdp.StartScanline(5, 5*MasterCyclesPerLine)
	startBusDMA(vdp, 5*MasterCyclesPerLine, 0, 40)
	vdp.WriteControl(5*MasterCyclesPerLine+10, 0x8F04)
	vdp.SetSpriteStatus(true, false, 0)

	buf := make([]byte, VDPSerializeSize)
	if err := vdp.Serialize(buf); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	restored := makeTestVDP()
	if err := restored.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	if diff := cmp.Diff(vdp.DerivedState(), restored.DerivedState()); diff != "" {
		t.Errorf("derived state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(vdp.regs, restored.regs); diff != "" {
		t.Errorf("registers mismatch (-want +got):\n%s", diff)
	}
	if vdp.vram != restored.vram || vdp.cram != restored.cram || vdp.sat != restored.sat {
		t.Error("memories differ after restore")
	}
	if restored.Color(7, BrightnessNormal) != vdp.Color(7, BrightnessNormal) {
		t.Error("palette cache not rebuilt")
	}

	cycle := uint64(5*MasterCyclesPerLine + 100)
	if got, want := restored.PeekStatus(cycle), vdp.PeekStatus(cycle); got != want {
		t.Errorf("status: expected 0x%04X, got 0x%04X", want, got)
	}
	if got, want := restored.ReadHVCounter(cycle), vdp.ReadHVCounter(cycle); got != want {
		t.Errorf("hv: expected 0x%04X, got 0x%04X", want, got)
	}
	if restored.DMALength() != vdp.DMALength() || restored.Address() != vdp.Address() || restored.Code() != vdp.Code() {
		t.Errorf("port state differs: len %d/%d addr 0x%04X/0x%04X code 0x%02X/0x%02X",
			vdp.DMALength(), restored.DMALength(), vdp.Address(), restored.Address(), vdp.Code(), restored.Code())
	}
	if diff := cmp.Diff(vdp.cached, restored.cached, cmp.AllowUnexported(cachedWrite{})); diff != "" {
		t.Errorf("deferred writes mismatch (-want +got):\n%s", diff)
	}

	// Both finish the transfer the same way
	restored.SetBus(&mockBusReader{data: map[uint32]uint16{}})
	for line := 6; line < 12; line++ {
		vdp.StartScanline(line, uint64(line)*MasterCyclesPerLine)
		restored.StartScanline(line, uint64(line)*MasterCyclesPerLine)
	}
	if restored.Register(15) != 0x04 || vdp.Register(15) != 0x04 {
		t.Errorf("expected replayed reg 15 on both, got 0x%02X/0x%02X", vdp.Register(15), restored.Register(15))
	}
}

func TestVDP_DeserializeKeepsUndecodedRegisters(t *testing.T) {
	vdp := makeTestVDP()
	setReg(vdp, 15, 0x20)
	setReg(vdp, 1, 0x00) // Mode 4: regs 11+ no longer decoded

	buf := make([]byte, VDPSerializeSize)
	if err := vdp.Serialize(buf); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored := makeTestVDP()
	if err := restored.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if restored.Register(15) != 0x20 {
		t.Errorf("expected reg 15=0x20, got 0x%02X", restored.Register(15))
	}
	if restored.RenderMode() != RenderMode4 {
		t.Errorf("expected mode4, got %s", restored.RenderMode())
	}
}

func TestVDP_DeserializeErrors(t *testing.T) {
	vdp := makeTestVDP()
	buf := make([]byte, VDPSerializeSize)
	if err := vdp.Serialize(buf); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	if err := vdp.Serialize(buf[:10]); err == nil {
		t.Error("expected error for a short serialize buffer")
	}
	if err := makeTestVDP().Deserialize(buf[:VDPSerializeSize-1]); err == nil {
		t.Error("expected error for a short buffer")
	}
	if err := NewVDP(ModelSMS, false).Deserialize(buf); err == nil {
		t.Error("expected error for a model mismatch")
	}

	bad := append([]byte(nil), buf...)
	bad[0] = vdpSerializeVersion + 1
	if err := makeTestVDP().Deserialize(bad); err == nil {
		t.Error("expected error for an unknown version")
	}
}

func TestVDP_SerializeSMS(t *testing.T) {
	vdp := NewVDP(ModelGG, true)
	z80Command(vdp, 0x0000, 3)
	vdp.WriteDataByte(0, 0xA5)
	vdp.WriteDataByte(0, 0x0F)
	z80Command(vdp, 0x1234, 0)

	buf := make([]byte, VDPSerializeSize)
	if err := vdp.Serialize(buf); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored := NewVDP(ModelGG, false)
	if err := restored.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if !restored.IsPAL() || restored.LinesPerFrame() != 313 {
		t.Errorf("expected PAL timing restored, got pal=%v lines=%d", restored.IsPAL(), restored.LinesPerFrame())
	}
	if restored.Color(0, BrightnessNormal) != vdp.Color(0, BrightnessNormal) {
		t.Error("GG palette not restored")
	}
	if restored.ReadDataByte(0) != vdp.ReadDataByte(0) {
		t.Error("read buffer not restored")
	}
}

func TestVDP_DeserializeRejectsBeforeLoading(t *testing.T) {
	src := makeTestVDP()
	src.vram[0x100] = 0xAB
	setReg(src, 2, 0x38)
	buf := make([]byte, VDPSerializeSize)
	if err := src.Serialize(buf); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	tests := []struct {
		name   string
		offset int
		value  uint8
	}{
		{"cached writes", vdpStateCached, maxCachedWrites + 1},
		{"dma type", vdpStateDMA, uint8(DMACopy) + 1},
		{"fifo count", vdpStateFIFO + 9, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := append([]byte(nil), buf...)
			bad[tt.offset] = tt.value

			vdp := makeTestVDP()
			want := vdp.DerivedState()
			if err := vdp.Deserialize(bad); err == nil {
				t.Fatal("expected an error")
			}
			if vdp.vram[0x100] != 0 {
				t.Errorf("expected VRAM untouched, got 0x%02X", vdp.vram[0x100])
			}
			if diff := cmp.Diff(want, vdp.DerivedState()); diff != "" {
				t.Errorf("derived state changed (-want +got):\n%s", diff)
			}
		})
	}
}
