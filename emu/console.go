package emu

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"

	"github.com/user-none/emvdp/emu/log"
)

// Compile-time interface checks.
var _ emucore.SaveStater = (*Console)(nil)
var _ emucore.MemoryInspector = (*Console)(nil)
var _ emucore.MemoryMapper = (*Console)(nil)

var _ CPU = (*m68kPort)(nil)
var _ CPU = (*z80Port)(nil)

const (
	sampleRate    = 48000
	psgBufferSize = 1024
	psgGain       = 1898.0
)

// Flat address boundaries for ReadMemory.
const (
	mainRAMStart = 0x000000
	mainRAMEnd   = 0x00FFFF
	z80RAMStart  = 0x010000
	z80RAMEnd    = 0x011FFF
	vramStart    = 0x020000
	vramEnd      = 0x02FFFF
)

// m68kPort connects the VDP to the 68000. The CPU counts its own cycles;
// master cycles are seven times that.
type m68kPort struct {
	cpu   *m68k.CPU
	level uint8 // level the VDP currently drives
}

// Stall advances the 68K to the first of its cycles at or after until.
func (p *m68kPort) Stall(until uint64) {
	target := (until + m68kClockDivider - 1) / m68kClockDivider
	if now := p.cpu.Cycles(); target > now {
		p.cpu.AddCycles(target - now)
	}
}

// SetIRQ records the driven level and queues it on the CPU. The CPU only
// takes a queued level above its mask, so lowering the line is a record
// kept for the acknowledge check.
func (p *m68kPort) SetIRQ(level uint8) {
	p.level = level
	if level > 0 {
		p.cpu.RequestInterrupt(level, nil)
	}
}

// mask returns the interrupt priority mask from the status register.
func (p *m68kPort) mask() uint8 {
	return uint8(p.cpu.Registers().SR>>8) & 0x07
}

// z80Port connects the VDP to the Z80. The Z80 has no cycle counter of its
// own, so the port keeps one.
type z80Port struct {
	cpu    *z80.CPU
	cycles uint64
}

// Stall moves the Z80 clock forward to until.
func (p *z80Port) Stall(until uint64) {
	target := (until + z80ClockDivider - 1) / z80ClockDivider
	if target > p.cycles {
		p.cycles = target
	}
}

// SetIRQ drives the Z80 INT line. Any non-zero level asserts it.
func (p *z80Port) SetIRQ(level uint8) {
	p.cpu.INT(level != 0, 0xFF)
}

func (p *z80Port) mclk() uint64 {
	return p.cycles * z80ClockDivider
}

// Console runs a 68000, a Z80 and the VDP on a shared master clock, one
// scanline at a time.
type Console struct {
	m68k   *m68k.CPU
	z80    *z80.CPU
	z80Mem *Z80Memory
	bus    *GenesisBus
	vdp    *VDP
	psg    *sn76489.SN76489
	io     *IO

	main *m68kPort
	sub  *z80Port

	region Region
	timing RegionTiming

	// Master cycle at which the next scanline starts
	lineStart uint64

	frame       uint64
	audioBuffer []int16
}

// NewConsole creates a console around rom. Renderer output is discarded
// until SetRenderer is called.
func NewConsole(rom []byte, region Region) *Console {
	timing := GetTimingForRegion(region)
	isPAL := region == RegionPAL

	vdp := NewVDP(ModelMD, isPAL)
	psg := sn76489.New(timing.Z80ClockHz(), sampleRate, psgBufferSize, sn76489.Sega)
	psg.SetGain(psgGain)
	io := NewIO(vdp, DetectConsoleRegion(rom), isPAL)

	bus := NewGenesisBus(rom, vdp, io, psg)
	vdp.SetBus(bus)

	cpu := m68k.New(bus)
	z80Mem := NewZ80Memory(bus)
	z80CPU := z80.New(z80Mem)

	c := &Console{
		m68k:        cpu,
		z80:         z80CPU,
		z80Mem:      z80Mem,
		bus:         bus,
		vdp:         vdp,
		psg:         psg,
		io:          io,
		main:        &m68kPort{cpu: cpu},
		sub:         &z80Port{cpu: z80CPU},
		region:      region,
		timing:      timing,
		audioBuffer: make([]int16, 0, 2048),
	}
	vdp.SetCPUs(c.main, c.sub)
	c.lineStart = cpu.Cycles() * m68kClockDivider
	c.sub.cycles = c.lineStart / z80ClockDivider
	return c
}

// SetRenderer attaches the line renderer.
func (c *Console) SetRenderer(r Renderer) {
	c.vdp.SetRenderer(r)
}

// VDP returns the video chip.
func (c *Console) VDP() *VDP {
	return c.vdp
}

// IO returns the I/O chip.
func (c *Console) IO() *IO {
	return c.io
}

// Frame returns the number of frames run.
func (c *Console) Frame() uint64 {
	return c.frame
}

// RunFrame executes one frame of emulation.
func (c *Console) RunFrame() {
	c.audioBuffer = c.audioBuffer[:0]
	c.psg.ResetBuffer()

	for line := 0; line < c.vdp.LinesPerFrame(); line++ {
		c.RunScanline(line)
	}
	c.frame++
	c.mixAudio()
}

// RunScanline runs both CPUs through one line. On the first VBlank line
// the 68K is stopped at the VInt trigger point so the interrupt lands
// where the hardware raises it.
func (c *Console) RunScanline(line int) {
	start := c.lineStart
	end := start + MasterCyclesPerLine

	if hInt := c.vdp.StartScanline(line, start); hInt {
		log.ModHost.Debugf("hint on line %d", line)
	}

	if line == c.vdp.ActiveHeight() {
		at := c.vdp.VIntCycle()
		c.runM68K(at)
		c.vdp.RaiseVInt(at)
	}
	c.runM68K(end)

	if c.bus.z80PendingReset {
		c.z80.Reset()
		c.bus.z80PendingReset = false
	}
	c.runZ80(end)

	c.vdp.EndScanline(end)
	c.psg.Run(MasterCyclesPerLine / z80ClockDivider)
	c.lineStart = end
}

// runM68K steps the 68K until its clock reaches until. Cycles added by a
// VDP stall count toward the line like executed ones.
func (c *Console) runM68K(until uint64) {
	for c.m68k.Cycles()*m68kClockDivider < until {
		before := c.main.mask()
		if c.m68k.Step() == 0 {
			return // double bus fault
		}
		c.checkAcknowledge(before)
	}
}

// checkAcknowledge detects the 68K taking the VDP interrupt: the mask
// rises to the driven level during a step.
func (c *Console) checkAcknowledge(before uint8) {
	level := c.main.level
	if level == 0 || before >= level {
		return
	}
	if c.main.mask() >= level {
		c.vdp.AcknowledgeInterrupt(level)
	}
}

// runZ80 steps the Z80 until its clock reaches until. While held in reset
// or while the 68K owns its bus the Z80 clock simply follows the line.
func (c *Console) runZ80(until uint64) {
	p := c.sub
	if !c.bus.z80Reset || c.bus.z80BusRequested {
		if t := until / z80ClockDivider; t > p.cycles {
			p.cycles = t
		}
		return
	}
	for p.mclk() < until {
		c.z80Mem.mclk = p.mclk()
		n := c.z80.Step()
		if n == 0 {
			n = 4
		}
		p.cycles += uint64(n)
	}
}

// mixAudio copies the mono PSG output into the stereo frame buffer.
func (c *Console) mixAudio() {
	buf, count := c.psg.GetBuffer()
	for i := 0; i < count; i++ {
		s := int16(buf[i])
		c.audioBuffer = append(c.audioBuffer, s, s)
	}
}

// GetAudioSamples returns stereo 16-bit PCM samples for the last frame.
func (c *Console) GetAudioSamples() []int16 {
	return c.audioBuffer
}

// GetRegion returns the console's region setting.
func (c *Console) GetRegion() Region {
	return c.region
}

// GetTiming returns FPS and scanline count for the current region.
func (c *Console) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       c.timing.FPS,
		Scanlines: c.timing.Scanlines,
	}
}

// ReadMainRAM reads a single byte from 68K main RAM.
func (c *Console) ReadMainRAM(addr uint16) byte {
	return c.bus.ram[addr]
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read. Work RAM, Z80 RAM and VRAM are mapped back to back.
func (c *Console) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		switch {
		case cur <= mainRAMEnd:
			buf[i] = c.bus.ram[cur-mainRAMStart]
		case cur >= z80RAMStart && cur <= z80RAMEnd:
			buf[i] = c.bus.z80RAM[cur-z80RAMStart]
		case cur >= vramStart && cur <= vramEnd:
			buf[i] = c.vdp.vram[cur-vramStart]
		default:
			return count
		}
		count++
	}
	return count
}

// MemoryMap returns the available memory regions with sizes.
func (c *Console) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: mainRAMSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (c *Console) ReadRegion(regionType int) []byte {
	if regionType != emucore.MemorySystemRAM {
		return nil
	}
	out := make([]byte, mainRAMSize)
	copy(out, c.bus.ram[:])
	return out
}

// WriteRegion writes data to the specified memory region.
func (c *Console) WriteRegion(regionType int, data []byte) {
	if regionType == emucore.MemorySystemRAM {
		copy(c.bus.ram[:], data)
	}
}
