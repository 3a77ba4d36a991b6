package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/user-none/emvdp/emu"
	"github.com/user-none/emvdp/emu/log"
)

// Trace is a cycle-stamped list of port operations.
//
//	model = "md"
//	region = "ntsc"
//
//	[[op]]
//	cycle = 0
//	kind = "ctrl"
//	value = 0x8174
type Trace struct {
	Model  string    `toml:"model"`
	Region string    `toml:"region"`
	Ops    []TraceOp `toml:"op"`
}

// TraceOp is one port access or scanline event. Kinds:
//
//	ctrl, data             68K word writes
//	status, read, hv       68K word reads
//	ctrl8, data8           Z80 byte writes
//	status8, read8         Z80 byte reads
//	line                   start scanline Line at cycle
//	endline                end the current scanline at cycle
//	latch                  external HV latch
type TraceOp struct {
	Cycle uint64 `toml:"cycle"`
	Kind  string `toml:"kind"`
	Value uint16 `toml:"value"`
	Line  int    `toml:"line"`
}

// TraceRead is the value returned by a read op.
type TraceRead struct {
	Index int
	Kind  string
	Cycle uint64
	Value uint16
}

func (r Run) run(cfg emu.Config, out *output) error {
	var tr Trace
	if _, err := toml.DecodeFile(r.TracePath, &tr); err != nil {
		return err
	}
	if tr.Model != "" {
		cfg.VDP.Model = tr.Model
	}
	if tr.Region != "" {
		cfg.VDP.Region = tr.Region
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	region, err := cfg.Region()
	if err != nil {
		return err
	}

	vdp := emu.NewVDP(model, region == emu.RegionPAL)
	lines := &lineCounter{}
	vdp.SetRenderer(lines)

	reads, last, err := replay(vdp, tr.Ops)
	if err != nil {
		return err
	}
	out.vdp(vdp, last, lines)
	out.reads(reads)
	return nil
}

// replay applies ops in order and collects read results. It returns the
// cycle of the last op.
func replay(vdp *emu.VDP, ops []TraceOp) ([]TraceRead, uint64, error) {
	var (
		reads []TraceRead
		last  uint64
	)
	for i, op := range ops {
		if op.Cycle < last && op.Kind != "line" {
			log.ModHost.Warnf("op %d: cycle %d before %d", i, op.Cycle, last)
		}
		last = op.Cycle

		read := func(v uint16) {
			reads = append(reads, TraceRead{Index: i, Kind: op.Kind, Cycle: op.Cycle, Value: v})
		}

		switch op.Kind {
		case "ctrl":
			vdp.WriteControl(op.Cycle, op.Value)
		case "data":
			vdp.WriteData(op.Cycle, op.Value)
		case "status":
			read(vdp.ReadStatus(op.Cycle))
		case "read":
			read(vdp.ReadData(op.Cycle))
		case "hv":
			read(vdp.ReadHVCounter(op.Cycle))
		case "ctrl8":
			vdp.WriteControlByte(op.Cycle, uint8(op.Value))
		case "data8":
			vdp.WriteDataByte(op.Cycle, uint8(op.Value))
		case "status8":
			read(uint16(vdp.ReadStatusByte(op.Cycle)))
		case "read8":
			read(uint16(vdp.ReadDataByte(op.Cycle)))
		case "line":
			vdp.StartScanline(op.Line, op.Cycle)
		case "endline":
			vdp.EndScanline(op.Cycle)
		case "latch":
			vdp.LatchHV(op.Cycle)
		default:
			return nil, last, fmt.Errorf("op %d: unknown kind %q", i, op.Kind)
		}
	}
	return reads, last, nil
}

// lineCounter is a Renderer that only counts the calls it receives.
type lineCounter struct {
	rendered int
	remapped int
}

func (l *lineCounter) RenderLine(emu.RenderMode, int) { l.rendered++ }
func (l *lineCounter) RemapLine(int)                  { l.remapped++ }
