package emu

import (
	"errors"

	"github.com/user-none/emvdp/emu/log"
)

// IOSerializeSize is the total bytes needed for IO serialization.
// version(1) + per port: data(1) + ctrl(1) + thIn(1)
const IOSerializeSize = 1 + 2*3

const ioSerializeVersion = 1

// ioPort is one controller port. Only the TH pin is modelled on the
// peripheral side: it feeds the VDP HL input used by light guns.
type ioPort struct {
	data byte // Data register (output values)
	ctrl byte // Ctrl register (1=output, 0=input; bit 7 = TH interrupt)
	thIn bool // Level driven onto TH by the peripheral
}

// IO is the console I/O chip as far as the VDP is concerned: the version
// register, two controller ports and the TH to HL latch path.
type IO struct {
	Region ConsoleRegion
	isPAL  bool
	vdp    *VDP
	ports  [2]ioPort
}

// NewIO creates a new I/O chip.
func NewIO(vdp *VDP, region ConsoleRegion, isPAL bool) *IO {
	io := &IO{Region: region, isPAL: isPAL, vdp: vdp}
	io.Reset()
	return io
}

// Reset releases both TH inputs and clears the port registers.
func (io *IO) Reset() {
	for i := range io.ports {
		io.ports[i] = ioPort{thIn: true}
	}
}

// ReadRegister reads an I/O register by address.
func (io *IO) ReadRegister(addr uint32) byte {
	switch addr {
	case 0xA10001:
		// bit 7 = overseas, bit 6 = PAL, bits 3-0 = hardware version
		var val byte
		if io.Region != ConsoleJapan {
			val |= 0x80
		}
		if io.isPAL {
			val |= 0x40
		}
		return val
	case 0xA10003:
		return io.readPort(0)
	case 0xA10005:
		return io.readPort(1)
	case 0xA10009:
		return io.ports[0].ctrl
	case 0xA1000B:
		return io.ports[1].ctrl
	default:
		return 0x00
	}
}

// WriteRegister writes an I/O register by address. mclk is the master
// cycle of the access.
func (io *IO) WriteRegister(mclk uint64, addr uint32, val byte) {
	switch addr {
	case 0xA10003:
		io.ports[0].data = val
	case 0xA10005:
		io.ports[1].data = val
	case 0xA10009:
		io.ports[0].ctrl = val
	case 0xA1000B:
		io.ports[1].ctrl = val
	}
}

// readPort combines the output pins from the data register with the input
// pins, which float high except for TH.
func (io *IO) readPort(n int) byte {
	p := &io.ports[n]
	in := byte(0x3F)
	if p.thIn {
		in |= 0x40
	}
	return p.data&p.ctrl&0x7F | in&^p.ctrl | p.data&0x80
}

// SetTH drives the TH pin of port n from the peripheral side. A falling
// edge on an input TH with the port interrupt enabled pulses the VDP HL
// line, which latches the HV counter.
func (io *IO) SetTH(n int, high bool, mclk uint64) {
	p := &io.ports[n]
	falling := p.thIn && !high
	p.thIn = high
	if !falling || p.ctrl&0x40 != 0 || p.ctrl&0x80 == 0 {
		return
	}
	log.ModHost.Debugf("port %d TH latch at %d", n+1, mclk)
	io.vdp.LatchHV(mclk)
}

// Serialize writes IO state to buf. buf must be at least IOSerializeSize bytes.
func (io *IO) Serialize(buf []byte) error {
	if len(buf) < IOSerializeSize {
		return errors.New("IO serialize buffer too small")
	}
	buf[0] = ioSerializeVersion
	offset := 1
	for _, p := range io.ports {
		buf[offset] = p.data
		buf[offset+1] = p.ctrl
		buf[offset+2] = boolByte(p.thIn)
		offset += 3
	}
	return nil
}

// Deserialize reads IO state from buf. buf must be at least IOSerializeSize bytes.
func (io *IO) Deserialize(buf []byte) error {
	if len(buf) < IOSerializeSize {
		return errors.New("IO deserialize buffer too small")
	}
	if buf[0] != ioSerializeVersion {
		return errors.New("unsupported IO state version")
	}
	offset := 1
	for i := range io.ports {
		io.ports[i] = ioPort{
			data: buf[offset],
			ctrl: buf[offset+1],
			thIn: buf[offset+2] != 0,
		}
		offset += 3
	}
	return nil
}
