package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	vdpSerializeVersion = 3

	// Section offsets within a VDP state.
	// header: version(1) + model(1) + isPAL(1)
	// memories: vram + cram + vsram + sat + regs
	// control: pending(1) + addrLatch(2) + addr(2) + code(1) + readBuffer(1) + ggLatch(1)
	// cached writes: count(1) + maxCachedWrites * (ctrl(1) + data(2))
	// counters: status(2) + oddFrame(1) + line(4) + lineStartCycle(8) +
	//   hvLatch(4) + hintCounter(4) + vintDelivered(1) + vintStatusRead(1) + fifthSprite(1)
	// irq: hintPending(1) + vintPending(1) + irqLevel(1) + z80IRQ(1)
	// dma: type(1) + length(4) + source(2) + endCycle(8) + fillPending(1)
	// fifo: entries(8) + idx(1) + count(1) + byteAccess(1) + slots(4) + nextCycle(8)
	vdpStateMemories = 3
	vdpStateControl  = vdpStateMemories + 0x10000 + 0x80 + 0x80 + 0x400 + 0x20
	vdpStateCached   = vdpStateControl + 8
	vdpStateCounters = vdpStateCached + 1 + maxCachedWrites*3
	vdpStateIRQ      = vdpStateCounters + 26
	vdpStateDMA      = vdpStateIRQ + 4
	vdpStateFIFO     = vdpStateDMA + 16

	// VDPSerializeSize is the total bytes needed for VDP serialization.
	VDPSerializeSize = vdpStateFIFO + 23
)

// Serialize writes VDP state to buf. buf must be at least VDPSerializeSize bytes.
func (v *VDP) Serialize(buf []byte) error {
	if len(buf) < VDPSerializeSize {
		return errors.New("VDP serialize buffer too small")
	}

	offset := 0

	// Header
	buf[offset] = vdpSerializeVersion
	buf[offset+1] = uint8(v.model)
	buf[offset+2] = boolByte(v.isPAL)
	offset += 3

	// Memories
	offset += copy(buf[offset:], v.vram[:])
	offset += copy(buf[offset:], v.cram[:])
	offset += copy(buf[offset:], v.vsram[:])
	offset += copy(buf[offset:], v.sat[:])
	offset += copy(buf[offset:], v.regs[:])

	// Control port state
	buf[offset] = boolByte(v.pending)
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], v.addrLatch)
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], v.addr)
	offset += 2
	buf[offset] = v.code
	buf[offset+1] = v.readBuffer
	buf[offset+2] = v.ggLatch
	offset += 3

	// Writes deferred behind a bus DMA
	buf[offset] = uint8(len(v.cached))
	offset++
	for i := 0; i < maxCachedWrites; i++ {
		var w cachedWrite
		if i < len(v.cached) {
			w = v.cached[i]
		}
		buf[offset] = boolByte(w.ctrl)
		binary.LittleEndian.PutUint16(buf[offset+1:], w.data)
		offset += 3
	}

	// Status and counters
	binary.LittleEndian.PutUint16(buf[offset:], v.status)
	offset += 2
	buf[offset] = boolByte(v.oddFrame)
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], uint32(int32(v.line)))
	offset += 4
	binary.LittleEndian.PutUint64(buf[offset:], v.lineStartCycle)
	offset += 8
	binary.LittleEndian.PutUint32(buf[offset:], v.hvLatch)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(int32(v.hintCounter)))
	offset += 4
	buf[offset] = boolByte(v.vintDelivered)
	buf[offset+1] = boolByte(v.vintStatusRead)
	buf[offset+2] = v.fifthSprite
	offset += 3

	// Interrupts
	buf[offset] = boolByte(v.hintPending)
	buf[offset+1] = boolByte(v.vintPending)
	buf[offset+2] = v.irqLevel
	buf[offset+3] = boolByte(v.z80IRQ)
	offset += 4

	// DMA
	buf[offset] = uint8(v.dmaType)
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], v.dmaLength)
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], v.dmaSrc)
	offset += 2
	binary.LittleEndian.PutUint64(buf[offset:], v.dmaEndCycle)
	offset += 8
	buf[offset] = boolByte(v.dmaFillPending)
	offset++

	// FIFO
	for _, e := range v.fifo {
		binary.LittleEndian.PutUint16(buf[offset:], e)
		offset += 2
	}
	buf[offset] = uint8(v.fifoIdx)
	buf[offset+1] = uint8(v.fifoWriteCount)
	buf[offset+2] = boolByte(v.fifoByteAccess)
	offset += 3
	binary.LittleEndian.PutUint32(buf[offset:], uint32(int32(v.fifoSlots)))
	offset += 4
	binary.LittleEndian.PutUint64(buf[offset:], v.fifoNextCycle)

	return nil
}

// Deserialize reads VDP state from buf. buf must be at least VDPSerializeSize bytes.
//
// Registers are replayed through the register write handler so every
// derived value is rebuilt rather than trusted from the buffer. Render
// hooks and HV latch capture are suppressed during the replay.
func (v *VDP) Deserialize(buf []byte) error {
	if len(buf) < VDPSerializeSize {
		return errors.New("VDP deserialize buffer too small")
	}

	if err := v.checkState(buf); err != nil {
		return err
	}

	offset := 0

	// Header
	v.isPAL = buf[offset+2] != 0
	if v.isPAL {
		v.linesPerFrame = 313
	} else {
		v.linesPerFrame = 262
	}
	offset += 3

	// Memories
	offset += copy(v.vram[:], buf[offset:])
	offset += copy(v.cram[:], buf[offset:])
	offset += copy(v.vsram[:], buf[offset:])
	offset += copy(v.sat[:], buf[offset:])
	var regs [0x20]uint8
	offset += copy(regs[:], buf[offset:])

	// Replay registers from a cleared bank
	v.hintPending = false
	v.vintPending = false
	v.irqLevel = 0
	v.restoring = true
	v.regs = [0x20]uint8{}
	v.rebuildDerived()
	for i, val := range regs {
		v.writeRegister(uint8(i), val, 0)
	}
	// Registers the current mode does not decode still hold their values
	v.regs = regs
	v.rebuildDerived()
	v.restoring = false

	// Control port state
	v.pending = buf[offset] != 0
	offset++
	v.addrLatch = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.addr = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.code = buf[offset]
	v.readBuffer = buf[offset+1]
	v.ggLatch = buf[offset+2]
	offset += 3
	v.fifoByteAccess = v.code&0x0F < 0x03

	// Writes deferred behind a bus DMA
	n := int(buf[offset])
	offset++
	v.cached = v.cached[:0]
	for i := 0; i < maxCachedWrites; i++ {
		if i < n {
			v.cached = append(v.cached, cachedWrite{
				ctrl: buf[offset] != 0,
				data: binary.LittleEndian.Uint16(buf[offset+1:]),
			})
		}
		offset += 3
	}

	// Status and counters
	v.status = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.oddFrame = buf[offset] != 0
	offset++
	v.line = int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	offset += 4
	v.lineStartCycle = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	v.hvLatch = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	v.hintCounter = int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	offset += 4
	v.vintDelivered = buf[offset] != 0
	v.vintStatusRead = buf[offset+1] != 0
	v.fifthSprite = buf[offset+2]
	offset += 3

	// Interrupts
	v.hintPending = buf[offset] != 0
	v.vintPending = buf[offset+1] != 0
	v.irqLevel = buf[offset+2]
	v.z80IRQ = buf[offset+3] != 0
	offset += 4

	// DMA
	v.dmaType = DMAType(buf[offset])
	offset++
	v.dmaLength = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	v.dmaSrc = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.dmaEndCycle = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	v.dmaFillPending = buf[offset] != 0
	offset++

	// FIFO
	for i := range v.fifo {
		v.fifo[i] = binary.LittleEndian.Uint16(buf[offset:])
		offset += 2
	}
	v.fifoIdx = int(buf[offset]) & 3
	v.fifoWriteCount = int(buf[offset+1])
	offset += 3
	v.fifoSlots = int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	offset += 4
	v.fifoNextCycle = binary.LittleEndian.Uint64(buf[offset:])

	v.rebuildPalette()
	v.invalidateAllTiles()
	v.lastCycle = [2]uint64{}

	return nil
}

// checkState rejects a state before anything is loaded from it.
func (v *VDP) checkState(buf []byte) error {
	if version := buf[0]; version != vdpSerializeVersion {
		return fmt.Errorf("unsupported VDP state version %d", version)
	}
	if model := Model(buf[1]); model != v.model {
		return fmt.Errorf("VDP state is for model %s, not %s", model, v.model)
	}
	if n := int(buf[vdpStateCached]); n > maxCachedWrites {
		return fmt.Errorf("VDP state has %d deferred writes", n)
	}
	if t := DMAType(buf[vdpStateDMA]); t > DMACopy {
		return fmt.Errorf("VDP state has DMA type %d", t)
	}
	if n := int(buf[vdpStateFIFO+9]); n > 4 {
		return fmt.Errorf("VDP state has FIFO count %d", n)
	}
	return nil
}
