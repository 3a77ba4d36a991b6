package emu

import (
	"fmt"

	"github.com/user-none/emvdp/emu/log"
)

// The 4-entry write FIFO drains one entry per free access slot during
// active display. VRAM writes are byte wide internally so a word needs two
// slots. Slot positions come from the width-dependent timing table.

func (v *VDP) fifoShift() int {
	if v.fifoByteAccess {
		return 1
	}
	return 0
}

// fifoProgress works out how many queued entries have been serviced by
// cycle without modifying anything. slots is the slot counter after
// servicing them and total the slot count at the start of this line.
func (v *VDP) fifoProgress(cycle uint64) (retired, slots, total int) {
	total = v.timing.dmaActiveRate * v.line
	elapsed := v.lineCycle(cycle)
	table := v.timing.fifoSlots
	lineSlots := 0
	for lineSlots < len(table) && table[lineSlots] <= elapsed {
		lineSlots++
	}

	shift := v.fifoShift()
	slots = v.fifoSlots
	readCnt := (total + lineSlots - v.fifoSlots) >> shift
	if readCnt > 0 {
		retired = min(readCnt, v.fifoWriteCount)
		slots += readCnt << shift
	}
	return retired, slots, total
}

// fifoUpdate retires serviced entries and recomputes the next slot cycle.
func (v *VDP) fifoUpdate(cycle uint64) {
	retired, slots, total := v.fifoProgress(cycle)
	v.fifoWriteCount -= retired
	if v.fifoWriteCount < 0 {
		panic(fmt.Sprintf("vdp: FIFO count went negative (%d)", v.fifoWriteCount))
	}
	v.fifoSlots = slots

	table := v.timing.fifoSlots
	idx := v.fifoSlots - total + v.fifoShift()
	if idx < 0 {
		idx = 0
	} else if idx >= len(table) {
		idx = len(table) - 1
	}
	v.fifoNextCycle = v.lineStartCycle + uint64(table[idx])
}

// fifoWrite accounts for one 68K data write during active display, stalling
// the 68K when all four entries are in use.
func (v *VDP) fifoWrite(cycle uint64) {
	v.fifoUpdate(cycle)
	if v.fifoWriteCount < 4 {
		v.fifoWriteCount++
		return
	}
	log.ModFIFO.Debugf("full at %d, 68K waits until %d", cycle, v.fifoNextCycle)
	v.m68k.Stall(v.fifoNextCycle)
	v.fifoSlots += 1 + v.fifoShift()
}

// flushFIFO empties the FIFO, as happens when the display stops fetching.
func (v *VDP) flushFIFO() {
	v.fifoWriteCount = 0
}

// FIFOCount returns the number of entries waiting to be written.
func (v *VDP) FIFOCount() int {
	return v.fifoWriteCount
}

// FIFONextCycle returns the master cycle of the next free access slot.
func (v *VDP) FIFONextCycle() uint64 {
	return v.fifoNextCycle
}
