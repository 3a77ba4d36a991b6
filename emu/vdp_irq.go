package emu

import "github.com/user-none/emvdp/emu/log"

// AutoVector is returned by AcknowledgeInterrupt: the VDP never supplies a
// vector number, the 68K takes the autovector for the level.
const AutoVector = -1

// Interrupt levels driven on the 68K. The SMS-family line is a single
// active-low output and is reported as IRQLevelSMS.
const (
	IRQLevelSMS  uint8 = 1
	IRQLevelHInt uint8 = 4
	IRQLevelVInt uint8 = 6
)

// pendingIRQLevel returns the level the VDP output should be at given the
// pending flags and the enable bits.
func (v *VDP) pendingIRQLevel() uint8 {
	vint := v.vintPending && v.vIntEnabled()
	hint := v.hintPending && v.hIntEnabled()
	if v.model != ModelMD {
		if vint || hint {
			return IRQLevelSMS
		}
		return 0
	}
	switch {
	case vint:
		return IRQLevelVInt
	case hint:
		return IRQLevelHInt
	}
	return 0
}

// updateIRQ drives the main CPU interrupt input when the level changes.
func (v *VDP) updateIRQ() {
	level := v.pendingIRQLevel()
	if level == v.irqLevel {
		return
	}
	log.ModIRQ.Debugf("irq line %d -> %d", v.irqLevel, level)
	v.irqLevel = level
	v.cpuFor(v.mainMaster()).SetIRQ(level)
}

// AcknowledgeInterrupt is called by the 68K interrupt acknowledge cycle.
// VInt wins when it is enabled and pending; otherwise the HInt is taken.
// The line is re-driven for whatever is still pending.
func (v *VDP) AcknowledgeInterrupt(level uint8) int {
	if v.vIntEnabled() && v.vintPending {
		v.vintPending = false
		v.status &^= statusVInt
	} else {
		v.hintPending = false
	}
	log.ModIRQ.Debugf("ack level %d", level)
	v.updateIRQ()
	return AutoVector
}

// IRQLevel returns the level currently driven on the main CPU.
func (v *VDP) IRQLevel() uint8 {
	return v.irqLevel
}

// InterruptsPending returns the HInt and VInt pending flags.
func (v *VDP) InterruptsPending() (hint, vint bool) {
	return v.hintPending, v.vintPending
}

// raiseHInt marks a line interrupt pending.
func (v *VDP) raiseHInt() {
	v.hintPending = true
	v.updateIRQ()
}

// RaiseVInt marks the frame interrupt pending. The host calls it when its
// CPU reaches VIntCycle on the first VBlank line; EndScanline raises it for
// hosts that do not split the line.
func (v *VDP) RaiseVInt(cycle uint64) {
	if v.vintDelivered {
		return
	}
	v.vintDelivered = true
	v.vintPending = true
	if !v.vintStatusRead {
		v.status |= statusVInt
	}
	log.ModIRQ.Debugf("vint at %d", cycle)
	v.updateIRQ()

	// The MD VBlank output also drives the Z80 for one line
	if v.model == ModelMD {
		v.z80IRQ = true
		v.z80.SetIRQ(IRQLevelSMS)
	}
}

// VIntCycle returns the master cycle at which the VInt of the current line
// triggers. Only meaningful on the first VBlank line.
func (v *VDP) VIntCycle() uint64 {
	return v.lineStartCycle + vintTriggerCycle
}

// acknowledgeM4 clears both pending flags on an SMS-family status read.
func (v *VDP) acknowledgeM4() {
	v.hintPending = false
	v.vintPending = false
	v.updateIRQ()
}
