//go:build !vdpdebug

package emu

func (v *VDP) checkCycle(busMaster, uint64) {}
