//go:build vdpdebug

package emu

import "fmt"

// checkCycle panics when a bus master calls in with a cycle stamp older
// than its previous access. Port accesses must arrive in order.
func (v *VDP) checkCycle(m busMaster, cycle uint64) {
	if cycle < v.lastCycle[m] {
		panic(fmt.Sprintf("vdp: %s access at cycle %d after %d", m, cycle, v.lastCycle[m]))
	}
	v.lastCycle[m] = cycle
}
