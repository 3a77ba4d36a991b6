package emu

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so internal code compiles unchanged.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds timing constants for a specific region. Both CPU
// clocks divide the master clock the VDP counts in.
type RegionTiming struct {
	MasterClockHz int // Crystal frequency
	Scanlines     int // Total scanlines per frame
	FPS           int // Frames per second
}

// NTSC timing: 53.693175 MHz master, 262 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	MasterClockHz: 53693175,
	Scanlines:     262,
	FPS:           60,
}

// PAL timing: 53.203424 MHz master, 313 scanlines, 50 Hz
var PALTiming = RegionTiming{
	MasterClockHz: 53203424,
	Scanlines:     313,
	FPS:           50,
}

// M68KClockHz returns the 68000 clock.
func (t RegionTiming) M68KClockHz() int {
	return t.MasterClockHz / m68kClockDivider
}

// Z80ClockHz returns the Z80 and PSG clock.
func (t RegionTiming) Z80ClockHz() int {
	return t.MasterClockHz / z80ClockDivider
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// ConsoleRegion is the hardware region identity reported by the version
// register. It is separate from the display timing region (NTSC/PAL).
type ConsoleRegion int

const (
	ConsoleJapan  ConsoleRegion = iota // Domestic, NTSC
	ConsoleUSA                         // Overseas, NTSC
	ConsoleEurope                      // Overseas, PAL
)

// DetectConsoleRegion inspects the ROM header region field at offset $1F0-$1FF.
// For multi-region ROMs, priority is J > U > E. Returns ConsoleUSA for
// unknown or missing region data.
func DetectConsoleRegion(rom []byte) ConsoleRegion {
	if len(rom) < 0x200 {
		return ConsoleUSA
	}
	var hasJ, hasU, hasE bool
	for _, b := range rom[0x1F0:0x200] {
		switch b {
		case 'J':
			hasJ = true
		case 'U':
			hasU = true
		case 'E':
			hasE = true
		}
	}
	switch {
	case hasJ:
		return ConsoleJapan
	case hasU:
		return ConsoleUSA
	case hasE:
		return ConsoleEurope
	}
	return ConsoleUSA
}

// DetectRegion returns the display timing region for a ROM header.
func DetectRegion(rom []byte) Region {
	if DetectConsoleRegion(rom) == ConsoleEurope {
		return RegionPAL
	}
	return RegionNTSC
}
