// Package log provides per-module logging on top of logrus. Warnings and
// errors are always emitted; debug and info output is gated by a module mask
// so hot emulation paths cost a single bit test when disabled.
package log

import (
	"io"
	"strings"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level = logrus.Level

const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

type Fields logrus.Fields

type ModuleMask uint64
type Module uint

const ModuleMaskAll ModuleMask = 0xFFFFFFFFFFFFFFFF

const (
	ModEmu Module = iota + 1
	ModVDP
	ModDMA
	ModFIFO
	ModBus
	ModIRQ
	ModHost
)

var modNames = []string{
	"<error>", "emu", "vdp", "dma", "fifo", "bus", "irq", "host",
}

var modDebugMask ModuleMask

// ModuleByName returns the module registered under name.
func ModuleByName(name string) (Module, bool) {
	for idx, s := range modNames {
		if idx != 0 && s == name {
			return Module(idx), true
		}
	}
	return 0, false
}

// ModuleNames lists the known module names.
func ModuleNames() []string {
	return append([]string(nil), modNames[1:]...)
}

// EnableDebugModules turns on debug output for the modules in mask.
func EnableDebugModules(mask ModuleMask) {
	modDebugMask |= mask
}

// DisableDebugModules turns off debug output for the modules in mask.
func DisableDebugModules(mask ModuleMask) {
	modDebugMask &^= mask
}

// ParseModules converts a comma separated list of module names ("all"
// accepted) into a mask. Unknown names are returned separately.
func ParseModules(list []string) (mask ModuleMask, unknown []string) {
	for _, name := range list {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if name == "all" {
			return ModuleMaskAll, unknown
		}
		mod, ok := ModuleByName(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		mask |= mod.Mask()
	}
	return mask, unknown
}

// SetLevel sets the logrus level of the standard logger.
func SetLevel(lvl Level) {
	logrus.SetLevel(lvl)
}

// ParseLevel parses a logrus level name.
func ParseLevel(s string) (Level, error) {
	return logrus.ParseLevel(s)
}

// SetOutput redirects the standard logger.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

func (mod Module) Mask() ModuleMask {
	return 1 << ModuleMask(mod)
}

func (mod Module) String() string {
	if int(mod) < len(modNames) {
		return modNames[mod]
	}
	return modNames[0]
}

func (mod Module) Enabled(level Level) bool {
	return level <= WarnLevel || modDebugMask&mod.Mask() != 0
}

func (mod Module) WithField(key string, value any) Entry {
	return Entry{mod: mod}.WithField(key, value)
}

func (mod Module) WithFields(fields Fields) Entry {
	return Entry{mod: mod}.WithFields(fields)
}

func (mod Module) Debugf(format string, args ...any) {
	Entry{mod: mod}.Debugf(format, args...)
}

func (mod Module) Infof(format string, args ...any) {
	Entry{mod: mod}.Infof(format, args...)
}

func (mod Module) Warnf(format string, args ...any) {
	Entry{mod: mod}.Warnf(format, args...)
}

func (mod Module) Errorf(format string, args ...any) {
	Entry{mod: mod}.Errorf(format, args...)
}

func (mod Module) Fatalf(format string, args ...any) {
	Entry{mod: mod}.Fatalf(format, args...)
}
