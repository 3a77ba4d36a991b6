package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

// Save state format constants
const (
	stateVersion    = 3
	stateMagic      = "emVDPState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

// Fixed serialization sizes for inline components
const (
	busSerializeSize     = mainRAMSize + z80RAMSize + 3 // ram + z80RAM + flags
	z80MemSerializeSize  = 2                            // bankRegister
	consoleSerializeSize = 8 + 8 + 1 + 8                // lineStart + z80 cycles + irq level + frame
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeSize returns the total size in bytes needed for a save state.
func (c *Console) SerializeSize() int {
	return stateHeaderSize +
		m68k.SerializeSize +
		z80.SerializeSize +
		busSerializeSize +
		z80MemSerializeSize +
		VDPSerializeSize +
		sn76489.SerializeSize +
		IOSerializeSize +
		consoleSerializeSize
}

// Serialize creates a save state and returns it as a byte slice.
func (c *Console) Serialize() ([]byte, error) {
	data := make([]byte, c.SerializeSize())

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], c.bus.romCRC)

	offset := stateHeaderSize

	if err := c.m68k.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += m68k.SerializeSize

	if err := c.z80.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += z80.SerializeSize

	offset = c.serializeBus(data, offset)

	binary.LittleEndian.PutUint16(data[offset:], c.z80Mem.bankRegister)
	offset += z80MemSerializeSize

	if err := c.vdp.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += VDPSerializeSize

	if err := c.psg.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += sn76489.SerializeSize

	if err := c.io.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += IOSerializeSize

	binary.LittleEndian.PutUint64(data[offset:], c.lineStart)
	binary.LittleEndian.PutUint64(data[offset+8:], c.sub.cycles)
	data[offset+16] = c.main.level
	binary.LittleEndian.PutUint64(data[offset+17:], c.frame)

	// Data CRC32 covers everything after the header
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores console state from a save state byte slice.
// Region is NOT restored - the current region setting is preserved.
func (c *Console) Deserialize(data []byte) error {
	if err := c.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize

	if err := c.m68k.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += m68k.SerializeSize

	if err := c.z80.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += z80.SerializeSize

	offset = c.deserializeBus(data, offset)

	c.z80Mem.bankRegister = binary.LittleEndian.Uint16(data[offset:])
	offset += z80MemSerializeSize

	if err := c.vdp.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += VDPSerializeSize

	if err := c.psg.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += sn76489.SerializeSize

	if err := c.io.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += IOSerializeSize

	c.lineStart = binary.LittleEndian.Uint64(data[offset:])
	c.sub.cycles = binary.LittleEndian.Uint64(data[offset+8:])
	c.main.level = data[offset+16]
	c.frame = binary.LittleEndian.Uint64(data[offset+17:])

	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (c *Console) VerifyState(data []byte) error {
	if len(data) < c.SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != c.bus.romCRC {
		return errors.New("save state is for a different ROM")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	if crc32.ChecksumIEEE(data[stateHeaderSize:]) != expectedCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// serializeBus writes GenesisBus state to the data buffer.
func (c *Console) serializeBus(data []byte, offset int) int {
	offset += copy(data[offset:], c.bus.ram[:])
	offset += copy(data[offset:], c.bus.z80RAM[:])

	data[offset] = boolByte(c.bus.z80BusRequested)
	data[offset+1] = boolByte(c.bus.z80Reset)
	data[offset+2] = boolByte(c.bus.z80PendingReset)
	return offset + 3
}

// deserializeBus reads GenesisBus state from the data buffer.
func (c *Console) deserializeBus(data []byte, offset int) int {
	offset += copy(c.bus.ram[:], data[offset:offset+mainRAMSize])
	offset += copy(c.bus.z80RAM[:], data[offset:offset+z80RAMSize])

	c.bus.z80BusRequested = data[offset] != 0
	c.bus.z80Reset = data[offset+1] != 0
	c.bus.z80PendingReset = data[offset+2] != 0
	return offset + 3
}
