package emu

// Pattern cache invalidation. Every VRAM write marks the 8-pixel row of the
// 32-byte tile it lands in; the first mark of a tile also appends the tile
// to a list so the renderer only re-decodes what changed.

// markTileDirty records a VRAM byte change at addr.
func (v *VDP) markTileDirty(addr uint16) {
	name := (addr >> 5) & 0x7FF
	if v.bgNameDirty[name] == 0 {
		v.bgNameList[v.bgListIndex] = name
		v.bgListIndex++
	}
	v.bgNameDirty[name] |= 1 << ((addr >> 2) & 7)
}

// invalidateAllTiles marks every row of every tile dirty.
func (v *VDP) invalidateAllTiles() {
	for i := range v.bgNameDirty {
		v.bgNameDirty[i] = 0xFF
		v.bgNameList[i] = uint16(i)
	}
	v.bgListIndex = len(v.bgNameList)
}

// DirtyTile is one entry of the pattern cache invalidation list.
type DirtyTile struct {
	Name uint16 // tile index (VRAM address >> 5)
	Rows uint8  // bit n set when pixel row n changed
}

// DrainDirtyTiles hands every tile modified since the last call to fn and
// clears the list.
func (v *VDP) DrainDirtyTiles(fn func(DirtyTile)) {
	for i := 0; i < v.bgListIndex; i++ {
		name := v.bgNameList[i]
		if fn != nil {
			fn(DirtyTile{Name: name, Rows: v.bgNameDirty[name]})
		}
		v.bgNameDirty[name] = 0
	}
	v.bgListIndex = 0
}

// DirtyTileCount returns the number of tiles waiting in the invalidation list.
func (v *VDP) DirtyTileCount() int {
	return v.bgListIndex
}

// satWord mirrors a VRAM word write into the internal sprite table when the
// address falls inside the table base.
func (v *VDP) satWord(index uint16, data uint16) {
	if index&v.satBaseMask != v.satb {
		return
	}
	i := index & v.satAddrMask &^ 1
	v.sat[i] = uint8(data >> 8)
	v.sat[i+1] = uint8(data)
}

// satByte is satWord for byte-wide DMA fill and copy.
func (v *VDP) satByte(addr uint16, data uint8) {
	if addr&v.satBaseMask != v.satb {
		return
	}
	v.sat[addr&v.satAddrMask] = data
}

// writeVRAMByte stores one VRAM byte through the sprite intercept and cache.
func (v *VDP) writeVRAMByte(addr uint16, data uint8) {
	if v.mode5() {
		v.satByte(addr, data)
	}
	v.vram[addr] = data
	v.markTileDirty(addr)
}
