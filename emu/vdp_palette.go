package emu

import "image/color"

// Brightness variants held in the palette cache.
const (
	BrightnessNormal = iota
	BrightnessShadow
	BrightnessHighlight
)

// Fixed TMS9918 colours. Entry 0 is transparent and shows as black.
var tmsPalette = [16]color.RGBA{
	{0, 0, 0, 255}, {0, 0, 0, 255}, {33, 200, 66, 255}, {94, 220, 120, 255},
	{84, 85, 237, 255}, {125, 118, 252, 255}, {212, 82, 77, 255}, {66, 235, 245, 255},
	{252, 85, 84, 255}, {255, 121, 120, 255}, {212, 193, 84, 255}, {230, 206, 128, 255},
	{33, 176, 59, 255}, {201, 91, 186, 255}, {204, 204, 204, 255}, {255, 255, 255, 255},
}

// Palette scale: 2-bit SMS color to 8-bit RGB
var paletteScale = [4]uint8{0, 85, 170, 255}

// Color returns the cached RGBA value for CRAM entry index.
func (v *VDP) Color(index int, brightness int) color.RGBA {
	return v.palette[brightness%3][index&0x3F]
}

// Backdrop returns the cached backdrop colour selected by reg 7.
func (v *VDP) Backdrop() color.RGBA {
	return v.backdrop
}

// packCRAM converts a 16-bit bus word (0000BBB0 GGG0RRR0) to the internal
// 9-bit BBBGGGRRR format.
func packCRAM(data uint16) uint16 {
	return (data&0xE00)>>3 | (data&0xE0)>>2 | (data&0x0E)>>1
}

// unpackCRAM converts internal 9-bit CRAM data back to bus format.
func unpackCRAM(data uint16) uint16 {
	return (data&0x1C0)<<3 | (data&0x038)<<2 | (data&0x007)<<1
}

func expand3(c uint16) uint8 {
	c &= 0x07
	return uint8(c<<5 | c<<2 | c>>1)
}

func expand4(c uint16) uint8 {
	c &= 0x0F
	return uint8(c<<4 | c)
}

// cramColor converts packed CRAM entry index to RGB for the active format.
func (v *VDP) cramColor(index int) color.RGBA {
	w := v.CRAMWord(index)
	switch {
	case v.mode5():
		return color.RGBA{R: expand3(w), G: expand3(w >> 3), B: expand3(w >> 6), A: 255}
	case v.model == ModelGG:
		return color.RGBA{R: expand4(w), G: expand4(w >> 4), B: expand4(w >> 8), A: 255}
	default:
		return color.RGBA{
			R: paletteScale[w&0x03],
			G: paletteScale[(w>>2)&0x03],
			B: paletteScale[(w>>4)&0x03],
			A: 255,
		}
	}
}

// updateColor refreshes one palette cache entry in all brightness variants.
func (v *VDP) updateColor(index int) {
	c := v.cramColor(index)
	v.palette[BrightnessNormal][index] = c
	v.palette[BrightnessShadow][index] = color.RGBA{R: c.R >> 1, G: c.G >> 1, B: c.B >> 1, A: 255}
	v.palette[BrightnessHighlight][index] = color.RGBA{
		R: highlight(c.R), G: highlight(c.G), B: highlight(c.B), A: 255,
	}
}

func highlight(c uint8) uint8 {
	h := uint16(c) + 128
	if h > 255 {
		h = 255
	}
	return uint8(h)
}

// updateBackdrop refreshes the cached backdrop colour.
func (v *VDP) updateBackdrop() {
	if v.renderMode < RenderMode4 {
		v.backdrop = tmsPalette[v.regs[7]&0x0F]
		return
	}
	v.backdrop = v.palette[BrightnessNormal][v.border&0x3F]
}

// rebuildPalette recomputes the whole palette cache from CRAM.
func (v *VDP) rebuildPalette() {
	if v.model == ModelTMS9918 {
		for i := range v.palette[BrightnessNormal] {
			v.palette[BrightnessNormal][i] = tmsPalette[i&0x0F]
		}
		v.updateBackdrop()
		return
	}
	for i := 0; i < 0x40; i++ {
		v.updateColor(i)
	}
	v.updateBackdrop()
}
