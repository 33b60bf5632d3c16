package world

import (
	"encoding/binary"

	"sunaba.world/internal/sim/material"
)

// Pixel is one simulation cell. It has no lifecycle of its own; it lives
// inside a chunk's grid and is overwritten in place.
type Pixel struct {
	Material material.ID
	Temp     int16
	Flags    uint8
	Variant  uint8
}

// PixelBytes is the packed wire width of one pixel.
const PixelBytes = 6

// Persistent flag bits.
const (
	// FlagAnchor marks a pixel as a structural anchor regardless of material.
	FlagAnchor uint8 = 1 << 0
)

// Per-tick scratch bits. These never leave the process: encodings mask them.
const (
	flagMoved   uint8 = 1 << 6
	flagReacted uint8 = 1 << 7

	flagTransient = flagMoved | flagReacted
)

func (p Pixel) encode(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], uint16(p.Material))
	binary.LittleEndian.PutUint16(dst[2:4], uint16(p.Temp))
	dst[4] = p.Flags &^ flagTransient
	dst[5] = p.Variant
}

func decodePixel(src []byte) Pixel {
	return Pixel{
		Material: material.ID(binary.LittleEndian.Uint16(src[0:2])),
		Temp:     int16(binary.LittleEndian.Uint16(src[2:4])),
		Flags:    src[4] &^ flagTransient,
		Variant:  src[5],
	}
}
