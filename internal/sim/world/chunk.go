package world

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"sunaba.world/internal/sim/material"
)

// ChunkSize is the edge length of the square pixel grid in every chunk.
const ChunkSize = 64

const chunkPixels = ChunkSize * ChunkSize

// PayloadBytes is the exact length of an encoded chunk payload.
const PayloadBytes = chunkPixels * PixelBytes

var ErrChunkDecode = errors.New("malformed chunk payload")

// ChunkKey addresses a chunk in the world-space partition.
type ChunkKey struct {
	CX, CY int
}

// Chunk is a fixed-size pixel grid owned exclusively by a World.
type Chunk struct {
	CX, CY int

	pixels [chunkPixels]Pixel

	// dirty is set on any pixel change and cleared when the persistence/sync
	// collaborator acknowledges the chunk.
	dirty bool

	// touched means something changed this tick; activeTicks counts down the
	// settle window once writes stop.
	touched     bool
	activeTicks int

	lightDirty bool
	light      [chunkPixels]uint8

	hash      [32]byte
	hashValid bool
}

func chunkIndex(lx, ly int) int { return ly*ChunkSize + lx }

func (c *Chunk) at(lx, ly int) Pixel { return c.pixels[chunkIndex(lx, ly)] }

// Active reports whether any contained pixel changed within the settle window.
func (c *Chunk) Active() bool { return c.activeTicks > 0 }

// Dirty reports whether the chunk changed since the last acknowledgment.
func (c *Chunk) Dirty() bool { return c.dirty }

// Encode packs the pixel grid in row-major order. Transient per-tick flag bits
// are masked so encodings are stable for identical logical state.
func (c *Chunk) Encode() []byte {
	out := make([]byte, PayloadBytes)
	for i := range c.pixels {
		c.pixels[i].encode(out[i*PixelBytes:])
	}
	return out
}

// Digest returns a content hash of the packed encoding, cached until the next
// pixel change.
func (c *Chunk) Digest() [32]byte {
	if !c.hashValid {
		c.hash = sha256.Sum256(c.Encode())
		c.hashValid = true
	}
	return c.hash
}

// Materials copies the material id plane in row-major order (sync wire format).
func (c *Chunk) Materials() []uint16 {
	out := make([]uint16, chunkPixels)
	for i := range c.pixels {
		out[i] = uint16(c.pixels[i].Material)
	}
	return out
}

// DecodeChunk rebuilds a chunk from a persisted payload. Payloads of the wrong
// length fail with ErrChunkDecode; material ids outside the registry fail with
// material.ErrInvalidMaterialID. Neither is fatal to the caller, which may
// regenerate or skip the chunk.
func DecodeChunk(cx, cy int, payload []byte, mats *material.Registry) (*Chunk, error) {
	if len(payload) != PayloadBytes {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrChunkDecode, len(payload), PayloadBytes)
	}
	c := &Chunk{CX: cx, CY: cy}
	for i := 0; i < chunkPixels; i++ {
		p := decodePixel(payload[i*PixelBytes:])
		if !mats.Valid(p.Material) {
			return nil, fmt.Errorf("%w: id %d at cell %d", material.ErrInvalidMaterialID, p.Material, i)
		}
		c.pixels[i] = p
	}
	c.dirty = true
	c.lightDirty = true
	return c, nil
}
