package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Digest hashes the full pixel state over sorted chunk keys. Two worlds that
// evolved from the same initial state through the same tick count and edits
// must report the same digest; the determinism tests and the replay tool rely
// on this.
func (w *World) Digest() string {
	var keys []ChunkKey
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sortKeys(keys)

	h := sha256.New()
	var coord [8]byte
	for _, k := range keys {
		binary.LittleEndian.PutUint32(coord[0:4], uint32(int32(k.CX)))
		binary.LittleEndian.PutUint32(coord[4:8], uint32(int32(k.CY)))
		h.Write(coord[:])
		d := w.chunks[k].Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
