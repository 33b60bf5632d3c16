package world

import (
	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/world/logic/mathx"
)

type cellCoord struct{ x, y int }

// structuralPass is the support/connectivity check. It is the most expensive
// system, so each tick handles only the active chunks whose key falls in the
// current rotation slot; every chunk gets its turn within StructuralStride
// ticks.
//
// A structural pixel is supported when a path of structural pixels no longer
// than SupportSpan connects it to an anchor: an anchor-tagged material, a
// pixel carrying the anchor flag, or the world floor line (every cell at or
// below FloorY, loaded or not). Unsupported pixels become their fall product (handing them
// to the movement pass as powder) or are destroyed.
func (w *World) structuralPass(keys []ChunkKey) int {
	collapsed := 0
	slot := int(w.tick) % w.cfg.StructuralStride
	for _, k := range keys {
		if mathx.Mod(k.CX+k.CY, w.cfg.StructuralStride) != slot {
			continue
		}
		collapsed += w.checkChunkSupport(w.chunks[k])
	}
	return collapsed
}

func (w *World) checkChunkSupport(ch *Chunk) int {
	span := w.cfg.SupportSpan
	x0 := ch.CX*ChunkSize - span
	y0 := ch.CY*ChunkSize - span
	x1 := ch.CX*ChunkSize + ChunkSize - 1 + span
	y1 := ch.CY*ChunkSize + ChunkSize - 1 + span

	// Multi-source BFS from every anchor in the padded region. Padding by the
	// span means support entering from a neighboring chunk is seen. The floor
	// line anchors unconditionally: rows at or below FloorY seed the search
	// even where their chunks were never loaded, so resting on the floor does
	// not depend on which chunks happen to be materialized.
	dist := map[cellCoord]int{}
	var frontier []cellCoord
	for y := y0; y <= y1; y++ {
		floorRow := y >= w.cfg.FloorY
		for x := x0; x <= x1; x++ {
			if floorRow {
				dist[cellCoord{x, y}] = 0
				frontier = append(frontier, cellCoord{x, y})
				continue
			}
			p := w.GetPixel(x, y)
			if p.Material == material.Air {
				continue
			}
			def := w.mats.MustGet(p.Material)
			if !w.supportCarrier(def) {
				continue
			}
			if def.HasTag(material.TagAnchor) || p.Flags&FlagAnchor != 0 {
				dist[cellCoord{x, y}] = 0
				frontier = append(frontier, cellCoord{x, y})
			}
		}
	}

	for head := 0; head < len(frontier); head++ {
		c := frontier[head]
		d := dist[c]
		if d >= span {
			continue
		}
		for _, n := range [4]cellCoord{{c.x, c.y - 1}, {c.x + 1, c.y}, {c.x, c.y + 1}, {c.x - 1, c.y}} {
			if n.x < x0 || n.x > x1 || n.y < y0 || n.y > y1 {
				continue
			}
			if _, seen := dist[n]; seen {
				continue
			}
			p := w.GetPixel(n.x, n.y)
			if p.Material == material.Air {
				continue
			}
			if !w.supportCarrier(w.mats.MustGet(p.Material)) {
				continue
			}
			dist[n] = d + 1
			frontier = append(frontier, n)
		}
	}

	collapsed := 0
	baseX := ch.CX * ChunkSize
	baseY := ch.CY * ChunkSize
	for ly := 0; ly < ChunkSize; ly++ {
		for lx := 0; lx < ChunkSize; lx++ {
			p := ch.pixels[chunkIndex(lx, ly)]
			if p.Material == material.Air {
				continue
			}
			def := w.mats.MustGet(p.Material)
			if !def.Structural() {
				continue
			}
			x := baseX + lx
			y := baseY + ly
			if _, supported := dist[cellCoord{x, y}]; supported {
				continue
			}
			next := w.airPixel()
			next.Temp = p.Temp
			if def.HasFall {
				next = Pixel{Material: def.FallProduct, Temp: p.Temp}
			}
			w.writePixel(x, y, next)
			collapsed++
		}
	}
	return collapsed
}

// supportCarrier reports whether a pixel can be part of a support path.
func (w *World) supportCarrier(def *material.Def) bool {
	return def.Structural() || def.HasTag(material.TagAnchor)
}
