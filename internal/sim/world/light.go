package world

// lightPass recomputes cached illumination for chunks whose opacity or
// emission changed since the last pass. Sources seed a brightest-first flood
// (a bucket queue over the 255 intensity levels), so a cell's final intensity
// is the maximum reachable from any source under per-cell attenuation.
// Settled, unchanged chunks keep their cached grid untouched.
func (w *World) lightPass() int {
	var keys []ChunkKey
	for k, ch := range w.chunks {
		if ch.lightDirty {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	for _, k := range keys {
		w.relightChunk(w.chunks[k])
	}
	return len(keys)
}

func (w *World) relightChunk(ch *Chunk) {
	r := w.cfg.LightRadius
	x0 := ch.CX*ChunkSize - r
	y0 := ch.CY*ChunkSize - r
	x1 := ch.CX*ChunkSize + ChunkSize - 1 + r
	y1 := ch.CY*ChunkSize + ChunkSize - 1 + r

	best := map[cellCoord]int{}
	var buckets [256][]cellCoord

	// Seed with every emitter whose light could reach this chunk.
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			p := w.GetPixel(x, y)
			def := w.mats.MustGet(p.Material)
			if def.Emission == 0 {
				continue
			}
			level := int(def.Emission)
			c := cellCoord{x, y}
			if level > best[c] {
				best[c] = level
				buckets[level] = append(buckets[level], c)
			}
		}
	}

	for level := 255; level > 0; level-- {
		for i := 0; i < len(buckets[level]); i++ {
			c := buckets[level][i]
			if best[c] != level {
				continue // superseded by a brighter path
			}
			for _, n := range [4]cellCoord{{c.x, c.y - 1}, {c.x + 1, c.y}, {c.x, c.y + 1}, {c.x - 1, c.y}} {
				if n.x < x0 || n.x > x1 || n.y < y0 || n.y > y1 {
					continue
				}
				ndef := w.mats.MustGet(w.GetPixel(n.x, n.y).Material)
				nl := level - w.cfg.LightFalloff - int(ndef.Opacity)
				if nl <= 0 || nl <= best[n] {
					continue
				}
				best[n] = nl
				buckets[nl] = append(buckets[nl], n)
			}
		}
	}

	baseX := ch.CX * ChunkSize
	baseY := ch.CY * ChunkSize
	for ly := 0; ly < ChunkSize; ly++ {
		for lx := 0; lx < ChunkSize; lx++ {
			ch.light[chunkIndex(lx, ly)] = uint8(best[cellCoord{baseX + lx, baseY + ly}])
		}
	}
	ch.lightDirty = false
}
