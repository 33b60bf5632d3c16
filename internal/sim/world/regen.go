package world

// regenPass slowly restores depleted materials toward their target (ash back
// to soil, harvested growth back to plants). It is the only dt-driven system:
// dt accumulates into a clock and a restoration sweep runs once per configured
// interval. The sweep is purely additive and local; it only ever rewrites a
// cell still holding the depleted material, so it can never undo a later edit
// or movement result.
func (w *World) regenPass(dt float64) int {
	if w.cfg.RegenIntervalSec <= 0 {
		return 0
	}
	w.regenClock += dt
	passes := 0
	for w.regenClock >= w.cfg.RegenIntervalSec {
		w.regenClock -= w.cfg.RegenIntervalSec
		passes++
	}
	if passes == 0 {
		return 0
	}

	// Regeneration covers settled chunks too; a depleted field must regrow
	// even after everything around it has stopped moving.
	var keys []ChunkKey
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sortKeys(keys)

	restored := 0
	for _, k := range keys {
		ch := w.chunks[k]
		baseX := ch.CX * ChunkSize
		baseY := ch.CY * ChunkSize
		for ly := 0; ly < ChunkSize; ly++ {
			for lx := 0; lx < ChunkSize; lx++ {
				p := ch.pixels[chunkIndex(lx, ly)]
				def := w.mats.MustGet(p.Material)
				if !def.HasRegen {
					continue
				}
				for i := 0; i < passes; i++ {
					if w.rng.Intn(1000) >= def.RegenPermille {
						continue
					}
					w.writePixel(baseX+lx, baseY+ly, Pixel{
						Material: def.RegenProduct,
						Temp:     p.Temp,
					})
					restored++
					break
				}
			}
		}
	}
	return restored
}
