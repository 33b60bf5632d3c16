package world

import (
	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/world/logic/mathx"
)

// temperaturePass runs one discrete diffusion step per active chunk and queues
// phase changes for the state-change stage. Each chunk diffuses into a scratch
// buffer so in-chunk updates never read their own output; neighbor reads that
// cross a chunk border see that chunk's current values, which is stable
// because chunks are visited in sorted key order.
func (w *World) temperaturePass(keys []ChunkKey) {
	clamp := int(w.cfg.TempClamp)
	for _, k := range keys {
		ch := w.chunks[k]
		baseX := ch.CX * ChunkSize
		baseY := ch.CY * ChunkSize

		for ly := 0; ly < ChunkSize; ly++ {
			for lx := 0; lx < ChunkSize; lx++ {
				idx := chunkIndex(lx, ly)
				p := ch.pixels[idx]
				def := w.mats.MustGet(p.Material)
				if def.Conductivity == 0 {
					w.scratch[idx] = p.Temp
					continue
				}
				x := baseX + lx
				y := baseY + ly
				sum := 0
				sum += int(w.neighborTemp(x, y-1)) - int(p.Temp)
				sum += int(w.neighborTemp(x+1, y)) - int(p.Temp)
				sum += int(w.neighborTemp(x, y+1)) - int(p.Temp)
				sum += int(w.neighborTemp(x-1, y)) - int(p.Temp)
				// k/4 keeps the four-neighbor sum from overshooting the mean,
				// which is what prevents runaway divergence; the clamp catches
				// external heat injection.
				delta := def.Conductivity * float64(sum) / 4.0
				w.scratch[idx] = mathx.Clamp16(int(p.Temp)+int(delta), -clamp, clamp)
			}
		}

		for idx := range ch.pixels {
			if ch.pixels[idx].Temp != w.scratch[idx] {
				ch.pixels[idx].Temp = w.scratch[idx]
				ch.dirty = true
				ch.touched = true
				ch.hashValid = false
			}
		}

		w.queueTriggers(ch, baseX, baseY)
	}
}

func (w *World) neighborTemp(x, y int) int16 {
	return w.GetPixel(x, y).Temp
}

// queueTriggers records threshold crossings and lifetime expiry as deferred
// changes. Nothing is converted here; the state-change stage applies the queue
// after every triggering system has run.
func (w *World) queueTriggers(ch *Chunk, baseX, baseY int) {
	for ly := 0; ly < ChunkSize; ly++ {
		for lx := 0; lx < ChunkSize; lx++ {
			idx := chunkIndex(lx, ly)
			p := ch.pixels[idx]
			if p.Material == material.Air {
				continue
			}
			def := w.mats.MustGet(p.Material)
			x := baseX + lx
			y := baseY + ly

			switch {
			case def.HasHot && p.Temp >= def.HotThreshold:
				w.pending = append(w.pending, pendingChange{x: x, y: y, from: p.Material, to: def.HotProduct})
			case def.HasCold && p.Temp <= def.ColdThreshold:
				w.pending = append(w.pending, pendingChange{x: x, y: y, from: p.Material, to: def.ColdProduct})
			}

			if def.HasDecay {
				if p.Variant < 255 {
					ch.pixels[idx].Variant++
					ch.dirty = true
					ch.touched = true
					ch.hashValid = false
				}
				if ch.pixels[idx].Variant >= def.LifeTicks {
					w.pending = append(w.pending, pendingChange{x: x, y: y, from: p.Material, to: def.DecayProduct})
				}
			}
		}
	}
}
