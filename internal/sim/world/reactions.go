package world

import (
	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/world/logic/mathx"
)

// neighbor scan order for reactions: up, right, down, left.
var reactionNeighbors = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// reactionPass checks every active pixel's 4-neighborhood against the reaction
// registry. At most one reaction fires per pixel per tick; both involved cells
// are marked so a single pass cannot cascade through a row of matches.
func (w *World) reactionPass(keys []ChunkKey) int {
	fired := 0
	for _, k := range keys {
		ch := w.chunks[k]
		baseX := ch.CX * ChunkSize
		baseY := ch.CY * ChunkSize
		for ly := 0; ly < ChunkSize; ly++ {
			for lx := 0; lx < ChunkSize; lx++ {
				p := ch.pixels[chunkIndex(lx, ly)]
				if p.Material == material.Air || p.Flags&flagReacted != 0 {
					continue
				}
				x := baseX + lx
				y := baseY + ly
				if w.reactAt(x, y, p) {
					fired++
				}
			}
		}
	}
	return fired
}

func (w *World) reactAt(x, y int, p Pixel) bool {
	for _, d := range reactionNeighbors {
		nx := x + d[0]
		ny := y + d[1]
		n := w.GetPixel(nx, ny)
		if n.Flags&flagReacted != 0 {
			continue
		}
		rule, swapped, ok := w.reactions.Find(p.Material, n.Material)
		if !ok {
			continue
		}
		if rule.HasMinTemp && p.Temp < rule.MinTemp && n.Temp < rule.MinTemp {
			continue
		}
		if rule.ChancePermille < 1000 && w.rng.Intn(1000) >= rule.ChancePermille {
			continue
		}
		if swapped {
			w.applyRuleSide(nx, ny, n, rule.AProduct, rule.AChanges, rule.HeatA)
			w.applyRuleSide(x, y, p, rule.BProduct, rule.BChanges, rule.HeatB)
		} else {
			w.applyRuleSide(x, y, p, rule.AProduct, rule.AChanges, rule.HeatA)
			w.applyRuleSide(nx, ny, n, rule.BProduct, rule.BChanges, rule.HeatB)
		}
		return true
	}
	return false
}

// applyRuleSide writes one cell's share of a reaction outcome: the heat delta
// always lands, the material is replaced only when the rule says so.
func (w *World) applyRuleSide(x, y int, p Pixel, product material.ID, changes bool, heat int16) {
	temp := mathx.Clamp16(int(p.Temp)+int(heat), -int(w.cfg.TempClamp), int(w.cfg.TempClamp))
	if changes {
		w.writePixel(x, y, Pixel{
			Material: product,
			Temp:     temp,
			Flags:    (p.Flags & FlagAnchor) | flagReacted,
		})
		return
	}
	p.Temp = temp
	p.Flags |= flagReacted
	w.writePixel(x, y, p)
}
