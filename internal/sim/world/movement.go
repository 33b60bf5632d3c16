package world

import "sunaba.world/internal/sim/material"

// movementPass runs the falling-sand displacement rule over the active chunks.
// Chunks are processed bottom row of the world first and pixels bottom-to-top
// inside each chunk, so a falling pixel lands in cells that were already
// scanned; the moved bit covers every other direction (lateral flow, rising
// gas, cross-chunk hops).
func (w *World) movementPass(keys []ChunkKey) int {
	moves := 0
	for i := len(keys) - 1; i >= 0; i-- {
		ch := w.chunks[keys[i]]
		baseX := ch.CX * ChunkSize
		baseY := ch.CY * ChunkSize
		for ly := ChunkSize - 1; ly >= 0; ly-- {
			for lx := 0; lx < ChunkSize; lx++ {
				p := ch.pixels[chunkIndex(lx, ly)]
				if p.Material == material.Air || p.Flags&flagMoved != 0 {
					continue
				}
				def := w.mats.MustGet(p.Material)
				x := baseX + lx
				y := baseY + ly
				switch def.State {
				case material.StatePowder:
					if w.movePowder(x, y, def) {
						moves++
					}
				case material.StateLiquid:
					if w.moveLiquid(x, y, def) {
						moves++
					}
				case material.StateGas:
					if w.moveGas(x, y, def) {
						moves++
					}
				}
			}
		}
	}
	return moves
}

// displaces reports whether a pixel of def may move into (x, y): the target
// must be flowable matter (liquid or gas) of strictly lower density that has
// not already moved this tick.
func (w *World) displaces(def *material.Def, x, y int) bool {
	t := w.ensurePixel(x, y)
	if t.Flags&flagMoved != 0 {
		return false
	}
	td := w.mats.MustGet(t.Material)
	if td.State != material.StateLiquid && td.State != material.StateGas {
		return false
	}
	return td.Density < def.Density
}

// buoyant is the inverse comparison for rising gas: the target must be
// flowable matter of strictly higher density.
func (w *World) buoyant(def *material.Def, x, y int) bool {
	t := w.ensurePixel(x, y)
	if t.Flags&flagMoved != 0 {
		return false
	}
	td := w.mats.MustGet(t.Material)
	if td.State != material.StateLiquid && td.State != material.StateGas {
		return false
	}
	return td.Density > def.Density
}

func (w *World) movePowder(x, y int, def *material.Def) bool {
	if w.displaces(def, x, y+1) {
		w.swap(x, y, x, y+1)
		return true
	}
	// Diagonal slide, left before right.
	if w.displaces(def, x-1, y+1) {
		w.swap(x, y, x-1, y+1)
		return true
	}
	if w.displaces(def, x+1, y+1) {
		w.swap(x, y, x+1, y+1)
		return true
	}
	return false
}

func (w *World) moveLiquid(x, y int, def *material.Def) bool {
	if w.movePowder(x, y, def) {
		return true
	}
	// Blocked vertically: flow one cell toward the nearest drop edge within
	// FlowBound cells. No drop in range means the puddle is level and may
	// settle. Ties break left.
	leftDrop := w.dropDistance(def, x, y, -1)
	rightDrop := w.dropDistance(def, x, y, 1)
	switch {
	case leftDrop == 0 && rightDrop == 0:
		return false
	case rightDrop == 0 || (leftDrop != 0 && leftDrop <= rightDrop):
		w.swap(x, y, x-1, y)
	default:
		w.swap(x, y, x+1, y)
	}
	return true
}

// dropDistance scans up to FlowBound cells in direction dir (±1) through
// displaceable cells, returning the distance to the first cell that could
// fall, or 0 when none is reachable.
func (w *World) dropDistance(def *material.Def, x, y, dir int) int {
	for i := 1; i <= w.cfg.FlowBound; i++ {
		cx := x + dir*i
		if !w.displaces(def, cx, y) {
			return 0
		}
		if w.displaces(def, cx, y+1) {
			return i
		}
	}
	return 0
}

func (w *World) moveGas(x, y int, def *material.Def) bool {
	if w.buoyant(def, x, y-1) {
		w.swap(x, y, x, y-1)
		return true
	}
	if w.buoyant(def, x-1, y-1) {
		w.swap(x, y, x-1, y-1)
		return true
	}
	if w.buoyant(def, x+1, y-1) {
		w.swap(x, y, x+1, y-1)
		return true
	}
	// Lateral diffusion: an occasional seeded-random sidestep keeps plumes
	// from stacking into columns.
	if w.rng.Intn(4) == 0 {
		dir := 1
		if w.rng.Intn(2) == 0 {
			dir = -1
		}
		if w.buoyant(def, x+dir, y) {
			w.swap(x, y, x+dir, y)
			return true
		}
	}
	return false
}

// swap exchanges the full pixel payloads of two cells so temperature and
// reactive state travel with the matter. Both cells are marked moved for the
// rest of the tick.
func (w *World) swap(x1, y1, x2, y2 int) {
	p1 := w.ensurePixel(x1, y1)
	p2 := w.ensurePixel(x2, y2)
	p1.Flags |= flagMoved
	p2.Flags |= flagMoved
	w.writePixel(x1, y1, p2)
	w.writePixel(x2, y2, p1)
}
