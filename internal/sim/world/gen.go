package world

import (
	"fmt"

	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/tuning"
	"sunaba.world/internal/sim/world/logic/mathx"
)

type genMaterials struct {
	bedrock material.ID
	stone   material.ID
	sand    material.ID
	wood    material.ID
	plant   material.ID
}

func (w *World) resolveGenMaterials() error {
	resolve := func(name string) (material.ID, error) {
		id, ok := w.mats.ByName(name)
		if !ok {
			return 0, fmt.Errorf("worldgen: registry has no %s", name)
		}
		return id, nil
	}
	var err error
	if w.gen.bedrock, err = resolve("BEDROCK"); err != nil {
		return err
	}
	if w.gen.stone, err = resolve("STONE"); err != nil {
		return err
	}
	if w.gen.sand, err = resolve("SAND"); err != nil {
		return err
	}
	if w.gen.wood, err = resolve("WOOD"); err != nil {
		return err
	}
	if w.gen.plant, err = resolve("PLANT"); err != nil {
		return err
	}
	return nil
}

// generateChunk seeds terrain for a freshly touched chunk. Everything is a
// pure function of the world seed and the cell position, so chunk creation
// order never affects the result.
func (w *World) generateChunk(ch *Chunk) {
	g := w.cfg.Gen
	baseX := ch.CX * ChunkSize
	baseY := ch.CY * ChunkSize
	for ly := 0; ly < ChunkSize; ly++ {
		for lx := 0; lx < ChunkSize; lx++ {
			wx := baseX + lx
			wy := baseY + ly
			id := w.genCell(g, wx, wy)
			if id == material.Air {
				continue
			}
			def := w.mats.MustGet(id)
			ch.pixels[chunkIndex(lx, ly)] = Pixel{Material: id, Temp: def.BaseTemp}
		}
	}
}

func (w *World) genCell(g tuning.Worldgen, wx, wy int) material.ID {
	seed := w.cfg.Seed
	floor := w.cfg.FloorY

	if wy >= floor {
		if wy >= floor+g.BedrockDepth {
			return w.gen.bedrock
		}
		return w.gen.stone
	}

	depth := floor - wy // cells above the floor
	switch {
	case depth <= 4 && inCluster(seed+101, wx, 0, g.SandClusterGrid, g.SandClusterRadius):
		return w.gen.sand
	case depth <= g.WoodPillarHeight && inCluster(seed+102, wx, 0, g.WoodPillarGrid, 1):
		return w.gen.wood
	case depth == 1 && mathx.Hash2(seed+103, wx, wy)%1000 < uint64(g.SprinklePlantPermille):
		return w.gen.plant
	case depth <= 24 && mathx.Hash2(seed+104, wx, wy)%1000 < uint64(g.SprinkleStonePermille):
		return w.gen.stone
	}
	return material.Air
}

// inCluster deterministically places feature centers on a coarse grid and
// tests whether (x, y) falls inside one.
func inCluster(seed int64, x, y, grid, radius int) bool {
	if grid <= 0 || radius <= 0 {
		return false
	}
	gx := mathx.FloorDiv(x, grid)
	gy := mathx.FloorDiv(y, grid)
	r2 := radius * radius
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := mathx.Hash2(seed, cgx, cgy)
			if h%1000 >= 400 {
				continue
			}
			ox := int((h >> 10) % uint64(grid))
			oy := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cy := cgy*grid + oy
			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
