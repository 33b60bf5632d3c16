package world

import (
	"fmt"
	"math/rand"
	"sort"

	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/reaction"
	"sunaba.world/internal/sim/tuning"
	"sunaba.world/internal/sim/world/logic/mathx"
)

// Config carries the per-world simulation policy. Build one with FromTuning or
// fill the fields directly in tests.
type Config struct {
	Seed int64

	// FloorY is the world floor: structural pixels at or below it count as
	// anchored, and worldgen fills ground from there down.
	FloorY int

	SettleTicks int
	FlowBound   int

	AmbientTemp int16
	TempClamp   int16

	StructuralStride int
	SupportSpan      int

	LightFalloff int
	LightRadius  int

	// RegenIntervalSec <= 0 disables regeneration.
	RegenIntervalSec float64

	Gen tuning.Worldgen
}

// FromTuning maps the operator tuning file onto a world config.
func FromTuning(t tuning.Tuning) Config {
	return Config{
		Seed:             t.Seed,
		FloorY:           t.FloorY,
		SettleTicks:      t.SettleTicks,
		FlowBound:        t.FlowBound,
		AmbientTemp:      int16(t.AmbientTemp),
		TempClamp:        int16(t.TempClamp),
		StructuralStride: t.StructuralStride,
		SupportSpan:      t.SupportSpan,
		LightFalloff:     t.LightFalloff,
		LightRadius:      t.LightRadius,
		RegenIntervalSec: t.RegenIntervalSec,
		Gen:              t.Worldgen,
	}
}

type pendingChange struct {
	x, y     int
	from, to material.ID
}

// World owns the sparse chunk map and the per-tick scratch state. It is
// single-writer: all mutation happens on the goroutine driving Tick, and
// external collaborators queue edits that are applied between ticks.
type World struct {
	cfg       Config
	mats      *material.Registry
	reactions *reaction.Registry

	chunks map[ChunkKey]*Chunk

	rng  *rand.Rand
	tick uint64

	regenClock float64
	pending    []pendingChange
	scratch    [chunkPixels]int16

	gen genMaterials
}

// New builds an empty world. The registries are shared read-only.
func New(cfg Config, mats *material.Registry, reactions *reaction.Registry) (*World, error) {
	if mats == nil || mats.Len() == 0 {
		return nil, fmt.Errorf("world: empty material registry")
	}
	if reactions == nil {
		reactions = reaction.NewRegistry()
	}
	if cfg.SettleTicks <= 0 {
		cfg.SettleTicks = 12
	}
	if cfg.FlowBound <= 0 {
		cfg.FlowBound = 4
	}
	if cfg.StructuralStride <= 0 {
		cfg.StructuralStride = 4
	}
	if cfg.SupportSpan <= 0 {
		cfg.SupportSpan = 24
	}
	if cfg.LightFalloff <= 0 {
		cfg.LightFalloff = 16
	}
	if cfg.LightRadius <= 0 {
		cfg.LightRadius = 15
	}
	if cfg.TempClamp <= 0 {
		cfg.TempClamp = 5000
	}
	w := &World{
		cfg:       cfg,
		mats:      mats,
		reactions: reactions,
		chunks:    map[ChunkKey]*Chunk{},
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
	if cfg.Gen.Enabled {
		if err := w.resolveGenMaterials(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Materials exposes the shared material registry.
func (w *World) Materials() *material.Registry { return w.mats }

// CurrentTick is the number of completed ticks.
func (w *World) CurrentTick() uint64 { return w.tick }

// Seed returns the world seed.
func (w *World) Seed() int64 { return w.cfg.Seed }

func (w *World) airPixel() Pixel {
	return Pixel{Material: material.Air, Temp: w.cfg.AmbientTemp}
}

func chunkCoord(x, y int) (ChunkKey, int, int) {
	return ChunkKey{
		CX: mathx.FloorDiv(x, ChunkSize),
		CY: mathx.FloorDiv(y, ChunkSize),
	}, mathx.Mod(x, ChunkSize), mathx.Mod(y, ChunkSize)
}

// GetPixel returns the pixel at world coordinates, or the air sentinel when no
// chunk is loaded there. It never fails and never loads chunks.
func (w *World) GetPixel(x, y int) Pixel {
	key, lx, ly := chunkCoord(x, y)
	ch, ok := w.chunks[key]
	if !ok {
		return w.airPixel()
	}
	return ch.at(lx, ly)
}

// SetPixel writes a material at world coordinates, resetting the cell to the
// material's base state. The owning chunk is created on demand.
func (w *World) SetPixel(x, y int, id material.ID) error {
	def, err := w.mats.Get(id)
	if err != nil {
		return err
	}
	temp := def.BaseTemp
	if id == material.Air {
		temp = w.cfg.AmbientTemp
	}
	w.writePixel(x, y, Pixel{Material: id, Temp: temp})
	return nil
}

// SetAnchor pins or unpins a pixel. Anchored pixels count as support roots
// regardless of their material's tags.
func (w *World) SetAnchor(x, y int, anchored bool) {
	ch, lx, ly := w.ensureChunk(x, y)
	p := ch.at(lx, ly)
	if anchored {
		p.Flags |= FlagAnchor
	} else {
		p.Flags &^= FlagAnchor
	}
	w.writePixel(x, y, p)
}

// AddHeat injects heat at a pixel (external sources such as tools). Writes to
// unloaded coordinates create the chunk so the heat is not lost.
func (w *World) AddHeat(x, y, amount int) {
	ch, lx, ly := w.ensureChunk(x, y)
	p := ch.at(lx, ly)
	p.Temp = mathx.Clamp16(int(p.Temp)+amount, -int(w.cfg.TempClamp), int(w.cfg.TempClamp))
	w.writePixel(x, y, p)
}

// TemperatureAt reads the temperature at a pixel; unloaded coordinates report
// the ambient temperature.
func (w *World) TemperatureAt(x, y int) int16 {
	return w.GetPixel(x, y).Temp
}

// LightAt reads the cached light intensity at a pixel.
func (w *World) LightAt(x, y int) uint8 {
	key, lx, ly := chunkCoord(x, y)
	ch, ok := w.chunks[key]
	if !ok {
		return 0
	}
	return ch.light[chunkIndex(lx, ly)]
}

// ChunkCount is the number of loaded chunks.
func (w *World) ChunkCount() int { return len(w.chunks) }

// ChunkActive reports whether the chunk owning (x, y) is inside its settle
// window. Unloaded chunks are inactive.
func (w *World) ChunkActive(x, y int) bool {
	key, _, _ := chunkCoord(x, y)
	ch, ok := w.chunks[key]
	return ok && ch.Active()
}

// DirtyChunks lists chunks changed since the last acknowledgment, in sorted
// key order.
func (w *World) DirtyChunks() []ChunkKey {
	var keys []ChunkKey
	for k, ch := range w.chunks {
		if ch.dirty {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

// AckDirty clears the dirty flag for the given chunks after the persistence or
// sync collaborator has consumed them.
func (w *World) AckDirty(keys []ChunkKey) {
	for _, k := range keys {
		if ch, ok := w.chunks[k]; ok {
			ch.dirty = false
		}
	}
}

// EncodeChunk returns the packed payload for a loaded chunk.
func (w *World) EncodeChunk(key ChunkKey) ([]byte, bool) {
	ch, ok := w.chunks[key]
	if !ok {
		return nil, false
	}
	return ch.Encode(), true
}

// ChunkMaterials returns the material plane of a loaded chunk.
func (w *World) ChunkMaterials(key ChunkKey) ([]uint16, bool) {
	ch, ok := w.chunks[key]
	if !ok {
		return nil, false
	}
	return ch.Materials(), true
}

// InstallChunk adopts a decoded chunk (persistence load). Any chunk already at
// that coordinate is replaced.
func (w *World) InstallChunk(ch *Chunk) {
	key := ChunkKey{CX: ch.CX, CY: ch.CY}
	ch.activeTicks = w.cfg.SettleTicks
	ch.lightDirty = true
	w.chunks[key] = ch
}

// ensureChunk returns the chunk owning (x, y), creating (and generating) it on
// demand.
func (w *World) ensureChunk(x, y int) (*Chunk, int, int) {
	key, lx, ly := chunkCoord(x, y)
	ch, ok := w.chunks[key]
	if !ok {
		ch = &Chunk{CX: key.CX, CY: key.CY}
		air := w.airPixel()
		for i := range ch.pixels {
			ch.pixels[i] = air
		}
		if w.cfg.Gen.Enabled {
			w.generateChunk(ch)
		}
		ch.dirty = true
		ch.lightDirty = true
		ch.activeTicks = w.cfg.SettleTicks
		w.chunks[key] = ch
	}
	return ch, lx, ly
}

// ensurePixel is GetPixel for simulation targets: it materializes the chunk so
// worldgen content at the frontier is seen before anything moves into it.
func (w *World) ensurePixel(x, y int) Pixel {
	ch, lx, ly := w.ensureChunk(x, y)
	return ch.at(lx, ly)
}

// writePixel stores p at (x, y), maintaining dirty/active/light bookkeeping.
// Identical writes are dropped.
func (w *World) writePixel(x, y int, p Pixel) {
	ch, lx, ly := w.ensureChunk(x, y)
	idx := chunkIndex(lx, ly)
	old := ch.pixels[idx]
	if old == p {
		return
	}
	ch.pixels[idx] = p
	ch.dirty = true
	ch.touched = true
	ch.hashValid = false

	if old.Material != p.Material {
		oldDef := w.mats.MustGet(old.Material)
		newDef := w.mats.MustGet(p.Material)
		if oldDef.Emission != newDef.Emission || oldDef.Opacity != newDef.Opacity {
			w.markLightDirty(x, y)
		}
	}
	w.wakeBorderNeighbors(ch, lx, ly)
}

// wakeBorderNeighbors keeps settled chunks honest: a change on a chunk border
// can enable movement in the adjacent chunk, so it must leave its settled
// state.
func (w *World) wakeBorderNeighbors(ch *Chunk, lx, ly int) {
	wake := func(dcx, dcy int) {
		if n, ok := w.chunks[ChunkKey{CX: ch.CX + dcx, CY: ch.CY + dcy}]; ok {
			n.touched = true
		}
	}
	if lx == 0 {
		wake(-1, 0)
	}
	if lx == ChunkSize-1 {
		wake(1, 0)
	}
	if ly == 0 {
		wake(0, -1)
	}
	if ly == ChunkSize-1 {
		wake(0, 1)
	}
}

// markLightDirty flags the owning chunk, and loaded neighbors when the change
// is close enough to a border for its light to cross over.
func (w *World) markLightDirty(x, y int) {
	key, lx, ly := chunkCoord(x, y)
	if ch, ok := w.chunks[key]; ok {
		ch.lightDirty = true
	}
	r := w.cfg.LightRadius
	for dcy := -1; dcy <= 1; dcy++ {
		for dcx := -1; dcx <= 1; dcx++ {
			if dcx == 0 && dcy == 0 {
				continue
			}
			if dcx == -1 && lx >= r {
				continue
			}
			if dcx == 1 && lx < ChunkSize-r {
				continue
			}
			if dcy == -1 && ly >= r {
				continue
			}
			if dcy == 1 && ly < ChunkSize-r {
				continue
			}
			if n, ok := w.chunks[ChunkKey{CX: key.CX + dcx, CY: key.CY + dcy}]; ok {
				n.lightDirty = true
			}
		}
	}
}

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CX < keys[j].CX
	})
}

// activeChunkKeys snapshots the active set in sorted order; the fixed order is
// what keeps every pass deterministic.
func (w *World) activeChunkKeys() []ChunkKey {
	var keys []ChunkKey
	for k, ch := range w.chunks {
		if ch.Active() {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}
