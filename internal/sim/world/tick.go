package world

import "time"

// TickStats summarizes one tick for logging and the index backend.
type TickStats struct {
	Tick         uint64        `json:"tick"`
	LoadedChunks int           `json:"loaded_chunks"`
	ActiveChunks int           `json:"active_chunks"`
	Moves        int           `json:"moves"`
	Reactions    int           `json:"reactions"`
	PhaseChanges int           `json:"phase_changes"`
	Collapses    int           `json:"collapses"`
	LightChunks  int           `json:"light_chunks"`
	Regens       int           `json:"regens"`
	Duration     time.Duration `json:"duration_ns"`

	// RejectedEdits counts queued edits the loop refused this tick, for
	// example a set_pixel with an id outside the palette. Filled by the
	// loop, not by Tick.
	RejectedEdits int `json:"rejected_edits,omitempty"`
}

// Tick advances the simulation by one discrete step. The systems run in a
// fixed order, each completing across all active chunks before the next
// starts; dt feeds only rate-based effects (regeneration), never physics
// sub-stepping.
func (w *World) Tick(dt float64) TickStats {
	start := time.Now()
	keys := w.activeChunkKeys()

	stats := TickStats{
		Tick:         w.tick,
		LoadedChunks: len(w.chunks),
		ActiveChunks: len(keys),
	}

	w.clearTransientFlags(keys)
	stats.Moves = w.movementPass(keys)
	stats.Reactions = w.reactionPass(keys)
	w.temperaturePass(keys)
	stats.PhaseChanges = w.applyPendingChanges()
	stats.Collapses = w.structuralPass(keys)
	stats.LightChunks = w.lightPass()
	stats.Regens = w.regenPass(dt)

	w.settleChunks()
	w.tick++
	stats.Duration = time.Since(start)
	return stats
}

func (w *World) clearTransientFlags(keys []ChunkKey) {
	for _, k := range keys {
		ch := w.chunks[k]
		for i := range ch.pixels {
			ch.pixels[i].Flags &^= flagTransient
		}
	}
}

// settleChunks advances the activity countdown: chunks that saw no write this
// tick move one tick closer to being skipped entirely.
func (w *World) settleChunks() {
	for _, ch := range w.chunks {
		if ch.touched {
			ch.activeTicks = w.cfg.SettleTicks
			ch.touched = false
		} else if ch.activeTicks > 0 {
			ch.activeTicks--
		}
	}
}
