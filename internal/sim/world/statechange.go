package world

import "sunaba.world/internal/sim/material"

// applyPendingChanges drains the deferred phase-change queue. Entries whose
// cell no longer holds the material that triggered them are dropped, so a
// queued change can never clobber a later edit or a movement result.
func (w *World) applyPendingChanges() int {
	applied := 0
	for _, pc := range w.pending {
		cur := w.GetPixel(pc.x, pc.y)
		if cur.Material != pc.from {
			continue
		}
		def := w.mats.MustGet(pc.to)
		temp := cur.Temp
		if def.BaseTemp > temp {
			// Exothermic products (ignition) start at their own temperature;
			// everything else inherits the heat that caused the change.
			temp = def.BaseTemp
		}
		if pc.to == material.Air {
			temp = cur.Temp
		}
		w.writePixel(pc.x, pc.y, Pixel{
			Material: pc.to,
			Temp:     temp,
			Flags:    cur.Flags & FlagAnchor,
		})
		applied++
	}
	w.pending = w.pending[:0]
	return applied
}
