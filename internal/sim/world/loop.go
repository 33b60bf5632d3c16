package world

import (
	"context"
	"time"

	"sunaba.world/internal/sim/material"
)

// Edit is a queued set_pixel from an external collaborator (tool, network).
type Edit struct {
	X, Y     int
	Material material.ID
}

// HeatEdit is a queued add_heat.
type HeatEdit struct {
	X, Y   int
	Amount int
}

// Loop drives a world at a fixed tick rate on a single goroutine. External
// edits are queued on channels and applied at the next tick boundary, never
// mid-tick, which preserves the single-writer model.
type Loop struct {
	w          *World
	tickRateHz int

	edits chan Edit
	heat  chan HeatEdit

	// onTick runs on the loop goroutine after each tick, with exclusive
	// access to the world; collaborators use it for snapshots and sync.
	onTick func(*World, TickStats)
}

func NewLoop(w *World, tickRateHz int, onTick func(*World, TickStats)) *Loop {
	if tickRateHz <= 0 {
		tickRateHz = 30
	}
	return &Loop{
		w:          w,
		tickRateHz: tickRateHz,
		edits:      make(chan Edit, 1024),
		heat:       make(chan HeatEdit, 256),
		onTick:     onTick,
	}
}

// Edits is the queue for external set_pixel requests.
func (l *Loop) Edits() chan<- Edit { return l.edits }

// Heat is the queue for external add_heat requests.
func (l *Loop) Heat() chan<- HeatEdit { return l.heat }

// Run ticks until the context is canceled.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.tickRateHz)
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingEdits []Edit
	var pendingHeat []HeatEdit

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-l.edits:
			pendingEdits = append(pendingEdits, e)
		case h := <-l.heat:
			pendingHeat = append(pendingHeat, h)
		case <-ticker.C:
			rejected := 0
			for _, e := range pendingEdits {
				if err := l.w.SetPixel(e.X, e.Y, e.Material); err != nil {
					rejected++
				}
			}
			for _, h := range pendingHeat {
				l.w.AddHeat(h.X, h.Y, h.Amount)
			}
			pendingEdits = pendingEdits[:0]
			pendingHeat = pendingHeat[:0]

			stats := l.w.Tick(dt)
			stats.RejectedEdits = rejected
			if l.onTick != nil {
				l.onTick(l.w, stats)
			}
		}
	}
}
