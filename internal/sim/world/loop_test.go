package world_test

import (
	"context"
	"testing"
	"time"

	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/world"
)

func TestLoopAppliesEditsAtTickBoundary(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	stone := mustID(t, mats, "STONE")

	ticked := make(chan world.TickStats, 16)
	loop := world.NewLoop(w, 200, func(w *world.World, st world.TickStats) {
		select {
		case ticked <- st:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.Edits() <- world.Edit{X: 3, Y: 10, Material: stone}
	loop.Heat() <- world.HeatEdit{X: 3, Y: 10, Amount: 50}

	// Wait a few ticks so both queues have drained.
	deadline := time.After(5 * time.Second)
	seen := 0
	for seen < 3 {
		select {
		case <-ticked:
			seen++
		case <-deadline:
			t.Fatalf("loop never ticked")
		}
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	// Diffusion has been bleeding the injected heat off since the edit
	// landed, so only the direction of the change is stable.
	if got := w.GetPixel(3, 10); got.Material != stone || got.Temp <= 20 {
		t.Fatalf("edit not applied: %+v", got)
	}
}

func TestLoopCountsRejectedEdits(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	stone := mustID(t, mats, "STONE")

	ticked := make(chan world.TickStats, 64)
	loop := world.NewLoop(w, 200, func(w *world.World, st world.TickStats) {
		select {
		case ticked <- st:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.Edits() <- world.Edit{X: 3, Y: 10, Material: stone}
	loop.Edits() <- world.Edit{X: 4, Y: 10, Material: material.ID(60000)}

	// The two edits may drain on different ticks, so total the counter
	// over a handful of them.
	deadline := time.After(5 * time.Second)
	rejected := 0
	for seen := 0; seen < 5; seen++ {
		select {
		case st := <-ticked:
			rejected += st.RejectedEdits
		case <-deadline:
			t.Fatalf("loop never ticked")
		}
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	if rejected != 1 {
		t.Fatalf("rejected edits = %d, want 1", rejected)
	}
	if got := w.GetPixel(3, 10).Material; got != stone {
		t.Fatalf("valid edit not applied: got %d", got)
	}
	if got := w.GetPixel(4, 10).Material; got == material.ID(60000) {
		t.Fatalf("invalid edit applied")
	}
}
