package world_test

import (
	"testing"
)

func TestHeatDiffusesToNeighbors(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	stone := mustID(t, mats, "STONE")

	placeFloor(t, w, stone, 4, 8, 10)
	w.AddHeat(6, 10, 1000)

	before := w.TemperatureAt(6, 10)
	w.Tick(testDT)

	if got := w.TemperatureAt(6, 10); got >= before {
		t.Fatalf("hot cell temp = %d, want below %d", got, before)
	}
	if got := w.TemperatureAt(5, 10); got <= 20 {
		t.Fatalf("neighbor temp = %d, want above ambient", got)
	}
	if got := w.TemperatureAt(7, 10); got <= 20 {
		t.Fatalf("neighbor temp = %d, want above ambient", got)
	}
}

func TestAddHeatClampsToLimit(t *testing.T) {
	cfg := testConfig()
	cfg.TempClamp = 500
	w, mats := newTestWorld(t, cfg)
	stone := mustID(t, mats, "STONE")

	if err := w.SetPixel(0, 10, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	w.AddHeat(0, 10, 100000)
	if got := w.TemperatureAt(0, 10); got != 500 {
		t.Fatalf("temp = %d, want clamped to 500", got)
	}
	w.AddHeat(0, 10, -1000000)
	if got := w.TemperatureAt(0, 10); got != -500 {
		t.Fatalf("temp = %d, want clamped to -500", got)
	}
}

// Boiling through the deferred queue: the conversion lands at the end of the
// same tick the threshold is crossed, never mid-pass.
func TestWaterBoilsPastThreshold(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	stone := mustID(t, mats, "STONE")
	waterID := mustID(t, mats, "WATER")
	steam := mustID(t, mats, "STEAM")

	// Sealed cell at the floor so the water cannot flow before it boils.
	if err := w.SetPixel(4, 10, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	if err := w.SetPixel(6, 10, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	if err := w.SetPixel(5, 11, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	if err := w.SetPixel(5, 10, waterID); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	w.AddHeat(5, 10, 500)

	w.Tick(testDT)
	if got := w.GetPixel(5, 10).Material; got != steam {
		t.Fatalf("(5,10) = %d, want STEAM", got)
	}
}

func TestFireBurnsOutToSmoke(t *testing.T) {
	cfg := testConfig()
	cfg.FloorY = 3 // keep the cage anchored
	w, mats := newTestWorld(t, cfg)
	stone := mustID(t, mats, "STONE")
	fire := mustID(t, mats, "FIRE")
	smoke := mustID(t, mats, "SMOKE")

	fireDef := mats.MustGet(fire)
	if !fireDef.HasDecay {
		t.Fatalf("FIRE has no lifetime")
	}

	// Caged so the flame cannot drift while it burns down.
	for _, c := range [][2]int{{4, 4}, {6, 4}, {5, 3}, {5, 5}, {4, 5}, {6, 5}, {4, 3}, {6, 3}} {
		if err := w.SetPixel(c[0], c[1], stone); err != nil {
			t.Fatalf("SetPixel: %v", err)
		}
	}
	if err := w.SetPixel(5, 4, fire); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}

	for i := 0; i < int(fireDef.LifeTicks)+1; i++ {
		w.Tick(testDT)
	}
	if got := w.GetPixel(5, 4).Material; got != smoke {
		t.Fatalf("(5,4) = %d, want SMOKE after burnout", got)
	}
}
