package world_test

import (
	"testing"

	"sunaba.world/internal/sim/tuning"
	"sunaba.world/internal/sim/world"
)

// Two worlds given the same seed, the same terrain settings and the same edit
// stream must agree on every digest, tick for tick.
func TestDeterministicReplay(t *testing.T) {
	mats, reacts := testRegistries(t)

	build := func() *world.World {
		tune := tuning.Defaults()
		tune.Seed = 1337
		tune.FloorY = 40
		w, err := world.New(world.FromTuning(tune), mats, reacts)
		if err != nil {
			t.Fatalf("world.New: %v", err)
		}
		return w
	}

	a := build()
	b := build()

	edit := func(w *world.World) {
		sand := mustID(t, mats, "SAND")
		waterID := mustID(t, mats, "WATER")
		lava := mustID(t, mats, "LAVA")
		smoke := mustID(t, mats, "SMOKE")
		for x := 0; x < 8; x++ {
			if err := w.SetPixel(x, 0, sand); err != nil {
				t.Fatalf("SetPixel: %v", err)
			}
		}
		for x := 20; x < 24; x++ {
			if err := w.SetPixel(x, 5, waterID); err != nil {
				t.Fatalf("SetPixel: %v", err)
			}
		}
		if err := w.SetPixel(22, 8, lava); err != nil {
			t.Fatalf("SetPixel: %v", err)
		}
		if err := w.SetPixel(-30, 12, smoke); err != nil {
			t.Fatalf("SetPixel: %v", err)
		}
		w.AddHeat(21, 5, 300)
	}
	edit(a)
	edit(b)

	if a.Digest() != b.Digest() {
		t.Fatalf("digest mismatch before ticking")
	}
	for i := 0; i < 100; i++ {
		sa := a.Tick(testDT)
		sb := b.Tick(testDT)
		sa.Duration = 0
		sb.Duration = 0
		if sa != sb {
			t.Fatalf("tick %d stats diverged: %+v vs %+v", i, sa, sb)
		}
		if i%10 == 0 && a.Digest() != b.Digest() {
			t.Fatalf("digest diverged at tick %d", i)
		}
	}
	if a.Digest() != b.Digest() {
		t.Fatalf("final digest mismatch")
	}
}

func TestDigestReflectsEdits(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	stone := mustID(t, mats, "STONE")

	empty := w.Digest()
	if err := w.SetPixel(0, 10, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	after := w.Digest()
	if after == empty {
		t.Fatalf("digest unchanged by an edit")
	}

	// Writing the same content again is a no-op for the digest.
	if err := w.SetPixel(0, 10, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	if w.Digest() != after {
		t.Fatalf("identical rewrite changed the digest")
	}
}

func TestGeneratedTerrainMatchesSeed(t *testing.T) {
	mats, reacts := testRegistries(t)

	tune := tuning.Defaults()
	tune.Seed = 99
	a, err := world.New(world.FromTuning(tune), mats, reacts)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	b, err := world.New(world.FromTuning(tune), mats, reacts)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}

	// Touch the same region in a different order; generated content must not
	// depend on access order.
	a.AddHeat(10, 240, 0)
	b.AddHeat(-100, 300, 0)
	b.AddHeat(10, 240, 0)

	// The sprinkle band just above the floor plus the solid ground below it.
	for y := 232; y < 256; y++ {
		for x := 0; x < 64; x++ {
			pa := a.GetPixel(x, y)
			pb := b.GetPixel(x, y)
			if pa.Material != pb.Material {
				t.Fatalf("generated cell (%d,%d) differs: %d vs %d", x, y, pa.Material, pb.Material)
			}
		}
	}
}
