package world_test

import (
	"errors"
	"path/filepath"
	"testing"

	"sunaba.world/internal/sim/material"
	"sunaba.world/internal/sim/reaction"
	"sunaba.world/internal/sim/world"
)

func testRegistries(t *testing.T) (*material.Registry, *reaction.Registry) {
	t.Helper()
	dir := filepath.Join("..", "..", "..", "configs")
	mats, err := material.Load(dir)
	if err != nil {
		t.Fatalf("load materials: %v", err)
	}
	reacts, err := reaction.Load(dir, mats)
	if err != nil {
		t.Fatalf("load reactions: %v", err)
	}
	return mats, reacts
}

func mustID(t *testing.T, mats *material.Registry, name string) material.ID {
	t.Helper()
	id, ok := mats.ByName(name)
	if !ok {
		t.Fatalf("material %s not defined", name)
	}
	return id
}

// testConfig keeps the floor close so support tests stay small, and disables
// regeneration and worldgen so only explicit edits exist.
func testConfig() world.Config {
	return world.Config{
		Seed:        42,
		FloorY:      10,
		SettleTicks: 6,
		AmbientTemp: 20,
	}
}

func newTestWorld(t *testing.T, cfg world.Config) (*world.World, *material.Registry) {
	t.Helper()
	mats, reacts := testRegistries(t)
	w, err := world.New(cfg, mats, reacts)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w, mats
}

const testDT = 1.0 / 30.0

func TestSetGetPixelNegativeCoords(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	stone := mustID(t, mats, "STONE")

	coords := [][2]int{{0, 0}, {-1, -1}, {-64, 63}, {-65, -129}, {1000, -1000}}
	for _, c := range coords {
		if err := w.SetPixel(c[0], c[1], stone); err != nil {
			t.Fatalf("SetPixel(%d,%d): %v", c[0], c[1], err)
		}
	}
	for _, c := range coords {
		if got := w.GetPixel(c[0], c[1]).Material; got != stone {
			t.Fatalf("GetPixel(%d,%d) = %d, want STONE", c[0], c[1], got)
		}
	}
}

func TestGetPixelUnloadedReturnsAir(t *testing.T) {
	w, _ := newTestWorld(t, testConfig())
	p := w.GetPixel(12345, -6789)
	if p.Material != material.Air {
		t.Fatalf("unloaded read = %d, want AIR", p.Material)
	}
	if p.Temp != 20 {
		t.Fatalf("unloaded read temp = %d, want ambient 20", p.Temp)
	}
	if w.ChunkCount() != 0 {
		t.Fatalf("read created a chunk")
	}
}

func TestSetPixelRejectsInvalidID(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	bad := material.ID(mats.Len() + 10)
	if err := w.SetPixel(0, 0, bad); err == nil {
		t.Fatalf("expected error for invalid material id")
	}
	if w.ChunkCount() != 0 {
		t.Fatalf("rejected write created a chunk")
	}
}

func TestDirtyChunksAck(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	stone := mustID(t, mats, "STONE")

	if err := w.SetPixel(0, 0, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	if err := w.SetPixel(-1, 0, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}

	dirty := w.DirtyChunks()
	if len(dirty) != 2 {
		t.Fatalf("dirty chunks = %d, want 2", len(dirty))
	}
	// Sorted by CY then CX.
	if dirty[0].CX != -1 || dirty[1].CX != 0 {
		t.Fatalf("dirty order = %v", dirty)
	}

	w.AckDirty(dirty)
	if got := w.DirtyChunks(); len(got) != 0 {
		t.Fatalf("dirty after ack = %v", got)
	}
}

func TestChunkEncodeInstallRoundTrip(t *testing.T) {
	w, mats := newTestWorld(t, testConfig())
	sand := mustID(t, mats, "SAND")
	water := mustID(t, mats, "WATER")

	if err := w.SetPixel(3, 5, sand); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	if err := w.SetPixel(63, 63, water); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	w.AddHeat(3, 5, 40)

	key := world.ChunkKey{CX: 0, CY: 0}
	payload, ok := w.EncodeChunk(key)
	if !ok {
		t.Fatalf("chunk not loaded")
	}
	if len(payload) != world.PayloadBytes {
		t.Fatalf("payload = %d bytes, want %d", len(payload), world.PayloadBytes)
	}

	ch, err := world.DecodeChunk(0, 0, payload, mats)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	w2, _ := newTestWorld(t, testConfig())
	w2.InstallChunk(ch)
	if got := w2.GetPixel(3, 5); got.Material != sand || got.Temp != 60 {
		t.Fatalf("round trip (3,5) = %+v", got)
	}
	if got := w2.GetPixel(63, 63).Material; got != water {
		t.Fatalf("round trip (63,63) = %d, want WATER", got)
	}
}

func TestDecodeChunkRejectsBadPayload(t *testing.T) {
	mats, _ := testRegistries(t)

	if _, err := world.DecodeChunk(0, 0, make([]byte, world.PayloadBytes-1), mats); err == nil {
		t.Fatalf("expected error for short payload")
	} else if !errors.Is(err, world.ErrChunkDecode) {
		t.Fatalf("short payload error = %v, want ErrChunkDecode", err)
	}

	payload := make([]byte, world.PayloadBytes)
	payload[0] = 0xff
	payload[1] = 0xff
	if _, err := world.DecodeChunk(0, 0, payload, mats); err == nil {
		t.Fatalf("expected error for invalid material id")
	} else if !errors.Is(err, material.ErrInvalidMaterialID) {
		t.Fatalf("invalid id error = %v, want ErrInvalidMaterialID", err)
	}
}

func TestTickIgnoresSettledChunks(t *testing.T) {
	cfg := testConfig()
	w, mats := newTestWorld(t, cfg)
	stone := mustID(t, mats, "STONE")

	for x := 0; x < 8; x++ {
		if err := w.SetPixel(x, 10, stone); err != nil {
			t.Fatalf("SetPixel: %v", err)
		}
	}

	// Drain the settle window, then a few more ticks with nothing active.
	for i := 0; i < cfg.SettleTicks+3; i++ {
		w.Tick(testDT)
	}
	if w.ChunkActive(0, 10) {
		t.Fatalf("chunk still active after settle window")
	}
	st := w.Tick(testDT)
	if st.ActiveChunks != 0 {
		t.Fatalf("active chunks = %d, want 0", st.ActiveChunks)
	}

	// An edit wakes it back up at the next tick boundary.
	if err := w.SetPixel(2, 9, stone); err != nil {
		t.Fatalf("SetPixel: %v", err)
	}
	w.Tick(testDT)
	if !w.ChunkActive(0, 10) {
		t.Fatalf("chunk not reactivated by edit")
	}
}
