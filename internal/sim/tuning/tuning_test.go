package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 10\nseed: 7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tune, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.TickRateHz != 10 || tune.Seed != 7 {
		t.Fatalf("explicit values lost: %+v", tune)
	}
	def := Defaults()
	if tune.SettleTicks != def.SettleTicks || tune.FlowBound != def.FlowBound {
		t.Fatalf("zero fields not defaulted: %+v", tune)
	}
}

func TestLoadShippedTuning(t *testing.T) {
	tune, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := tune.Validate(); err != nil {
		t.Fatalf("shipped tuning invalid: %v", err)
	}
	if tune.TickRateHz <= 0 {
		t.Fatalf("tick rate = %d", tune.TickRateHz)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tune := Defaults()
	tune.TickRateHz = 0
	if err := tune.Validate(); err == nil {
		t.Fatalf("expected error for zero tick rate")
	}

	tune = Defaults()
	tune.StructuralStride = -1
	if err := tune.Validate(); err == nil {
		t.Fatalf("expected error for negative stride")
	}
}
