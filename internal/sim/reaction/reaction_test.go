package reaction

import (
	"path/filepath"
	"testing"

	"sunaba.world/internal/sim/material"
)

func loadRegistries(t *testing.T) (*material.Registry, *Registry) {
	t.Helper()
	dir := filepath.Join("..", "..", "..", "configs")
	mats, err := material.Load(dir)
	if err != nil {
		t.Fatalf("load materials: %v", err)
	}
	reacts, err := Load(dir, mats)
	if err != nil {
		t.Fatalf("load reactions: %v", err)
	}
	return mats, reacts
}

func TestFindOrderedAndSwapped(t *testing.T) {
	mats, reacts := loadRegistries(t)
	waterID, _ := mats.ByName("WATER")
	lava, _ := mats.ByName("LAVA")
	steam, _ := mats.ByName("STEAM")

	rule, swapped, ok := reacts.Find(waterID, lava)
	if !ok || swapped {
		t.Fatalf("Find(WATER,LAVA) = swapped=%v ok=%v", swapped, ok)
	}
	if !rule.AChanges || rule.AProduct != steam {
		t.Fatalf("WATER side product = %+v, want STEAM", rule)
	}
	if rule.BChanges {
		t.Fatalf("LAVA side should keep its material")
	}
	if !rule.HasMinTemp || rule.MinTemp != 100 {
		t.Fatalf("min temp = %+v, want 100", rule)
	}

	// Same rule seen from the lava side.
	rule2, swapped, ok := reacts.Find(lava, waterID)
	if !ok || !swapped {
		t.Fatalf("Find(LAVA,WATER) = swapped=%v ok=%v", swapped, ok)
	}
	if rule2.AProduct != rule.AProduct || rule2.HeatB != rule.HeatB {
		t.Fatalf("swapped lookup returned a different rule")
	}
}

func TestFindUnregisteredPair(t *testing.T) {
	mats, reacts := loadRegistries(t)
	stone, _ := mats.ByName("STONE")
	gravel, _ := mats.ByName("GRAVEL")
	if _, _, ok := reacts.Find(stone, gravel); ok {
		t.Fatalf("unexpected rule for STONE+GRAVEL")
	}
}

func TestDefineNormalizesChance(t *testing.T) {
	r := NewRegistry()
	if err := r.Define(Rule{A: 1, B: 2, HeatA: 10}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	rule, _, ok := r.Find(1, 2)
	if !ok {
		t.Fatalf("rule not found")
	}
	if rule.ChancePermille != 1000 {
		t.Fatalf("chance = %d, want normalized 1000", rule.ChancePermille)
	}
	if err := r.Define(Rule{A: 1, B: 2, HeatA: 5}); err == nil {
		t.Fatalf("expected duplicate pair error")
	}
}

func TestLoadRejectsNoEffectRule(t *testing.T) {
	mats, _ := loadRegistries(t)
	_, err := buildRule(rawRule{A: "WATER", B: "STONE"}, mats)
	if err == nil {
		t.Fatalf("expected error for rule with no effect")
	}
}
