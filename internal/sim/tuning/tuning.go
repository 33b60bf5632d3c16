package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the operator-facing simulation configuration (tuning.yaml).
// Everything here is tick-rate and policy tuning; the physical rules live in
// the material/reaction assets.
type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Seed   int64 `yaml:"seed"`
	FloorY int   `yaml:"floor_y"`

	// Chunks with no change for this many consecutive ticks are skipped by the
	// simulation passes until disturbed.
	SettleTicks int `yaml:"settle_ticks"`

	// Max lateral cells a liquid may flow in one tick.
	FlowBound int `yaml:"flow_bound"`

	AmbientTemp int `yaml:"ambient_temp"`
	TempClamp   int `yaml:"temp_clamp"`

	// Structural integrity runs on 1/StructuralStride of the active chunks per
	// tick; SupportSpan bounds the anchor search distance.
	StructuralStride int `yaml:"structural_stride"`
	SupportSpan      int `yaml:"support_span"`

	LightFalloff int `yaml:"light_falloff"`
	LightRadius  int `yaml:"light_radius"`

	RegenIntervalSec float64 `yaml:"regen_interval_sec"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Worldgen Worldgen `yaml:"worldgen"`
}

// Worldgen controls the deterministic terrain seeding of fresh chunks.
type Worldgen struct {
	Enabled bool `yaml:"enabled"`

	BedrockDepth int `yaml:"bedrock_depth"`

	SandClusterGrid   int `yaml:"sand_cluster_grid"`
	SandClusterRadius int `yaml:"sand_cluster_radius"`
	WoodPillarGrid    int `yaml:"wood_pillar_grid"`
	WoodPillarHeight  int `yaml:"wood_pillar_height"`

	SprinkleStonePermille int `yaml:"sprinkle_stone_permille"`
	SprinklePlantPermille int `yaml:"sprinkle_plant_permille"`
}

// Defaults returns the values used when no tuning.yaml is present.
func Defaults() Tuning {
	return Tuning{
		TickRateHz:         30,
		Seed:               1337,
		FloorY:             256,
		SettleTicks:        12,
		FlowBound:          4,
		AmbientTemp:        20,
		TempClamp:          5000,
		StructuralStride:   4,
		SupportSpan:        24,
		LightFalloff:       16,
		LightRadius:        15,
		RegenIntervalSec:   2.0,
		SnapshotEveryTicks: 150,
		Worldgen: Worldgen{
			Enabled:               true,
			BedrockDepth:          4,
			SandClusterGrid:       96,
			SandClusterRadius:     6,
			WoodPillarGrid:        160,
			WoodPillarHeight:      12,
			SprinkleStonePermille: 8,
			SprinklePlantPermille: 5,
		},
	}
}

// Load reads tuning.yaml, filling any zero field from Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive")
	}
	if t.SettleTicks <= 0 {
		return fmt.Errorf("settle_ticks must be positive")
	}
	if t.FlowBound < 1 {
		return fmt.Errorf("flow_bound must be at least 1")
	}
	if t.StructuralStride < 1 {
		return fmt.Errorf("structural_stride must be at least 1")
	}
	if t.SupportSpan < 1 {
		return fmt.Errorf("support_span must be at least 1")
	}
	if t.LightFalloff < 1 {
		return fmt.Errorf("light_falloff must be at least 1")
	}
	return nil
}
