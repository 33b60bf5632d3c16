package material

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// rawDef mirrors one entry of materials.json.
type rawDef struct {
	ID           string   `json:"id"`
	State        string   `json:"state"`
	Density      float64  `json:"density"`
	Conductivity float64  `json:"conductivity"`
	Color        string   `json:"color"`
	Tags         []string `json:"tags,omitempty"`

	Emission uint8 `json:"emission,omitempty"`
	Opacity  uint8 `json:"opacity,omitempty"`
	BaseTemp int16 `json:"base_temp,omitempty"`

	HotThreshold  *int16 `json:"hot_threshold,omitempty"`
	HotProduct    string `json:"hot_product,omitempty"`
	ColdThreshold *int16 `json:"cold_threshold,omitempty"`
	ColdProduct   string `json:"cold_product,omitempty"`

	LifeTicks    uint8  `json:"life_ticks,omitempty"`
	DecayProduct string `json:"decay_product,omitempty"`

	FallProduct string `json:"fall_product,omitempty"`

	RegenProduct  string `json:"regen_product,omitempty"`
	RegenPermille int    `json:"regen_permille,omitempty"`
}

// Load builds the registry from <configDir>/materials.json. AIR is forced to
// palette id 0; the rest are assigned in sorted name order so ids are stable
// for a given asset file.
func Load(configDir string) (*Registry, error) {
	path := filepath.Join(configDir, "materials.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var defs []rawDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("materials.json: %w", err)
	}

	byName := map[string]rawDef{}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("materials.json: empty id")
		}
		if _, dup := byName[d.ID]; dup {
			return nil, fmt.Errorf("materials.json: duplicate id %s", d.ID)
		}
		byName[d.ID] = d
	}
	if _, ok := byName["AIR"]; !ok {
		return nil, fmt.Errorf("materials.json: missing AIR")
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		if name != "AIR" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append([]string{"AIR"}, names...)

	r := NewRegistry()
	for _, name := range names {
		def, err := buildDef(byName[name])
		if err != nil {
			return nil, err
		}
		if _, err := r.Define(def); err != nil {
			return nil, err
		}
	}

	// Product names can reference materials in any order, so resolve them in a
	// second pass once every id is assigned.
	for i := range r.defs {
		if err := resolveProducts(r, &r.defs[i], byName[r.defs[i].Name]); err != nil {
			return nil, err
		}
	}

	palJSON, _ := json.Marshal(r.Palette())
	sum := sha256.Sum256(palJSON)
	r.paletteDigest = hex.EncodeToString(sum[:])
	return r, nil
}

func buildDef(raw rawDef) (Def, error) {
	state, ok := stateNames[raw.State]
	if !ok {
		return Def{}, fmt.Errorf("material %s: bad state %q", raw.ID, raw.State)
	}
	color, err := parseColor(raw.Color)
	if err != nil {
		return Def{}, fmt.Errorf("material %s: %w", raw.ID, err)
	}
	d := Def{
		Name:         raw.ID,
		State:        state,
		Density:      raw.Density,
		Conductivity: raw.Conductivity,
		Color:        color,
		Emission:     raw.Emission,
		Opacity:      raw.Opacity,
		BaseTemp:     raw.BaseTemp,
		tags:         map[string]struct{}{},
	}
	for _, tag := range raw.Tags {
		d.tags[tag] = struct{}{}
	}
	if d.Conductivity < 0 || d.Conductivity > 1 {
		return Def{}, fmt.Errorf("material %s: conductivity %v outside [0,1]", raw.ID, raw.Conductivity)
	}
	return d, nil
}

func resolveProducts(r *Registry, d *Def, raw rawDef) error {
	resolve := func(name string) (ID, error) {
		id, ok := r.byName[name]
		if !ok {
			return 0, fmt.Errorf("material %s: unknown product %s", d.Name, name)
		}
		return id, nil
	}
	var err error
	if raw.HotThreshold != nil && raw.HotProduct != "" {
		d.HotThreshold = *raw.HotThreshold
		if d.HotProduct, err = resolve(raw.HotProduct); err != nil {
			return err
		}
		d.HasHot = true
	}
	if raw.ColdThreshold != nil && raw.ColdProduct != "" {
		d.ColdThreshold = *raw.ColdThreshold
		if d.ColdProduct, err = resolve(raw.ColdProduct); err != nil {
			return err
		}
		d.HasCold = true
	}
	if raw.LifeTicks > 0 {
		d.LifeTicks = raw.LifeTicks
		if raw.DecayProduct != "" {
			if d.DecayProduct, err = resolve(raw.DecayProduct); err != nil {
				return err
			}
		}
		d.HasDecay = true
	}
	if raw.FallProduct != "" {
		if d.FallProduct, err = resolve(raw.FallProduct); err != nil {
			return err
		}
		d.HasFall = true
	}
	if raw.RegenProduct != "" {
		if d.RegenProduct, err = resolve(raw.RegenProduct); err != nil {
			return err
		}
		d.RegenPermille = clampPermille(raw.RegenPermille)
		d.HasRegen = true
	}
	return nil
}

func clampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func parseColor(s string) ([3]uint8, error) {
	var c [3]uint8
	if s == "" {
		return c, nil
	}
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("bad color %q", s)
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return c, fmt.Errorf("bad color %q", s)
		}
		c[i] = uint8(v)
	}
	return c, nil
}
