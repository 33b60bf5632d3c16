// Package reaction holds the static neighbor-reaction table. Like the material
// registry it is built once from a JSON asset and read-only afterwards.
package reaction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sunaba.world/internal/sim/material"
)

// Rule transforms an ordered pair of adjacent materials. A is the pixel being
// scanned, B the neighbor that matched. Empty products leave a cell unchanged.
type Rule struct {
	A, B material.ID

	AProduct material.ID
	AChanges bool
	BProduct material.ID
	BChanges bool

	// Heat deltas applied to the two cells when the rule fires.
	HeatA int16
	HeatB int16

	// Ambient condition: the rule fires only if the hotter of the two cells is
	// at least MinTemp.
	MinTemp    int16
	HasMinTemp bool

	ChancePermille int
}

type rawRule struct {
	A         string `json:"a"`
	B         string `json:"b"`
	AProduct  string `json:"a_to,omitempty"`
	BProduct  string `json:"b_to,omitempty"`
	HeatA     int16  `json:"heat_a,omitempty"`
	HeatB     int16  `json:"heat_b,omitempty"`
	MinTemp   *int16 `json:"min_temp,omitempty"`
	ChancePct int    `json:"chance_permille,omitempty"`
}

type pairKey struct{ a, b material.ID }

// Registry maps ordered material pairs to rules.
type Registry struct {
	rules  map[pairKey]Rule
	digest string
}

func NewRegistry() *Registry {
	return &Registry{rules: map[pairKey]Rule{}}
}

// Define registers a rule for the ordered pair (A, B). Registering the same
// pair twice is an asset error.
func (r *Registry) Define(rule Rule) error {
	k := pairKey{rule.A, rule.B}
	if _, dup := r.rules[k]; dup {
		return fmt.Errorf("reaction: duplicate rule for pair (%d,%d)", rule.A, rule.B)
	}
	if rule.ChancePermille <= 0 || rule.ChancePermille > 1000 {
		rule.ChancePermille = 1000
	}
	r.rules[k] = rule
	return nil
}

// Find looks up the rule for pixel material a with neighbor material b. The
// swapped return is true when the registered rule was (b, a), so the caller
// must apply the A side to the neighbor.
func (r *Registry) Find(a, b material.ID) (Rule, bool, bool) {
	if rule, ok := r.rules[pairKey{a, b}]; ok {
		return rule, false, true
	}
	if rule, ok := r.rules[pairKey{b, a}]; ok {
		return rule, true, true
	}
	return Rule{}, false, false
}

// Len is the number of registered pairs.
func (r *Registry) Len() int { return len(r.rules) }

// Digest identifies the loaded rule set.
func (r *Registry) Digest() string { return r.digest }

// Load reads <configDir>/reactions.json, resolving material names against the
// given registry.
func Load(configDir string, mats *material.Registry) (*Registry, error) {
	path := filepath.Join(configDir, "reactions.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rawRules []rawRule
	if err := json.Unmarshal(raw, &rawRules); err != nil {
		return nil, fmt.Errorf("reactions.json: %w", err)
	}

	r := NewRegistry()
	for i, rr := range rawRules {
		rule, err := buildRule(rr, mats)
		if err != nil {
			return nil, fmt.Errorf("reactions.json[%d]: %w", i, err)
		}
		if err := r.Define(rule); err != nil {
			return nil, err
		}
	}
	sum := sha256.Sum256(raw)
	r.digest = hex.EncodeToString(sum[:])
	return r, nil
}

func buildRule(raw rawRule, mats *material.Registry) (Rule, error) {
	resolve := func(name string) (material.ID, error) {
		id, ok := mats.ByName(name)
		if !ok {
			return 0, fmt.Errorf("unknown material %s", name)
		}
		return id, nil
	}

	var rule Rule
	var err error
	if rule.A, err = resolve(raw.A); err != nil {
		return rule, err
	}
	if rule.B, err = resolve(raw.B); err != nil {
		return rule, err
	}
	if raw.AProduct != "" {
		if rule.AProduct, err = resolve(raw.AProduct); err != nil {
			return rule, err
		}
		rule.AChanges = true
	}
	if raw.BProduct != "" {
		if rule.BProduct, err = resolve(raw.BProduct); err != nil {
			return rule, err
		}
		rule.BChanges = true
	}
	if !rule.AChanges && !rule.BChanges && raw.HeatA == 0 && raw.HeatB == 0 {
		return rule, fmt.Errorf("pair (%s,%s) has no effect", raw.A, raw.B)
	}
	rule.HeatA = raw.HeatA
	rule.HeatB = raw.HeatB
	if raw.MinTemp != nil {
		rule.MinTemp = *raw.MinTemp
		rule.HasMinTemp = true
	}
	rule.ChancePermille = raw.ChancePct
	return rule, nil
}
