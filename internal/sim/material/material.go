package material

import (
	"errors"
	"fmt"
)

// ID indexes a material in the registry. Ids are stable for the lifetime of a
// registry and are never recycled; AIR is always id 0.
type ID uint16

const Air ID = 0

// State classifies how the movement pass treats a material.
type State uint8

const (
	StateSolid State = iota
	StatePowder
	StateLiquid
	StateGas
)

var stateNames = map[string]State{
	"solid":  StateSolid,
	"powder": StatePowder,
	"liquid": StateLiquid,
	"gas":    StateGas,
}

// Behavior tags referenced by the simulation systems.
const (
	TagStructural = "structural"
	TagAnchor     = "anchor"
	TagFlammable  = "flammable"
	TagEmissive   = "emissive"
	TagConductive = "conductive"
	TagCorrosive  = "corrosive"
)

var (
	ErrUnknownMaterial   = errors.New("unknown material id")
	ErrInvalidMaterialID = errors.New("material id not in registry")
)

// Def is the static property record for one material. Defs are built once at
// load and never mutated afterwards, so they are safe to share without locks.
type Def struct {
	ID   ID
	Name string

	State        State
	Density      float64
	Conductivity float64 // 0..1, fraction of neighbor temperature delta moved per tick
	Color        [3]uint8

	Emission uint8 // light source intensity, 0 = not emissive
	Opacity  uint8 // extra light attenuation per cell

	BaseTemp int16 // temperature assigned when a cell becomes this material

	// Phase transitions (temperature thresholds). Product is valid only when
	// the corresponding Has flag is set.
	HotThreshold int16
	HotProduct   ID
	HasHot       bool

	ColdThreshold int16
	ColdProduct   ID
	HasCold       bool

	// Lifetime decay: after LifeTicks the cell turns into DecayProduct
	// (fire burning out, smoke dissipating).
	LifeTicks    uint8
	DecayProduct ID
	HasDecay     bool

	// Structural collapse policy: what an unsupported pixel becomes.
	// HasFall false means the pixel is destroyed instead.
	FallProduct ID
	HasFall     bool

	// Regeneration toward a target material (renewable resources).
	RegenProduct  ID
	RegenPermille int
	HasRegen      bool

	tags map[string]struct{}
}

// HasTag reports whether the material carries the named behavior tag.
func (d *Def) HasTag(tag string) bool {
	_, ok := d.tags[tag]
	return ok
}

// Structural reports whether the structural integrity system tracks this
// material (non-powder solids tagged structural).
func (d *Def) Structural() bool {
	return d.State == StateSolid && d.HasTag(TagStructural)
}

// Registry is the immutable material catalog. Build it with Load (or Define in
// tests), then share it read-only between the world and its collaborators.
type Registry struct {
	defs   []Def
	byName map[string]ID
	byTag  map[string][]ID

	paletteDigest string
}

func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]ID{},
		byTag:  map[string][]ID{},
	}
}

// Define appends a material and returns its id. Names must be unique; the
// first defined material must be AIR so that id 0 stays the empty sentinel.
func (r *Registry) Define(d Def) (ID, error) {
	if d.Name == "" {
		return 0, fmt.Errorf("material: empty name")
	}
	if _, dup := r.byName[d.Name]; dup {
		return 0, fmt.Errorf("material %s: duplicate definition", d.Name)
	}
	if len(r.defs) == 0 && d.Name != "AIR" {
		return 0, fmt.Errorf("material %s: AIR must be defined first", d.Name)
	}
	if len(r.defs) >= 1<<16 {
		return 0, fmt.Errorf("material %s: palette full", d.Name)
	}
	id := ID(len(r.defs))
	d.ID = id
	if d.tags == nil {
		d.tags = map[string]struct{}{}
	}
	r.defs = append(r.defs, d)
	r.byName[d.Name] = id
	for tag := range d.tags {
		r.byTag[tag] = append(r.byTag[tag], id)
	}
	return id, nil
}

// Get returns the definition for id. An unknown id is a programming error in
// simulation code; decode paths for external data must call Valid first.
func (r *Registry) Get(id ID) (*Def, error) {
	if int(id) >= len(r.defs) {
		return nil, fmt.Errorf("%w: %d (palette size %d)", ErrUnknownMaterial, id, len(r.defs))
	}
	return &r.defs[id], nil
}

// MustGet is Get for ids already validated against the registry.
func (r *Registry) MustGet(id ID) *Def {
	d, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return d
}

// Valid reports whether id maps to a defined material.
func (r *Registry) Valid(id ID) bool {
	return int(id) < len(r.defs)
}

// ByName resolves a material name to its id.
func (r *Registry) ByName(name string) (ID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// ByTag returns the ids carrying the given tag, in id order.
func (r *Registry) ByTag(tag string) []ID {
	return r.byTag[tag]
}

// Len is the palette size.
func (r *Registry) Len() int { return len(r.defs) }

// PaletteDigest identifies the loaded palette for handshakes and save files.
func (r *Registry) PaletteDigest() string { return r.paletteDigest }

// Palette returns material names in id order.
func (r *Registry) Palette() []string {
	names := make([]string, len(r.defs))
	for i := range r.defs {
		names[i] = r.defs[i].Name
	}
	return names
}
