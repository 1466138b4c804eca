package data

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// SpellAttr is a bitmask of spell behaviour flags.
type SpellAttr uint32

const (
	AttrPassive SpellAttr = 1 << iota
	AttrCastableWhileMounted
	AttrCastableWhileSitting
	AttrOnNextStrike
	AttrHiddenFromClient
	AttrPhysical
	AttrUnaffectedByInvulnerability
	AttrChanneled
	AttrHarmful
	AttrArea
	AttrTame
	AttrSpecialCast // request is handed to the spell script instead of casting
	AttrCasterIsTarget
)

var attrNames = map[string]SpellAttr{
	"passive":                       AttrPassive,
	"castable_while_mounted":        AttrCastableWhileMounted,
	"castable_while_sitting":        AttrCastableWhileSitting,
	"on_next_strike":                AttrOnNextStrike,
	"hidden":                        AttrHiddenFromClient,
	"physical":                      AttrPhysical,
	"unaffected_by_invulnerability": AttrUnaffectedByInvulnerability,
	"channeled":                     AttrChanneled,
	"harmful":                       AttrHarmful,
	"area":                          AttrArea,
	"tame":                          AttrTame,
	"special_cast":                  AttrSpecialCast,
	"caster_is_target":              AttrCasterIsTarget,
}

// InterruptFlag 同時用於施法中斷與光環移除條件。
type InterruptFlag uint32

const (
	InterruptOnDamage InterruptFlag = 1 << iota
	InterruptOnMovement
	InterruptOnCast
)

var interruptNames = map[string]InterruptFlag{
	"damage":   InterruptOnDamage,
	"movement": InterruptOnMovement,
	"cast":     InterruptOnCast,
}

// SchoolMask is a set of magic schools.
type SchoolMask uint32

const (
	SchoolPhysical SchoolMask = 1 << iota
	SchoolHoly
	SchoolFire
	SchoolNature
	SchoolFrost
	SchoolShadow
	SchoolArcane

	SchoolAll = SchoolPhysical | SchoolHoly | SchoolFire | SchoolNature | SchoolFrost | SchoolShadow | SchoolArcane
)

var schoolNames = map[string]SchoolMask{
	"physical": SchoolPhysical,
	"holy":     SchoolHoly,
	"fire":     SchoolFire,
	"nature":   SchoolNature,
	"frost":    SchoolFrost,
	"shadow":   SchoolShadow,
	"arcane":   SchoolArcane,
	"all":      SchoolAll,
}

// ModifierKind identifies a value an aura can modify.
type ModifierKind uint8

const (
	ModCastTime          ModifierKind = iota + 1 // percent, applied to cast delay
	ModPushbackReduction                         // percent [0,100] of pushback removed
	ModHitChance                                 // flat percent added to spell hit chance
	ModPowerCost                                 // percent, applied to power cost
)

var modifierNames = map[string]ModifierKind{
	"cast_time":          ModCastTime,
	"pushback_reduction": ModPushbackReduction,
	"hit_chance":         ModHitChance,
	"power_cost":         ModPowerCost,
}

// Reagent is an item consumed by a cast.
type Reagent struct {
	ItemID uint32
	Count  int
}

// Location is a fixed destination point.
type Location struct {
	Region  uint32
	X, Y, Z float32
}

// AuraMod is a modifier applied by an apply_aura effect.
type AuraMod struct {
	Kind     ModifierKind
	Value    int
	Duration time.Duration
	// aura is removed when its owner hits any of these conditions
	InterruptFlags InterruptFlag
}

// Effect is one effect slot of a spell.
type Effect struct {
	Index        int
	Type         string
	BasePoints   int
	TriggerSpell uint32
	Radius       float32
	Script       string // Lua function name for "script" effects
	Aura         *AuraMod
}

// Spell is an immutable spell definition shared by every cast of it.
type Spell struct {
	ID               uint32
	Name             string
	CastDelay        time.Duration
	ChannelDuration  time.Duration
	ChannelAmplitude time.Duration
	Attributes       SpellAttr
	InterruptFlags   InterruptFlag
	Schools          SchoolMask
	MinRange         float32
	MaxRange         float32
	PowerCost        int
	Reagents         []Reagent
	RequiredSkill    uint32
	RequiredSkillLvl int
	RequiredItem     uint32 // item the caster must carry (0 = none)
	RequiredTarget   uint32 // required target entry (0 = any)
	RequiredKind     string // required target kind ("" = any)
	TargetFlags      uint32 // default target flags for AI / triggered casts
	TargetLocation   *Location
	Radius           float32
	Effects          []Effect
	Script           string // Lua table holding on_casting / on_cancelled / special_cast
}

func (s *Spell) Has(a SpellAttr) bool { return s.Attributes&a != 0 }

func (s *Spell) IsPassive() bool      { return s.Has(AttrPassive) }
func (s *Spell) IsChanneled() bool    { return s.Has(AttrChanneled) }
func (s *Spell) IsHarmful() bool      { return s.Has(AttrHarmful) }
func (s *Spell) IsBeneficial() bool   { return !s.Has(AttrHarmful) }
func (s *Spell) IsPhysical() bool     { return s.Has(AttrPhysical) }
func (s *Spell) IsOnNextStrike() bool { return s.Has(AttrOnNextStrike) }
func (s *Spell) IsHidden() bool       { return s.Has(AttrHiddenFromClient) }
func (s *Spell) IsArea() bool         { return s.Has(AttrArea) }
func (s *Spell) IsTame() bool         { return s.Has(AttrTame) }

// AffectedByInvulnerability reports whether invulnerable or immune targets resist the spell.
func (s *Spell) AffectedByInvulnerability() bool {
	return !s.Has(AttrUnaffectedByInvulnerability)
}

func (s *Spell) InterruptedBy(f InterruptFlag) bool { return s.InterruptFlags&f != 0 }

// SpellTable holds all spells indexed by ID.
type SpellTable struct {
	spells map[uint32]*Spell
	byName map[string]*Spell
}

// NewSpellTable builds a table from already constructed spells.
func NewSpellTable(spells ...*Spell) *SpellTable {
	t := &SpellTable{
		spells: make(map[uint32]*Spell, len(spells)),
		byName: make(map[string]*Spell, len(spells)),
	}
	for _, s := range spells {
		t.spells[s.ID] = s
		t.byName[s.Name] = s
	}
	return t
}

// Get returns a spell by ID, or nil if not found.
func (t *SpellTable) Get(id uint32) *Spell {
	return t.spells[id]
}

// GetByName returns a spell by its exact name, or nil if not found.
func (t *SpellTable) GetByName(name string) *Spell {
	return t.byName[name]
}

// Count returns total loaded spells.
func (t *SpellTable) Count() int {
	return len(t.spells)
}

// All returns every spell ordered by ID.
func (t *SpellTable) All() []*Spell {
	result := make([]*Spell, 0, len(t.spells))
	for _, s := range t.spells {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// --- YAML loading ---

type reagentEntry struct {
	ItemID uint32 `yaml:"item_id"`
	Count  int    `yaml:"count"`
}

type locationEntry struct {
	Region uint32  `yaml:"region"`
	X      float32 `yaml:"x"`
	Y      float32 `yaml:"y"`
	Z      float32 `yaml:"z"`
}

type auraEntry struct {
	Modifier   string   `yaml:"modifier"`
	Value      int      `yaml:"value"`
	DurationMs int      `yaml:"duration_ms"`
	Interrupts []string `yaml:"interrupts"`
}

type effectEntry struct {
	Type         string     `yaml:"type"`
	BasePoints   int        `yaml:"base_points"`
	TriggerSpell uint32     `yaml:"trigger_spell"`
	Radius       float32    `yaml:"radius"`
	Script       string     `yaml:"script"`
	Aura         *auraEntry `yaml:"aura"`
}

type spellEntry struct {
	ID                 uint32         `yaml:"id"`
	Name               string         `yaml:"name"`
	CastTimeMs         int            `yaml:"cast_time_ms"`
	ChannelMs          int            `yaml:"channel_ms"`
	ChannelAmplitudeMs int            `yaml:"channel_amplitude_ms"`
	Attributes         []string       `yaml:"attributes"`
	Interrupts         []string       `yaml:"interrupts"`
	Schools            []string       `yaml:"schools"`
	MinRange           float32        `yaml:"min_range"`
	MaxRange           float32        `yaml:"max_range"`
	PowerCost          int            `yaml:"power_cost"`
	Reagents           []reagentEntry `yaml:"reagents"`
	RequiredSkill      uint32         `yaml:"required_skill"`
	RequiredSkillLevel int            `yaml:"required_skill_level"`
	RequiredItem       uint32         `yaml:"required_item"`
	RequiredTarget     uint32         `yaml:"required_target"`
	RequiredKind       string         `yaml:"required_kind"`
	TargetFlags        uint32         `yaml:"target_flags"`
	TargetLocation     *locationEntry `yaml:"target_location"`
	Radius             float32        `yaml:"radius"`
	Effects            []effectEntry  `yaml:"effects"`
	Script             string         `yaml:"script"`
}

type spellListFile struct {
	Spells []spellEntry `yaml:"spells"`
}

// LoadSpellTable loads spell definitions from YAML.
func LoadSpellTable(path string) (*SpellTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spells: %w", err)
	}
	t, err := ParseSpellTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse spells %s: %w", path, err)
	}
	return t, nil
}

// ParseSpellTable decodes a spell list document.
func ParseSpellTable(raw []byte) (*SpellTable, error) {
	var f spellListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	spells := make([]*Spell, 0, len(f.Spells))
	seen := make(map[uint32]bool, len(f.Spells))
	for i := range f.Spells {
		e := &f.Spells[i]
		if seen[e.ID] {
			return nil, fmt.Errorf("spell %d: duplicate id", e.ID)
		}
		seen[e.ID] = true
		s, err := e.build()
		if err != nil {
			return nil, fmt.Errorf("spell %d (%s): %w", e.ID, e.Name, err)
		}
		spells = append(spells, s)
	}
	return NewSpellTable(spells...), nil
}

func (e *spellEntry) build() (*Spell, error) {
	s := &Spell{
		ID:               e.ID,
		Name:             e.Name,
		CastDelay:        time.Duration(e.CastTimeMs) * time.Millisecond,
		ChannelDuration:  time.Duration(e.ChannelMs) * time.Millisecond,
		ChannelAmplitude: time.Duration(e.ChannelAmplitudeMs) * time.Millisecond,
		MinRange:         e.MinRange,
		MaxRange:         e.MaxRange,
		PowerCost:        e.PowerCost,
		RequiredSkill:    e.RequiredSkill,
		RequiredSkillLvl: e.RequiredSkillLevel,
		RequiredItem:     e.RequiredItem,
		RequiredTarget:   e.RequiredTarget,
		RequiredKind:     e.RequiredKind,
		TargetFlags:      e.TargetFlags,
		Radius:           e.Radius,
		Script:           e.Script,
	}
	for _, name := range e.Attributes {
		a, ok := attrNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown attribute %q", name)
		}
		s.Attributes |= a
	}
	flags, err := parseInterrupts(e.Interrupts)
	if err != nil {
		return nil, err
	}
	s.InterruptFlags = flags
	for _, name := range e.Schools {
		m, ok := schoolNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown school %q", name)
		}
		s.Schools |= m
	}
	if s.IsChanneled() && s.ChannelDuration <= 0 {
		return nil, fmt.Errorf("channeled spell without channel_ms")
	}
	for _, r := range e.Reagents {
		count := r.Count
		if count <= 0 {
			count = 1
		}
		s.Reagents = append(s.Reagents, Reagent{ItemID: r.ItemID, Count: count})
	}
	if e.TargetLocation != nil {
		l := e.TargetLocation
		s.TargetLocation = &Location{Region: l.Region, X: l.X, Y: l.Y, Z: l.Z}
	}
	for i, fx := range e.Effects {
		eff := Effect{
			Index:        i,
			Type:         fx.Type,
			BasePoints:   fx.BasePoints,
			TriggerSpell: fx.TriggerSpell,
			Radius:       fx.Radius,
			Script:       fx.Script,
		}
		if fx.Aura != nil {
			kind, ok := modifierNames[fx.Aura.Modifier]
			if !ok {
				return nil, fmt.Errorf("effect %d: unknown modifier %q", i, fx.Aura.Modifier)
			}
			flags, err := parseInterrupts(fx.Aura.Interrupts)
			if err != nil {
				return nil, fmt.Errorf("effect %d: %w", i, err)
			}
			eff.Aura = &AuraMod{
				Kind:           kind,
				Value:          fx.Aura.Value,
				Duration:       time.Duration(fx.Aura.DurationMs) * time.Millisecond,
				InterruptFlags: flags,
			}
		}
		s.Effects = append(s.Effects, eff)
	}
	return s, nil
}

func parseInterrupts(names []string) (InterruptFlag, error) {
	var flags InterruptFlag
	for _, name := range names {
		f, ok := interruptNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown interrupt %q", name)
		}
		flags |= f
	}
	return flags, nil
}
