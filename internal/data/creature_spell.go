package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CreatureSpell is one spell an AI-controlled creature may cast.
type CreatureSpell struct {
	SpellID     uint32  `yaml:"spell_id"`
	Chance      int     `yaml:"chance"`       // probability 0-100 per tick with a target
	HealthBelow int     `yaml:"health_below"` // HP% threshold (0 = always)
	Range       float32 `yaml:"range"`        // only when target within range (0 = spell range)
}

type creatureSpellEntry struct {
	Entry  uint32          `yaml:"entry"`
	Spells []CreatureSpell `yaml:"spells"`
}

type creatureSpellFile struct {
	Creatures []creatureSpellEntry `yaml:"creatures"`
}

// CreatureSpellTable holds creature spell lists indexed by creature entry.
type CreatureSpellTable struct {
	spells map[uint32][]CreatureSpell
}

// Get returns the spell list for a creature entry, or nil if none defined.
func (t *CreatureSpellTable) Get(entry uint32) []CreatureSpell {
	if t == nil {
		return nil
	}
	return t.spells[entry]
}

// Count returns the number of creatures with spell entries.
func (t *CreatureSpellTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.spells)
}

// LoadCreatureSpellTable loads creature spell lists from a YAML file.
func LoadCreatureSpellTable(path string) (*CreatureSpellTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read creature_spells: %w", err)
	}
	return ParseCreatureSpellTable(raw)
}

func ParseCreatureSpellTable(raw []byte) (*CreatureSpellTable, error) {
	var f creatureSpellFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse creature_spells: %w", err)
	}
	t := &CreatureSpellTable{spells: make(map[uint32][]CreatureSpell, len(f.Creatures))}
	for _, entry := range f.Creatures {
		t.spells[entry.Entry] = entry.Spells
	}
	return t, nil
}
