package world

import (
	"time"

	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/data"
)

// Aura is one active modifier on a unit.
type Aura struct {
	SpellID   uint32
	CasterID  ecs.EntityID
	Mod       data.AuraMod
	Remaining time.Duration // 0 with Permanent = until removed
	Permanent bool
}

// Auras holds a unit's active auras. Game loop only.
type Auras struct {
	list []*Aura
}

func NewAuras() *Auras {
	return &Auras{list: make([]*Aura, 0, 4)}
}

// Add applies an aura, replacing an earlier one from the same spell and
// modifier kind. Returns the replaced aura or nil.
func (a *Auras) Add(aura *Aura) *Aura {
	for i, cur := range a.list {
		if cur.SpellID == aura.SpellID && cur.Mod.Kind == aura.Mod.Kind {
			a.list[i] = aura
			return cur
		}
	}
	a.list = append(a.list, aura)
	return nil
}

// Remove drops every aura of the spell and reports whether any existed.
func (a *Auras) Remove(spellID uint32) bool {
	kept := a.list[:0]
	removed := false
	for _, cur := range a.list {
		if cur.SpellID == spellID {
			removed = true
			continue
		}
		kept = append(kept, cur)
	}
	clearTail(a.list, len(kept))
	a.list = kept
	return removed
}

func (a *Auras) Has(spellID uint32) bool {
	for _, cur := range a.list {
		if cur.SpellID == spellID {
			return true
		}
	}
	return false
}

func (a *Auras) Len() int { return len(a.list) }

// Sum adds up the values of every aura of kind, skipping auras applied by
// the spell being modified.
func (a *Auras) Sum(kind data.ModifierKind, spell *data.Spell) int {
	total := 0
	for _, cur := range a.list {
		if cur.Mod.Kind != kind {
			continue
		}
		if spell != nil && cur.SpellID == spell.ID {
			continue
		}
		total += cur.Mod.Value
	}
	return total
}

// GetModifiedValue applies every aura of kind to base.
//
//	ModCastTime / ModPowerCost: base scaled by (100+sum)%, floored at 0
//	ModPushbackReduction:       sum clamped to [0,100]% is removed from base
//	ModHitChance:               sum added to base
func (a *Auras) GetModifiedValue(kind data.ModifierKind, spell *data.Spell, base int) int {
	sum := a.Sum(kind, spell)
	switch kind {
	case data.ModCastTime, data.ModPowerCost:
		v := base * (100 + sum) / 100
		if v < 0 {
			return 0
		}
		return v
	case data.ModPushbackReduction:
		if sum < 0 {
			sum = 0
		} else if sum > 100 {
			sum = 100
		}
		return base - base*sum/100
	case data.ModHitChance:
		return base + sum
	}
	return base
}

// RemoveByInterruptFlag removes auras broken by the given condition and
// returns them.
func (a *Auras) RemoveByInterruptFlag(flag data.InterruptFlag) []*Aura {
	var removed []*Aura
	kept := a.list[:0]
	for _, cur := range a.list {
		if cur.Mod.InterruptFlags&flag != 0 {
			removed = append(removed, cur)
			continue
		}
		kept = append(kept, cur)
	}
	clearTail(a.list, len(kept))
	a.list = kept
	return removed
}

// Update counts down timed auras and returns the ones that expired.
func (a *Auras) Update(dt time.Duration) []*Aura {
	var expired []*Aura
	kept := a.list[:0]
	for _, cur := range a.list {
		if !cur.Permanent {
			cur.Remaining -= dt
			if cur.Remaining <= 0 {
				expired = append(expired, cur)
				continue
			}
		}
		kept = append(kept, cur)
	}
	clearTail(a.list, len(kept))
	a.list = kept
	return expired
}

func clearTail(list []*Aura, n int) {
	for i := n; i < len(list); i++ {
		list[i] = nil
	}
}
