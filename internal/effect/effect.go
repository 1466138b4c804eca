// Package effect holds the built-in spell effect handlers.
package effect

import (
	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// Effect type names as written in spells.yaml.
const (
	TypeSchoolDamage = "school_damage"
	TypeHeal         = "heal"
	TypeApplyAura    = "apply_aura"
	TypeTriggerSpell = "trigger_spell"
	TypeDummy        = "dummy"
	TypeScript       = "script"
)

// ScriptRunner runs the Lua function of a script effect.
// scripting.Engine implements it.
type ScriptRunner interface {
	RunEffect(fn string, c *cast.Cast, targets []*world.Object) error
}

// RegisterAll installs every built-in handler on the engine. scripts may be
// nil when scripting is disabled; script effects then fail to initialize.
func RegisterAll(e *cast.Engine, scripts ScriptRunner, log *zap.Logger) {
	e.RegisterEffect(TypeSchoolDamage, func(c *cast.Cast, eff *data.Effect) cast.EffectHandler {
		return &SchoolDamage{eff: eff}
	})
	e.RegisterEffect(TypeHeal, func(c *cast.Cast, eff *data.Effect) cast.EffectHandler {
		return &Heal{eff: eff}
	})
	e.RegisterEffect(TypeApplyAura, func(c *cast.Cast, eff *data.Effect) cast.EffectHandler {
		return &ApplyAura{eff: eff}
	})
	e.RegisterEffect(TypeTriggerSpell, func(c *cast.Cast, eff *data.Effect) cast.EffectHandler {
		return &TriggerSpell{eff: eff}
	})
	e.RegisterEffect(TypeDummy, func(*cast.Cast, *data.Effect) cast.EffectHandler {
		return Dummy{}
	})
	e.RegisterEffect(TypeScript, func(c *cast.Cast, eff *data.Effect) cast.EffectHandler {
		return &Script{eff: eff, runner: scripts, log: log}
	})
}

// units returns the animate targets that are still alive.
func units(targets []*world.Object) []*world.Unit {
	out := make([]*world.Unit, 0, len(targets))
	for _, t := range targets {
		if u := t.Unit(); u != nil && u.Alive() && t.InWorld() {
			out = append(out, u)
		}
	}
	return out
}
