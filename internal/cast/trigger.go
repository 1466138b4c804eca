package cast

import (
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// ==================== 連鎖施法 ====================
// A triggered cast runs on a fresh instance that inherits the caster,
// phase, locations, selection and casting item of its parent. It is always
// queued on the parent's region so nested triggers never recurse.

func (c *Cast) inherit() *Cast {
	caster := c.Caster()
	if caster == nil {
		return nil
	}
	if c.depth >= c.engine.cfg.MaxTriggerDepth {
		c.engine.log.Warn("連鎖施法層數過深", append(c.logFields(), zap.Int("depth", c.depth))...)
		return nil
	}
	child := c.engine.Obtain(caster)
	if child == nil {
		return nil
	}
	child.phase = c.phase
	child.sourceLoc = c.sourceLoc
	child.targetLoc = c.targetLoc
	child.hasTargetLoc = c.hasTargetLoc
	child.selected = c.selected
	child.casterItem = c.casterItem
	child.depth = c.depth + 1
	return child
}

// Trigger casts spell with no explicit targets.
func (c *Cast) Trigger(spell *data.Spell) {
	c.TriggerWith(spell, c.triggerEffect, c.triggerAction)
}

// TriggerWith casts spell as the result of effect and action on targets.
func (c *Cast) TriggerWith(spell *data.Spell, effect *data.Effect, action *Action, targets ...*world.Object) {
	if spell == nil {
		return
	}
	child := c.inherit()
	if child == nil {
		return
	}
	child.triggerAction = action
	list := append([]*world.Object(nil), targets...)
	child.region.ExecuteInContext(func() {
		child.StartTriggered(spell, effect, false, list...)
	})
}

// TriggerSelf casts spell on the caster.
func (c *Cast) TriggerSelf(spell *data.Spell) {
	if caster := c.Caster(); caster != nil {
		c.TriggerWith(spell, c.triggerEffect, c.triggerAction, caster)
	}
}

// TriggerSingle casts spell on one target.
func (c *Cast) TriggerSingle(spell *data.Spell, target *world.Object) {
	if target == nil {
		return
	}
	c.TriggerWith(spell, c.triggerEffect, c.triggerAction, target)
}

// TriggerSelected casts spell on the parent's selection.
func (c *Cast) TriggerSelected(spell *data.Spell) {
	if c.selected == nil {
		return
	}
	c.TriggerWith(spell, c.triggerEffect, c.triggerAction, c.selected)
}

// TriggerAll casts every spell once on the same target list.
func (c *Cast) TriggerAll(target *world.Object, spells ...*data.Spell) {
	for _, s := range spells {
		if target == nil {
			c.Trigger(s)
			continue
		}
		c.TriggerSingle(s, target)
	}
}

// ValidateAndTrigger casts spell from an event such as a proc. Spells
// targeting their caster (or with no effects) go to the caster's owner;
// otherwise target must match the spell's hostility.
func (c *Cast) ValidateAndTrigger(spell *data.Spell, target *world.Object, action *Action) {
	if spell == nil {
		return
	}
	targets := c.triggerTargets(spell, target)
	c.TriggerWith(spell, nil, action, targets...)
}

// triggerTargets picks the targets of an event-triggered spell. nil means
// the spell collects its own.
func (c *Cast) triggerTargets(spell *data.Spell, target *world.Object) []*world.Object {
	caster := c.Caster()
	if caster == nil {
		return nil
	}
	if spell.Has(data.AttrCasterIsTarget) || len(spell.Effects) == 0 {
		if owner := caster.Responsible(); owner != nil {
			return []*world.Object{&owner.Object}
		}
		return []*world.Object{caster}
	}
	if target == nil || spell.IsArea() {
		return nil
	}
	owner, tu := caster.Responsible(), target.Unit()
	if owner != nil && tu != nil && owner.IsHostileTo(tu) != spell.IsHarmful() {
		return nil
	}
	return []*world.Object{target}
}
