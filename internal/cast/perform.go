package cast

import (
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// Perform applies the spell. Called when the cast timer fires, on the next
// weapon strike, or directly for instant casts.
func (c *Cast) Perform() (reason FailedReason) {
	defer func() {
		if p := recover(); p != nil {
			reason = c.recoverFault("perform", p)
		}
	}()

	if !c.casting {
		return FailedInterrupted
	}
	c.state = StatePerforming
	c.ctx.untrack(c)
	c.ctx.unpend(c)

	spell := c.spell
	if !c.passive {
		if c.Caster() == nil {
			c.Cancel(FailedDontReport)
			return FailedDontReport
		}
		if u := c.self(); u != nil && !u.Alive() {
			c.Cancel(FailedCasterDead)
			return FailedCasterDead
		}
	}

	if c.handlers == nil {
		if r := c.initHandlers(); r != FailedOk {
			c.Cancel(r)
			return r
		}
	} else {
		c.pruneTargets()
		if len(c.targets) == 0 && !spell.IsArea() {
			c.Cancel(FailedNoValidTargets)
			return FailedNoValidTargets
		}
	}

	if u := c.self(); u != nil && u.IsPlayer() && !c.godMode && !c.passive && !c.isTriggered() {
		if r := c.consume(u); r != FailedOk {
			c.Cancel(r)
			return r
		}
	}

	hit, missed := c.resolveHits()
	handlers := c.handlers
	for _, h := range handlers {
		if !c.casting {
			break
		}
		h.Apply(c, hit)
	}
	if !c.casting {
		return FailedOk
	}
	if !c.passive && !spell.IsHidden() {
		c.engine.notifier.SpellGo(c, hit, missed)
	}

	if spell.IsChanneled() && spell.ChannelDuration > 0 {
		c.channel = newChannel(c, spell.ChannelDuration, spell.ChannelAmplitude)
		c.state = StateChanneling
		c.cleanup(false)
		c.ctx.track(c)
		c.channel.Open()
		return FailedOk
	}
	c.cleanup(true)
	return FailedOk
}

// initHandlers builds one handler per effect and collects the targets.
// On failure every handler built so far is cleaned up and none is kept.
func (c *Cast) initHandlers() FailedReason {
	spell := c.spell
	handlers := make([]EffectHandler, 0, len(spell.Effects))
	fail := func(r FailedReason) FailedReason {
		for _, h := range handlers {
			h.Cleanup()
		}
		return r
	}
	for i := range spell.Effects {
		eff := &spell.Effects[i]
		factory, ok := c.engine.effects[eff.Type]
		if !ok {
			c.engine.log.Debug("未註冊的效果類型",
				zap.Uint32("spell", spell.ID), zap.String("effect", eff.Type))
			continue
		}
		h := factory(c, eff)
		if h == nil {
			continue
		}
		handlers = append(handlers, h)
		if in, ok := h.(Initializer); ok {
			if r := in.Init(c); r != FailedOk {
				return fail(r)
			}
		}
	}
	if r := c.collectTargets(); r != FailedOk {
		return fail(r)
	}
	c.handlers = handlers
	return FailedOk
}

func (c *Cast) collectTargets() FailedReason {
	spell := c.spell
	clear(c.targets)
	c.targets = c.targets[:0]
	switch {
	case len(c.initialTargets) > 0:
		c.targets = append(c.targets, c.initialTargets...)
	case spell.IsArea():
		c.collectArea()
	case spell.Has(data.AttrCasterIsTarget):
		if caster := c.Caster(); caster != nil {
			c.targets = append(c.targets, caster)
		}
	case c.selected != nil:
		c.targets = append(c.targets, c.selected)
	case !spell.IsHarmful():
		if caster := c.Caster(); caster != nil {
			c.targets = append(c.targets, caster)
		}
	}
	c.pruneTargets()
	if len(c.targets) == 0 && !spell.IsArea() {
		return FailedNoValidTargets
	}
	return FailedOk
}

func (c *Cast) collectArea() {
	spell := c.spell
	center := c.sourceLoc
	if caster := c.Caster(); caster != nil {
		center = caster.Position
	}
	if c.hasTargetLoc {
		center = c.targetLoc
	}
	radius := spell.Radius
	if radius <= 0 {
		return
	}
	var owner *world.Unit
	if caster := c.Caster(); caster != nil {
		owner = caster.Responsible()
	}
	for _, u := range c.region.UnitsInRadius(center, radius, c.phase) {
		if !u.Alive() {
			continue
		}
		if spell.IsHarmful() {
			if owner == nil || u == owner || !owner.IsHostileTo(u) {
				continue
			}
		} else if owner != nil && owner.IsHostileTo(u) {
			continue
		}
		c.targets = append(c.targets, &u.Object)
	}
}

// pruneTargets drops targets that left the world since the cast started.
func (c *Cast) pruneTargets() {
	kept := c.targets[:0]
	for _, t := range c.targets {
		if t != nil && t.InWorld() && t.Region() == c.region {
			kept = append(kept, t)
		}
	}
	clear(c.targets[len(kept):])
	c.targets = kept
}

func (c *Cast) consume(u *world.Unit) FailedReason {
	cost := c.powerCost(u)
	if cost > u.Power {
		return FailedNoPower
	}
	if len(c.spell.Reagents) > 0 && !u.Inventory.ConsumeReagents(c.spell.Reagents) {
		return FailedReagents
	}
	u.Power -= cost
	return FailedOk
}
