package cast

import (
	"github.com/l1jgo/spellcast/internal/config"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
)

// HitChance returns the percent chance of a spell landing.
//
// Up to two levels above the caster the chance is EqualLevelChance minus
// the level difference; beyond that it drops by PerLevelPvP (player
// target) or PerLevelPvE per level. bonus is added afterwards and the
// result clamped to [MinChance, MaxChance], with PlayerMinChance as the
// floor for player casters.
func HitChance(cfg config.HitConfig, casterLevel, targetLevel, bonus int, targetPlayer, casterPlayer bool) int {
	delta := targetLevel - casterLevel
	var chance int
	if delta < 3 {
		chance = cfg.EqualLevelChance - delta
		if chance > cfg.MaxChance {
			chance = cfg.MaxChance
		}
	} else {
		per := cfg.PerLevelPvE
		if targetPlayer {
			per = cfg.PerLevelPvP
		}
		chance = cfg.EqualLevelChance - 2 - (delta-2)*per
	}
	chance += bonus

	floor := cfg.MinChance
	if casterPlayer {
		floor = cfg.PlayerMinChance
	}
	if chance < floor {
		chance = floor
	}
	if chance > cfg.MaxChance {
		chance = cfg.MaxChance
	}
	return chance
}

// checkHit decides whether target avoids the spell. Evade and immunity
// win over the roll.
func (c *Cast) checkHit(target *world.Object) MissReason {
	tu := target.Unit()
	if tu == nil {
		return MissNone
	}
	spell := c.spell
	if tu.Evading {
		return MissEvade
	}
	if spell.AffectedByInvulnerability() || tu.Staff {
		if tu.Invulnerable {
			return MissImmuneInvulnerable
		}
		if spell.AffectedByInvulnerability() && tu.ImmuneTo(spell.Schools) {
			return MissImmune
		}
	}

	level := c.casterRef.Level
	bonus := 0
	casterPlayer := c.casterRef.Kind == world.KindPlayer
	if u := c.CasterUnit(); u != nil {
		level = u.Level
		bonus = u.HitChanceMod + u.Auras.Sum(data.ModHitChance, spell)
		casterPlayer = u.IsPlayer()
	}
	cfg := c.engine.hit
	chance := HitChance(cfg, level, tu.Level, bonus, tu.IsPlayer(), casterPlayer)
	if chance < c.engine.roll(cfg.MinChance, cfg.MaxChance) {
		return MissMiss
	}
	return MissNone
}

// resolveHits splits the targets into hit and missed. God mode, passive,
// physical and beneficial casts always hit.
func (c *Cast) resolveHits() ([]*world.Object, []MissedTarget) {
	hit := make([]*world.Object, 0, len(c.targets))
	spell := c.spell
	if c.godMode || c.passive || spell.IsPhysical() || !spell.IsHarmful() {
		return append(hit, c.targets...), nil
	}
	var missed []MissedTarget
	for _, t := range c.targets {
		if t == c.casterObj {
			hit = append(hit, t)
			continue
		}
		if r := c.checkHit(t); r != MissNone {
			missed = append(missed, MissedTarget{Target: t, Reason: r})
			continue
		}
		hit = append(hit, t)
	}
	return hit, missed
}
