package system

import (
	"math/rand"
	"time"

	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/component"
	coresys "github.com/l1jgo/spellcast/internal/core/system"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// AICastSystem lets AI-controlled creatures of a region cast from their
// creature spell list. Targets are picked by the engine's AITargeter.
// Phase 2 (Update), registered before CastSystem.
type AICastSystem struct {
	region *world.Region
	engine *cast.Engine
	spells *data.SpellTable
	lists  *data.CreatureSpellTable
	chance func() int // 0-99
	log    *zap.Logger
}

func NewAICastSystem(engine *cast.Engine, region *world.Region, lists *data.CreatureSpellTable, log *zap.Logger) *AICastSystem {
	return &AICastSystem{
		region: region,
		engine: engine,
		spells: engine.Spells(),
		lists:  lists,
		chance: func() int { return rand.Intn(100) },
		log:    log,
	}
}

func (s *AICastSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AICastSystem) Update(dt time.Duration) {
	ctx := s.engine.Context(s.region)
	s.region.EachAI(func(u *world.Unit, ai *component.AICaster) {
		if !u.Alive() {
			return
		}
		ai.ThinkIn -= dt
		if ai.ThinkIn > 0 {
			return
		}
		ai.ThinkIn = ai.ThinkRate
		if c, ok := ctx.Owned(&u.Object); ok && c.IsCasting() {
			return
		}
		s.think(ctx, u, ai)
	})
}

func (s *AICastSystem) think(ctx *cast.Context, u *world.Unit, ai *component.AICaster) {
	for _, cs := range s.lists.Get(ai.Entry) {
		if cs.HealthBelow > 0 && u.MaxHealth > 0 && u.Health*100/u.MaxHealth >= cs.HealthBelow {
			continue
		}
		if cs.Chance < 100 && s.chance() >= cs.Chance {
			continue
		}
		spell := s.spells.Get(cs.SpellID)
		if spell == nil {
			continue
		}
		if cs.Range > 0 && spell.IsHarmful() && NearestHostile(u, cs.Range) == nil {
			continue
		}
		c := ctx.CastOf(&u.Object)
		if c == nil {
			return
		}
		r := c.Start(spell, false)
		if r == cast.FailedOk {
			return
		}
		s.log.Debug("AI 施法失敗",
			zap.String("caster", u.Name),
			zap.Uint32("spell", spell.ID),
			zap.String("reason", r.String()),
		)
	}
}

// HostileTargeter picks the nearest visible hostile unit for harmful spells
// and the caster itself otherwise.
type HostileTargeter struct{}

func (HostileTargeter) SelectTargets(c *cast.Cast) ([]*world.Object, cast.FailedReason) {
	u := c.CasterUnit()
	if u == nil {
		return nil, cast.FailedNoValidTargets
	}
	spell := c.Spell()
	if !spell.IsHarmful() {
		return []*world.Object{&u.Object}, cast.FailedOk
	}
	rng := spell.MaxRange
	if rng <= 0 {
		rng = u.Region().VisibilityRange
	}
	if t := NearestHostile(u, rng); t != nil {
		return []*world.Object{&t.Object}, cast.FailedOk
	}
	return nil, cast.FailedNoValidTargets
}

// NearestHostile returns the closest living hostile unit u can see within
// radius, nil if none.
func NearestHostile(u *world.Unit, radius float32) *world.Unit {
	r := u.Region()
	if r == nil {
		return nil
	}
	var best *world.Unit
	var bestD float32
	for _, other := range r.UnitsInRadius(u.Position, radius, u.Phase) {
		if other == u || !u.IsHostileTo(other) || !r.CanSee(&u.Object, &other.Object) {
			continue
		}
		d := u.Position.DistanceSq(other.Position)
		if best == nil || d < bestD {
			best, bestD = other, d
		}
	}
	return best
}
