package system

import (
	"time"

	"github.com/l1jgo/spellcast/internal/cast"
	coresys "github.com/l1jgo/spellcast/internal/core/system"
	"github.com/l1jgo/spellcast/internal/world"
)

// CastSystem runs one region's queued work and then advances its ticking
// casts (delays, channels). Phase 2 (Update).
type CastSystem struct {
	region *world.Region
	ctx    *cast.Context
}

func NewCastSystem(engine *cast.Engine, region *world.Region) *CastSystem {
	return &CastSystem{region: region, ctx: engine.Context(region)}
}

func (s *CastSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CastSystem) Update(dt time.Duration) {
	s.region.Tasks().Run()
	s.ctx.Update(dt)
}

// AuraSystem counts down timed auras on every unit of a region.
// Phase 2 (Update).
type AuraSystem struct {
	region *world.Region
}

func NewAuraSystem(region *world.Region) *AuraSystem {
	return &AuraSystem{region: region}
}

func (s *AuraSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AuraSystem) Update(dt time.Duration) {
	s.region.EachUnit(func(u *world.Unit) {
		u.Auras.Update(dt)
	})
}
