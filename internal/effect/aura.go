package effect

import (
	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
)

// ApplyAura puts the effect's modifier on every target. Auras of channeled
// spells last while the channel is open and are taken off on cleanup.
type ApplyAura struct {
	eff      *data.Effect
	spellID  uint32
	channel  bool
	affected []*world.Unit
}

func (h *ApplyAura) Init(c *cast.Cast) cast.FailedReason {
	if h.eff.Aura == nil {
		return cast.FailedError
	}
	h.spellID = c.Spell().ID
	h.channel = c.Spell().IsChanneled()
	return cast.FailedOk
}

func (h *ApplyAura) Apply(c *cast.Cast, targets []*world.Object) {
	mod := *h.eff.Aura
	for _, u := range units(targets) {
		u.Auras.Add(&world.Aura{
			SpellID:   h.spellID,
			CasterID:  c.CasterRef().ID,
			Mod:       mod,
			Remaining: mod.Duration,
			Permanent: mod.Duration == 0 || h.channel,
		})
		if h.channel {
			h.affected = append(h.affected, u)
		}
	}
}

func (h *ApplyAura) Cleanup() {
	for _, u := range h.affected {
		u.Auras.Remove(h.spellID)
	}
	clear(h.affected)
	h.affected = nil
}
