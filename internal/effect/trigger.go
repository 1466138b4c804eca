package effect

import (
	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// TriggerSpell casts another spell on the same targets.
type TriggerSpell struct {
	eff   *data.Effect
	spell *data.Spell
}

func (h *TriggerSpell) Init(c *cast.Cast) cast.FailedReason {
	h.spell = c.Engine().Spells().Get(h.eff.TriggerSpell)
	if h.spell == nil {
		c.Engine().Log().Warn("觸發法術不存在",
			zap.Uint32("spell", c.Spell().ID), zap.Uint32("trigger", h.eff.TriggerSpell))
		return cast.FailedError
	}
	return cast.FailedOk
}

func (h *TriggerSpell) Apply(c *cast.Cast, targets []*world.Object) {
	if len(targets) == 0 && !h.spell.IsArea() {
		return
	}
	c.TriggerWith(h.spell, h.eff, c.TriggerAction(), targets...)
}

func (h *TriggerSpell) Cleanup() { h.spell = nil }

// Dummy does nothing; spells use it to carry script hooks only.
type Dummy struct{}

func (Dummy) Apply(*cast.Cast, []*world.Object) {}
func (Dummy) Cleanup()                          {}
