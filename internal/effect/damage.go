package effect

import (
	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
)

// SchoolDamage deals BasePoints damage once on apply and again on every
// channel tick. Damaged units get their own casts pushed back.
type SchoolDamage struct {
	eff     *data.Effect
	targets []*world.Object
	dealt   int
}

func (h *SchoolDamage) Apply(c *cast.Cast, targets []*world.Object) {
	h.targets = append(h.targets[:0], targets...)
	if c.Spell().IsChanneled() {
		return
	}
	h.hit(c)
}

func (h *SchoolDamage) OnChannelTick(c *cast.Cast, _ int) {
	h.hit(c)
}

func (h *SchoolDamage) hit(c *cast.Cast) {
	for _, u := range units(h.targets) {
		n := u.TakeDamage(h.eff.BasePoints)
		h.dealt += n
		c.Engine().OnDamage(u, n)
	}
}

// Dealt is the total damage done so far.
func (h *SchoolDamage) Dealt() int { return h.dealt }

func (h *SchoolDamage) Cleanup() {
	clear(h.targets)
	h.targets = nil
}

// Heal restores BasePoints health, per apply or per channel tick.
type Heal struct {
	eff     *data.Effect
	targets []*world.Object
}

func (h *Heal) Apply(c *cast.Cast, targets []*world.Object) {
	h.targets = append(h.targets[:0], targets...)
	if c.Spell().IsChanneled() {
		return
	}
	h.heal()
}

func (h *Heal) OnChannelTick(*cast.Cast, int) { h.heal() }

func (h *Heal) heal() {
	for _, u := range units(h.targets) {
		u.Heal(h.eff.BasePoints)
	}
}

func (h *Heal) Cleanup() {
	clear(h.targets)
	h.targets = nil
}
