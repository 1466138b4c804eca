package cast

import (
	"time"

	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/core/event"
	"github.com/l1jgo/spellcast/internal/world"
)

// Notifier receives client-visible cast notifications. Calls are
// fire-and-forget; nothing returned is consumed by the cast.
type Notifier interface {
	CastStart(c *Cast)
	CastFailed(c *Cast, reason FailedReason)
	SpellGo(c *Cast, hit []*world.Object, missed []MissedTarget)
	CastDelayed(c *Cast, delay time.Duration)
	ChannelUpdate(c *Cast, remaining time.Duration)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) CastStart(*Cast)                                {}
func (NopNotifier) CastFailed(*Cast, FailedReason)                 {}
func (NopNotifier) SpellGo(*Cast, []*world.Object, []MissedTarget) {}
func (NopNotifier) CastDelayed(*Cast, time.Duration)               {}
func (NopNotifier) ChannelUpdate(*Cast, time.Duration)             {}

// Notifiers fans every notification out in order.
type Notifiers []Notifier

func (ns Notifiers) CastStart(c *Cast) {
	for _, n := range ns {
		n.CastStart(c)
	}
}

func (ns Notifiers) CastFailed(c *Cast, reason FailedReason) {
	for _, n := range ns {
		n.CastFailed(c, reason)
	}
}

func (ns Notifiers) SpellGo(c *Cast, hit []*world.Object, missed []MissedTarget) {
	for _, n := range ns {
		n.SpellGo(c, hit, missed)
	}
}

func (ns Notifiers) CastDelayed(c *Cast, delay time.Duration) {
	for _, n := range ns {
		n.CastDelayed(c, delay)
	}
}

func (ns Notifiers) ChannelUpdate(c *Cast, remaining time.Duration) {
	for _, n := range ns {
		n.ChannelUpdate(c, remaining)
	}
}

// BusNotifier turns notifications into events on the bus, read next tick by
// the journal and the GM feed.
type BusNotifier struct {
	Bus *event.Bus
}

func (b BusNotifier) CastStart(c *Cast) {
	event.Emit(b.Bus, event.CastStarted{
		CasterID: c.casterRef.ID,
		Caster:   c.casterRef.Name,
		SpellID:  c.spell.ID,
		Region:   c.regionID(),
		CastTime: c.castDelay,
	})
}

func (b BusNotifier) CastFailed(c *Cast, reason FailedReason) {
	event.Emit(b.Bus, event.CastFailed{
		CasterID: c.casterRef.ID,
		Caster:   c.casterRef.Name,
		SpellID:  c.spell.ID,
		Region:   c.regionID(),
		Reason:   reason.String(),
	})
}

func (b BusNotifier) SpellGo(c *Cast, hit []*world.Object, missed []MissedTarget) {
	ev := event.SpellWent{
		CasterID: c.casterRef.ID,
		Caster:   c.casterRef.Name,
		SpellID:  c.spell.ID,
		Region:   c.regionID(),
	}
	if len(hit) > 0 {
		ev.Hit = make([]ecs.EntityID, len(hit))
		for i, t := range hit {
			ev.Hit[i] = t.ID
		}
	}
	for _, m := range missed {
		ev.Missed = append(ev.Missed, event.MissInfo{TargetID: m.Target.ID, Reason: m.Reason.String()})
	}
	event.Emit(b.Bus, ev)
}

func (b BusNotifier) CastDelayed(c *Cast, delay time.Duration) {
	event.Emit(b.Bus, event.CastDelayed{CasterID: c.casterRef.ID, SpellID: c.spell.ID, Delay: delay})
}

func (b BusNotifier) ChannelUpdate(c *Cast, remaining time.Duration) {
	event.Emit(b.Bus, event.ChannelUpdated{CasterID: c.casterRef.ID, SpellID: c.spell.ID, Remaining: remaining})
}
