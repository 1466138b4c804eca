package cast

import (
	"testing"
	"time"

	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
)

func channelSpell(id uint32) *data.Spell {
	s := recordSpell(id)
	s.Attributes = data.AttrChanneled
	s.ChannelDuration = 3 * time.Second
	s.ChannelAmplitude = time.Second
	return s
}

func TestChannelTicksAndCloses(t *testing.T) {
	spell := channelSpell(40)
	f := newFixture(t, spell)
	c := f.playerCast()
	if r := c.Start(spell, false); r != FailedOk {
		t.Fatalf("Start = %s", r)
	}
	if c.State() != StateChanneling || !c.IsCasting() || !c.IsChanneling() {
		t.Fatalf("state = %s", c.State())
	}
	if len(f.log.applied) != 1 {
		t.Fatalf("applied = %d", len(f.log.applied))
	}

	for i := 0; i < 3; i++ {
		f.ctx.Update(time.Second)
	}
	if len(f.log.ticks) != 3 || f.log.ticks[2] != 3 {
		t.Fatalf("ticks = %v", f.log.ticks)
	}
	if c.IsCasting() || f.log.cleanups != 1 {
		t.Fatalf("casting=%v cleanups=%d", c.IsCasting(), f.log.cleanups)
	}
	n := f.notify.channels
	if len(n) != 2 || n[0] != 3*time.Second || n[1] != 0 {
		t.Fatalf("channel updates = %v", n)
	}
}

func TestChannelPushback(t *testing.T) {
	spell := channelSpell(41)
	f := newFixture(t, spell)
	c := f.playerCast()
	c.Start(spell, false)

	c.Pushback()
	if got := c.Channel().Remaining(); got != 2250*time.Millisecond {
		t.Fatalf("remaining = %v", got)
	}
	c.Pushback()
	c.Pushback()
	if got := c.Channel().Remaining(); got != 1500*time.Millisecond {
		t.Fatalf("remaining after cap = %v", got)
	}
}

func TestChannelInterruptedByNewCast(t *testing.T) {
	spell := channelSpell(42)
	instant := recordSpell(43)
	f := newFixture(t, spell, instant)
	c := f.playerCast()
	c.Start(spell, false)

	if r := c.Start(instant, false); r != FailedOk {
		t.Fatalf("Start over channel = %s", r)
	}
	if len(f.hooks.cancelled) != 1 || f.hooks.cancelled[0] != FailedInterrupted {
		t.Fatalf("cancelled = %v", f.hooks.cancelled)
	}
	if len(f.notify.fails) != 1 || f.notify.fails[0] != FailedInterrupted {
		t.Fatalf("fails = %v", f.notify.fails)
	}
	f.ctx.Update(5 * time.Second)
	if len(f.log.ticks) != 0 {
		t.Fatal("cancelled channel kept ticking")
	}
}

func TestChannelSupersededByRequest(t *testing.T) {
	spell := channelSpell(42)
	instant := recordSpell(43)
	f := newFixture(t, spell, instant)
	c := f.playerCast()
	c.Start(spell, false)

	if r := c.StartRequest(instant, Request{SpellID: 43, TargetFlags: TargetSelf}); r != FailedOk {
		t.Fatalf("request over channel = %s", r)
	}
	if len(f.hooks.cancelled) != 1 || f.hooks.cancelled[0] != FailedDontReport {
		t.Fatalf("cancelled = %v", f.hooks.cancelled)
	}
	if len(f.notify.fails) != 0 {
		t.Fatal("superseded channel reported a failure")
	}
	f.ctx.Update(5 * time.Second)
	if len(f.log.ticks) != 0 {
		t.Fatal("cancelled channel kept ticking")
	}
}

// tickTrigger casts its spell on every channel tick.
type tickTrigger struct{ spell *data.Spell }

func (tickTrigger) Apply(*Cast, []*world.Object) {}
func (tickTrigger) Cleanup()                     {}
func (h tickTrigger) OnChannelTick(c *Cast, _ int) {
	c.Trigger(h.spell)
}

func TestHiddenChildFailureCancelsRoot(t *testing.T) {
	child := &data.Spell{ID: 45, Attributes: data.AttrHiddenFromClient, Effects: []data.Effect{{Type: "fizzle"}}}
	root := &data.Spell{
		ID:               44,
		Attributes:       data.AttrChanneled,
		ChannelDuration:  3 * time.Second,
		ChannelAmplitude: time.Second,
		Effects:          []data.Effect{{Type: "tick"}},
	}
	f := newFixture(t, root, child)
	f.engine.RegisterEffect("tick", func(*Cast, *data.Effect) EffectHandler {
		return tickTrigger{spell: child}
	})
	f.engine.RegisterEffect("fizzle", func(*Cast, *data.Effect) EffectHandler {
		return &recordHandler{log: f.log, init: FailedNoValidTargets}
	})

	c := f.playerCast()
	if r := c.Start(root, false); r != FailedOk {
		t.Fatalf("Start = %s", r)
	}
	f.ctx.Update(time.Second)
	f.region.Tasks().Run()

	if c.IsCasting() {
		t.Fatal("root channel survived its failed child")
	}
	want := []FailedReason{FailedNoValidTargets, FailedNoValidTargets}
	if len(f.hooks.cancelled) != 2 || f.hooks.cancelled[0] != want[0] || f.hooks.cancelled[1] != want[1] {
		t.Fatalf("cancelled = %v", f.hooks.cancelled)
	}
	// only the root is visible to the client
	if len(f.notify.fails) != 1 || f.notify.failed[0].spell != root.ID {
		t.Fatalf("fails = %v %v", f.notify.fails, f.notify.failed)
	}
	if live, _ := f.engine.PoolStats(); live != 1 {
		t.Fatalf("leaked casts: live = %d", live)
	}
}
