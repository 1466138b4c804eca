package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/component"
	"github.com/l1jgo/spellcast/internal/config"
	"github.com/l1jgo/spellcast/internal/core/event"
	coresys "github.com/l1jgo/spellcast/internal/core/system"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/effect"
	"github.com/l1jgo/spellcast/internal/persist"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

type fakeWriter struct {
	batches [][]persist.CastLogEntry
	err     error
}

func (w *fakeWriter) WriteBatch(_ context.Context, entries []persist.CastLogEntry) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, append([]persist.CastLogEntry(nil), entries...))
	return nil
}

type pruningWriter struct {
	fakeWriter
	cutoffs []time.Time
}

func (w *pruningWriter) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	w.cutoffs = append(w.cutoffs, cutoff)
	return 3, nil
}

type stage struct {
	bus    *event.Bus
	engine *cast.Engine
	region *world.Region
	runner *coresys.Runner
	player *world.Unit
}

func newStage(t *testing.T, spells ...*data.Spell) *stage {
	t.Helper()
	w := world.New(zap.NewNop())
	st := &stage{bus: event.NewBus(), region: w.AddRegion(1, "field"), runner: coresys.NewRunner()}
	st.engine = cast.NewEngine(config.Defaults(), data.NewSpellTable(spells...), w, zap.NewNop(),
		cast.WithRoll(func(min, max int) int { return min }),
		cast.WithNotifier(cast.BusNotifier{Bus: st.bus}),
		cast.WithAITargeter(HostileTargeter{}))
	effect.RegisterAll(st.engine, nil, zap.NewNop())

	st.player = world.NewUnit(world.KindPlayer, 0, "alice", 10)
	st.player.Faction = 1
	st.region.SpawnUnit(st.player, world.Vector3{})
	return st
}

func TestCastSystemRunsTasksThenTimers(t *testing.T) {
	bolt := &data.Spell{
		ID: 1, Name: "bolt", CastDelay: 400 * time.Millisecond, Attributes: data.AttrHarmful,
		Effects: []data.Effect{{Type: effect.TypeSchoolDamage, BasePoints: 30}},
	}
	st := newStage(t, bolt)
	orc := world.NewUnit(world.KindCreature, 5, "orc", 10)
	orc.Faction = 2
	st.region.SpawnUnit(orc, world.Vector3{X: 3})
	st.runner.Register(NewCastSystem(st.engine, st.region))

	c := st.engine.CastOf(&st.player.Object)
	st.region.ExecuteInContext(func() { c.Start(bolt, false, &orc.Object) })

	st.runner.Tick(200 * time.Millisecond) // task runs, cast starts
	if c.State() != cast.StateDelayed {
		t.Fatalf("state = %s", c.State())
	}
	st.runner.Tick(200 * time.Millisecond)
	st.runner.Tick(200 * time.Millisecond)
	if orc.Health != 70 {
		t.Fatalf("orc health = %d", orc.Health)
	}
}

func TestAICastSystemTargetsNearestHostile(t *testing.T) {
	bite := &data.Spell{
		ID: 2, Name: "bite", Attributes: data.AttrHarmful, MaxRange: 20,
		Effects: []data.Effect{{Type: effect.TypeSchoolDamage, BasePoints: 10}},
	}
	st := newStage(t, bite)
	lists, err := data.ParseCreatureSpellTable([]byte(`
creatures:
  - entry: 50
    spells:
      - spell_id: 2
        chance: 100
        range: 15
`))
	if err != nil {
		t.Fatal(err)
	}
	wolf := world.NewUnit(world.KindCreature, 50, "wolf", 10)
	wolf.Faction = 2
	id := st.region.SpawnUnit(wolf, world.Vector3{X: 40})
	st.region.SetAI(id, &component.AICaster{Entry: 50, ThinkRate: time.Second})

	ai := NewAICastSystem(st.engine, st.region, lists, zap.NewNop())
	st.runner.Register(ai)
	st.runner.Register(NewCastSystem(st.engine, st.region))

	st.runner.Tick(time.Second)
	if st.player.Health != 100 {
		t.Fatal("cast on a target outside the list range")
	}

	st.region.Move(&wolf.Object, world.Vector3{X: 8})
	st.runner.Tick(500 * time.Millisecond) // still thinking
	if st.player.Health != 100 {
		t.Fatal("cast before think time elapsed")
	}
	st.runner.Tick(500 * time.Millisecond)
	if st.player.Health != 90 {
		t.Fatalf("player health = %d", st.player.Health)
	}
}

func TestHostileTargeterWithoutTarget(t *testing.T) {
	bite := &data.Spell{ID: 3, Name: "bite", Attributes: data.AttrHarmful, MaxRange: 5,
		Effects: []data.Effect{{Type: effect.TypeSchoolDamage, BasePoints: 1}}}
	st := newStage(t, bite)
	wolf := world.NewUnit(world.KindCreature, 50, "wolf", 10)
	wolf.Faction = 2
	st.region.SpawnUnit(wolf, world.Vector3{X: 30})

	c := st.engine.CastOf(&wolf.Object)
	if r := c.Start(bite, false); r != cast.FailedNoValidTargets {
		t.Fatalf("Start = %s", r)
	}
}

func TestAuraSystemExpires(t *testing.T) {
	st := newStage(t)
	st.player.Auras.Add(&world.Aura{SpellID: 9, Mod: data.AuraMod{Kind: data.ModCastTime, Value: -50}, Remaining: time.Second})
	st.player.Auras.Add(&world.Aura{SpellID: 10, Mod: data.AuraMod{Kind: data.ModHitChance, Value: 5}, Permanent: true})
	st.runner.Register(NewAuraSystem(st.region))

	st.runner.Tick(600 * time.Millisecond)
	if st.player.Auras.Len() != 2 {
		t.Fatal("aura expired early")
	}
	st.runner.Tick(600 * time.Millisecond)
	if st.player.Auras.Has(9) || !st.player.Auras.Has(10) {
		t.Fatal("wrong aura expired")
	}
}

func TestJournalFlushesOnInterval(t *testing.T) {
	st := newStage(t)
	w := &fakeWriter{}
	j := NewJournalSystem(st.bus, w, 2, zap.NewNop())
	st.runner.Register(NewEventDispatchSystem(st.bus))
	st.runner.Register(j)

	event.Emit(st.bus, event.SpellWent{CasterID: st.player.ID, Caster: "alice", SpellID: 4, Missed: []event.MissInfo{{Reason: "miss"}}})
	event.Emit(st.bus, event.CastFailed{CasterID: st.player.ID, Caster: "alice", SpellID: 5, Reason: "interrupted"})

	st.runner.Tick(time.Millisecond) // dispatch, interval 1/2
	if len(w.batches) != 0 || j.Pending() != 2 {
		t.Fatalf("batches=%d pending=%d", len(w.batches), j.Pending())
	}
	st.runner.Tick(time.Millisecond)
	if len(w.batches) != 1 || len(w.batches[0]) != 2 {
		t.Fatalf("batches = %v", w.batches)
	}
	went, failed := w.batches[0][0], w.batches[0][1]
	if went.Outcome != persist.OutcomeWent {
		// the bus delivers event types in no particular order
		went, failed = failed, went
	}
	if went.Outcome != persist.OutcomeWent || went.Misses != 1 || went.At.IsZero() {
		t.Fatalf("went = %+v", went)
	}
	if failed.Outcome != persist.OutcomeFailed || failed.Reason != "interrupted" {
		t.Fatalf("failed = %+v", failed)
	}
}

func TestJournalKeepsEntriesOnError(t *testing.T) {
	st := newStage(t)
	w := &fakeWriter{err: errors.New("db down")}
	j := NewJournalSystem(st.bus, w, 1, zap.NewNop())

	event.Emit(st.bus, event.CastFailed{SpellID: 5, Reason: "silenced"})
	NewEventDispatchSystem(st.bus).Update(0)
	j.Update(0)
	if j.Pending() != 1 {
		t.Fatalf("pending = %d", j.Pending())
	}
	w.err = nil
	j.Flush()
	if j.Pending() != 0 || len(w.batches) != 1 {
		t.Fatal("retry did not write")
	}
}

func TestJournalPrunesHourly(t *testing.T) {
	st := newStage(t)
	w := &pruningWriter{}
	j := NewJournalSystem(st.bus, w, 1, zap.NewNop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	flush := func() {
		j.add(persist.CastLogEntry{SpellID: 1, Outcome: persist.OutcomeWent})
		j.Flush()
	}
	flush()
	if len(w.cutoffs) != 0 {
		t.Fatal("pruned without retention")
	}

	j.SetRetention(48 * time.Hour)
	flush()
	if len(w.cutoffs) != 1 || !w.cutoffs[0].Equal(now.Add(-48*time.Hour)) {
		t.Fatalf("cutoffs = %v", w.cutoffs)
	}
	now = now.Add(30 * time.Minute)
	flush()
	if len(w.cutoffs) != 1 {
		t.Fatal("pruned again within the hour")
	}
	now = now.Add(time.Hour)
	flush()
	if len(w.cutoffs) != 2 {
		t.Fatalf("cutoffs = %v", w.cutoffs)
	}
}

func TestCleanupRecyclesRemoved(t *testing.T) {
	st := newStage(t)
	orc := world.NewUnit(world.KindCreature, 5, "orc", 10)
	st.region.SpawnUnit(orc, world.Vector3{X: 1})
	st.region.Remove(&orc.Object)
	if st.region.FindObject(orc.ID) != nil {
		t.Fatal("removed object still resolvable")
	}
	NewCleanupSystem(st.region).Update(0)
	if n := st.region.FlushDestroyed(); n != 0 {
		t.Fatalf("destroy queue not flushed: %d", n)
	}
}
