package effect

import (
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/config"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

type scriptCall struct {
	fn      string
	targets int
}

type fakeRunner struct {
	calls []scriptCall
	err   error
}

func (r *fakeRunner) RunEffect(fn string, _ *cast.Cast, targets []*world.Object) error {
	r.calls = append(r.calls, scriptCall{fn, len(targets)})
	return r.err
}

type env struct {
	engine *cast.Engine
	region *world.Region
	ctx    *cast.Context
	caster *world.Unit
	victim *world.Unit
	runner *fakeRunner
}

func newEnv(t *testing.T, spells ...*data.Spell) *env {
	t.Helper()
	w := world.New(zap.NewNop())
	r := w.AddRegion(1, "test")
	e := cast.NewEngine(config.Defaults(), data.NewSpellTable(spells...), w, zap.NewNop(),
		cast.WithRoll(func(min, max int) int { return min }))
	runner := &fakeRunner{}
	RegisterAll(e, runner, zap.NewNop())

	caster := world.NewUnit(world.KindPlayer, 0, "mage", 20)
	caster.Faction = 1
	r.SpawnUnit(caster, world.Vector3{})
	victim := world.NewUnit(world.KindCreature, 10, "orc", 20)
	victim.Faction = 2
	r.SpawnUnit(victim, world.Vector3{X: 5})
	return &env{engine: e, region: r, ctx: e.Context(r), caster: caster, victim: victim, runner: runner}
}

func (v *env) cast(spell *data.Spell, targets ...*world.Object) cast.FailedReason {
	return v.ctx.CastOf(&v.caster.Object).Start(spell, false, targets...)
}

func TestSchoolDamagePushesBackVictim(t *testing.T) {
	bolt := &data.Spell{ID: 1, Attributes: data.AttrHarmful, Schools: data.SchoolFire,
		Effects: []data.Effect{{Type: TypeSchoolDamage, BasePoints: 30}}}
	heavy := &data.Spell{ID: 2, CastDelay: 2 * time.Second, Attributes: data.AttrHarmful,
		Effects: []data.Effect{{Type: TypeDummy}}}
	v := newEnv(t, bolt, heavy)

	enemyCast := v.ctx.CastOf(&v.victim.Object)
	if r := enemyCast.Start(heavy, false, &v.caster.Object); r != cast.FailedOk {
		t.Fatalf("victim cast = %s", r)
	}
	if r := v.cast(bolt, &v.victim.Object); r != cast.FailedOk {
		t.Fatalf("bolt = %s", r)
	}
	if v.victim.Health != 70 {
		t.Fatalf("victim health = %d", v.victim.Health)
	}
	if enemyCast.Pushbacks() != 1 || enemyCast.RemainingCastTime() != 2500*time.Millisecond {
		t.Fatalf("victim cast not pushed back: %d %v", enemyCast.Pushbacks(), enemyCast.RemainingCastTime())
	}
}

func TestChanneledDamageTicks(t *testing.T) {
	drain := &data.Spell{ID: 3, Attributes: data.AttrHarmful | data.AttrChanneled,
		ChannelDuration: 3 * time.Second, ChannelAmplitude: time.Second,
		Effects: []data.Effect{{Type: TypeSchoolDamage, BasePoints: 10}}}
	v := newEnv(t, drain)
	v.cast(drain, &v.victim.Object)
	if v.victim.Health != 100 {
		t.Fatal("channel damaged on apply")
	}
	for i := 0; i < 3; i++ {
		v.ctx.Update(time.Second)
	}
	if v.victim.Health != 70 {
		t.Fatalf("victim health = %d", v.victim.Health)
	}
}

func TestHeal(t *testing.T) {
	mend := &data.Spell{ID: 4, Effects: []data.Effect{{Type: TypeHeal, BasePoints: 25}}}
	v := newEnv(t, mend)
	v.caster.Health = 50
	v.cast(mend)
	if v.caster.Health != 75 {
		t.Fatalf("health = %d", v.caster.Health)
	}
}

func TestApplyAura(t *testing.T) {
	haste := &data.Spell{ID: 5, Effects: []data.Effect{{Type: TypeApplyAura,
		Aura: &data.AuraMod{Kind: data.ModCastTime, Value: -50, Duration: 10 * time.Second}}}}
	broken := &data.Spell{ID: 6, Effects: []data.Effect{{Type: TypeApplyAura}}}
	v := newEnv(t, haste, broken)

	if r := v.cast(haste); r != cast.FailedOk {
		t.Fatalf("haste = %s", r)
	}
	if !v.caster.Auras.Has(5) {
		t.Fatal("aura missing")
	}
	if got := v.caster.Auras.GetModifiedValue(data.ModCastTime, nil, 2000); got != 1000 {
		t.Fatalf("modified cast time = %d", got)
	}
	if r := v.cast(broken); r != cast.FailedError {
		t.Fatalf("aura without modifier = %s", r)
	}
}

func TestChannelAuraRemovedOnClose(t *testing.T) {
	shield := &data.Spell{ID: 7, Attributes: data.AttrChanneled, ChannelDuration: 2 * time.Second,
		Effects: []data.Effect{{Type: TypeApplyAura, Aura: &data.AuraMod{Kind: data.ModPushbackReduction, Value: 100}}}}
	v := newEnv(t, shield)
	v.cast(shield)
	if !v.caster.Auras.Has(7) {
		t.Fatal("aura missing while channeling")
	}
	v.ctx.Update(2 * time.Second)
	if v.caster.Auras.Has(7) {
		t.Fatal("aura survived the channel")
	}
}

func TestTriggerSpell(t *testing.T) {
	follow := &data.Spell{ID: 9, Attributes: data.AttrHarmful,
		Effects: []data.Effect{{Type: TypeSchoolDamage, BasePoints: 5}}}
	opener := &data.Spell{ID: 8, Attributes: data.AttrHarmful,
		Effects: []data.Effect{{Type: TypeTriggerSpell, TriggerSpell: 9}}}
	missing := &data.Spell{ID: 10, Effects: []data.Effect{{Type: TypeTriggerSpell, TriggerSpell: 404}}}
	v := newEnv(t, follow, opener, missing)

	if r := v.cast(opener, &v.victim.Object); r != cast.FailedOk {
		t.Fatalf("opener = %s", r)
	}
	if v.victim.Health != 100 {
		t.Fatal("triggered spell ran inline")
	}
	v.region.Tasks().Run()
	if v.victim.Health != 95 {
		t.Fatalf("victim health = %d", v.victim.Health)
	}
	if r := v.cast(missing); r != cast.FailedError {
		t.Fatalf("missing trigger = %s", r)
	}
}

func TestScriptEffect(t *testing.T) {
	spell := &data.Spell{ID: 11, Effects: []data.Effect{{Type: TypeScript, Script: "blink"}}}
	v := newEnv(t, spell)
	v.runner.err = errors.New("boom")
	if r := v.cast(spell); r != cast.FailedOk {
		t.Fatalf("cast = %s", r)
	}
	if len(v.runner.calls) != 1 || v.runner.calls[0] != (scriptCall{"blink", 1}) {
		t.Fatalf("calls = %v", v.runner.calls)
	}
}
