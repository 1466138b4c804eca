package world

import (
	"math"
	"testing"
	"time"

	"github.com/l1jgo/spellcast/internal/data"
	"go.uber.org/zap"
)

func newTestRegion() *Region {
	return NewRegion(1, "test", zap.NewNop())
}

func TestSpawnFindRemove(t *testing.T) {
	r := newTestRegion()
	u := NewUnit(KindCreature, 100, "wolf", 10)
	id := r.SpawnUnit(u, Vector3{X: 5})

	if got := r.FindUnit(id); got != u {
		t.Fatalf("FindUnit = %v", got)
	}
	ref := u.Ref()
	if ref.Unit() != u || ref.Level != 10 {
		t.Fatal("reference does not resolve")
	}

	var removed []*Object
	r.OnRemove(func(o *Object) {
		// listeners see the object before it goes away
		if r.FindObject(o.ID) == nil {
			t.Error("object unresolvable inside remove listener")
		}
		removed = append(removed, o)
	})
	r.Remove(&u.Object)

	if len(removed) != 1 {
		t.Fatalf("listener calls = %d", len(removed))
	}
	if r.FindObject(id) != nil || ref.Object() != nil || u.InWorld() {
		t.Fatal("object still resolvable after Remove")
	}
	r.Remove(&u.Object) // second remove is a no-op
	if len(removed) != 1 {
		t.Fatal("listener ran twice")
	}

	if n := r.FlushDestroyed(); n != 1 {
		t.Fatalf("flushed %d", n)
	}
	// the recycled index carries a new generation
	other := NewUnit(KindCreature, 100, "wolf", 10)
	id2 := r.SpawnUnit(other, Vector3{})
	if id2 == id || r.FindObject(id) != nil {
		t.Fatal("stale id resolves to the new occupant")
	}
}

func TestCanSeeRespectsPhaseAndRange(t *testing.T) {
	r := newTestRegion()
	a := NewUnit(KindPlayer, 0, "a", 1)
	b := NewUnit(KindCreature, 1, "b", 1)
	r.SpawnUnit(a, Vector3{})
	r.SpawnUnit(b, Vector3{X: 10})

	if !r.CanSee(&a.Object, &b.Object) {
		t.Fatal("should see nearby unit")
	}
	b.Phase = 2
	if r.CanSee(&a.Object, &b.Object) {
		t.Fatal("different phase must hide")
	}
	b.Phase = DefaultPhase
	r.Move(&b.Object, Vector3{X: DefaultVisibilityRange + 1})
	if r.CanSee(&a.Object, &b.Object) {
		t.Fatal("out of visibility range")
	}
}

func TestUnitsInRadiusSkipsDeadAndFar(t *testing.T) {
	r := newTestRegion()
	near := NewUnit(KindCreature, 1, "near", 1)
	far := NewUnit(KindCreature, 1, "far", 1)
	dead := NewUnit(KindCreature, 1, "dead", 1)
	dead.Health = 0
	trap := NewObject(KindTrap, 9, "trap")
	r.SpawnUnit(near, Vector3{X: 3, Y: 4})
	r.SpawnUnit(far, Vector3{X: 200})
	r.SpawnUnit(dead, Vector3{X: 1})
	r.Spawn(trap, Vector3{X: 2})

	got := r.UnitsInRadius(Vector3{}, 5, DefaultPhase)
	if len(got) != 1 || got[0] != near {
		t.Fatalf("got %v", got)
	}
	if objs := r.ObjectsInRadius(Vector3{}, 5, DefaultPhase); len(objs) != 3 {
		t.Fatalf("objects = %d", len(objs))
	}
}

func TestIsInFront(t *testing.T) {
	origin := Vector3{}
	if !IsInFront(origin, 0, Vector3{X: 10}) {
		t.Error("target straight ahead")
	}
	if IsInFront(origin, 0, Vector3{X: -10}) {
		t.Error("target behind")
	}
	if !IsInFront(origin, math.Pi, Vector3{X: -10}) {
		t.Error("turned around")
	}
}

func TestAuraModifiers(t *testing.T) {
	a := NewAuras()
	haste := &data.Spell{ID: 1}
	fireball := &data.Spell{ID: 2}
	a.Add(&Aura{SpellID: 1, Mod: data.AuraMod{Kind: data.ModCastTime, Value: -50}, Permanent: true})
	a.Add(&Aura{SpellID: 3, Mod: data.AuraMod{Kind: data.ModPushbackReduction, Value: 150, InterruptFlags: data.InterruptOnCast}, Remaining: time.Second})

	if v := a.GetModifiedValue(data.ModCastTime, fireball, 2000); v != 1000 {
		t.Errorf("cast time = %d", v)
	}
	if v := a.GetModifiedValue(data.ModCastTime, haste, 2000); v != 2000 {
		t.Errorf("aura must not modify its own spell: %d", v)
	}
	if v := a.GetModifiedValue(data.ModPushbackReduction, fireball, 500); v != 0 {
		t.Errorf("reduction clamps at 100%%: %d", v)
	}

	removed := a.RemoveByInterruptFlag(data.InterruptOnCast)
	if len(removed) != 1 || a.Len() != 1 {
		t.Fatalf("removed %d, left %d", len(removed), a.Len())
	}

	a.Add(&Aura{SpellID: 4, Mod: data.AuraMod{Kind: data.ModHitChance, Value: 3}, Remaining: 100 * time.Millisecond})
	if expired := a.Update(200 * time.Millisecond); len(expired) != 1 || a.Has(4) {
		t.Fatal("timed aura did not expire")
	}
	if !a.Has(1) {
		t.Fatal("permanent aura expired")
	}
}

func TestConsumeReagentsAllOrNothing(t *testing.T) {
	inv := NewInventory()
	inv.AddItem(10, 2, "ash")
	inv.AddItem(20, 1, "pearl")

	need := []data.Reagent{{ItemID: 10, Count: 2}, {ItemID: 20, Count: 2}}
	if inv.ConsumeReagents(need) {
		t.Fatal("consumed with a missing pearl")
	}
	if inv.CountOf(10) != 2 {
		t.Fatal("partial consume")
	}
	if !inv.ConsumeReagents([]data.Reagent{{ItemID: 10, Count: 2}}) {
		t.Fatal("consume failed")
	}
	if inv.FindByItemID(10) != nil || inv.Size() != 1 {
		t.Fatal("empty stack not removed")
	}
}

func TestUnitDamageAndHeal(t *testing.T) {
	u := NewUnit(KindCreature, 1, "x", 1)
	if n := u.TakeDamage(250); n != 100 || u.Alive() {
		t.Fatalf("damage = %d alive=%v", n, u.Alive())
	}
	if u.Heal(10) != 0 {
		t.Fatal("dead units do not heal")
	}
	if u.ImmuneTo(0) {
		t.Fatal("no schools means no immunity")
	}
}
