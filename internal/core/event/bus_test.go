package event

import "testing"

func TestEventsVisibleNextTick(t *testing.T) {
	b := NewBus()
	var got []uint32
	Subscribe(b, func(e CastStarted) { got = append(got, e.SpellID) })

	Emit(b, CastStarted{SpellID: 7})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered in the tick it was emitted")
	}
	if b.Pending() != 1 {
		t.Fatalf("pending = %d", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("got %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatal("event delivered twice")
	}
}

func TestHandlersOnlySeeTheirType(t *testing.T) {
	b := NewBus()
	failed, went := 0, 0
	Subscribe(b, func(CastFailed) { failed++ })
	Subscribe(b, func(SpellWent) { went++ })

	Emit(b, SpellWent{SpellID: 1})
	Emit(b, SpellWent{SpellID: 2})
	b.SwapBuffers()
	b.DispatchAll()

	if failed != 0 || went != 2 {
		t.Fatalf("failed=%d went=%d", failed, went)
	}
}
