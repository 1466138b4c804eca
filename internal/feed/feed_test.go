package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/core/event"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/persist"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	spells := data.NewSpellTable(&data.Spell{ID: 5, Name: "fireball", CastDelay: 2 * time.Second, Attributes: data.AttrHarmful})
	s := NewServer("", hub, spells, func() Health { return Health{Sessions: 3, CastsLive: 2} }, zap.NewNop())
	srv := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeedStreamsBusEvents(t *testing.T) {
	hub, srv := newTestServer(t)
	bus := event.NewBus()
	hub.Attach(bus)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}
	waitFor(t, func() bool { return hub.Count() == 1 })

	event.Emit(bus, event.SpellWent{
		CasterID: ecs.EntityID(7), Caster: "alice", SpellID: 5, Region: 1,
		Hit:    []ecs.EntityID{9},
		Missed: []event.MissInfo{{TargetID: 10, Reason: "evade"}},
	})
	bus.SwapBuffers()
	bus.DispatchAll()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "spell_went" || m.CasterID != 7 || m.SpellID != 5 || m.At == 0 {
		t.Fatalf("message = %+v", m)
	}
	if len(m.Hit) != 1 || m.Hit[0] != 9 || len(m.Missed) != 1 || m.Missed[0].Reason != "evade" {
		t.Fatalf("targets = %+v / %+v", m.Hit, m.Missed)
	}
}

func TestFeedMsgpackFormat(t *testing.T) {
	hub, srv := newTestServer(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"

	if _, resp, err := websocket.DefaultDialer.Dial(base+"?format=xml", nil); err == nil {
		t.Fatal("unknown format should be refused")
	} else if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format: resp = %v", resp)
	}

	bin, resp, err := websocket.DefaultDialer.Dial(base+"?format=msgpack", nil)
	if err != nil {
		t.Fatalf("dial msgpack: %v", err)
	}
	defer bin.Close()
	if resp != nil {
		resp.Body.Close()
	}
	text, resp, err := websocket.DefaultDialer.Dial(base, nil)
	if err != nil {
		t.Fatalf("dial json: %v", err)
	}
	defer text.Close()
	if resp != nil {
		resp.Body.Close()
	}
	waitFor(t, func() bool { return hub.Count() == 2 })

	hub.Broadcast(Message{Type: "cast_delayed", CasterID: 3, SpellID: 5, DelayMs: 500})

	bin.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, payload, err := bin.ReadMessage()
	if err != nil {
		t.Fatalf("read msgpack: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("msgpack frame kind = %d", kind)
	}
	var m Message
	if err := msgpack.Unmarshal(payload, &m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "cast_delayed" || m.CasterID != 3 || m.DelayMs != 500 {
		t.Fatalf("msgpack message = %+v", m)
	}

	text.SetReadDeadline(time.Now().Add(2 * time.Second))
	if kind, _, err := text.ReadMessage(); err != nil || kind != websocket.TextMessage {
		t.Fatalf("json frame kind = %d, err = %v", kind, err)
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	hub, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}
	waitFor(t, func() bool { return hub.Count() == 1 })

	// never read; the write pump drains some, the buffer eventually overflows
	big := Message{Type: "cast_failed", Reason: strings.Repeat("x", 64<<10)}
	for i := 0; i < 10*clientBuffer && hub.Count() > 0; i++ {
		hub.Broadcast(big)
	}
	waitFor(t, func() bool { return hub.Count() == 0 })
}

func TestHealthAndSpellLookup(t *testing.T) {
	_, srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var h Health
	json.NewDecoder(res.Body).Decode(&h)
	res.Body.Close()
	if h.Status != "ok" || h.Sessions != 3 || h.CastsLive != 2 {
		t.Fatalf("health = %+v", h)
	}

	res, err = http.Get(srv.URL + "/spells/5")
	if err != nil {
		t.Fatal(err)
	}
	var sp spellJSON
	json.NewDecoder(res.Body).Decode(&sp)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || sp.Name != "fireball" || sp.CastTimeMs != 2000 || !sp.Harmful {
		t.Fatalf("spell = %d %+v", res.StatusCode, sp)
	}

	res, err = http.Get(srv.URL + "/spells/404")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing spell status = %d", res.StatusCode)
	}
}

type fakeJournal struct {
	spell uint32
	limit int
}

func (j *fakeJournal) Recent(_ context.Context, spellID uint32, limit int) ([]persist.CastLogEntry, error) {
	j.spell, j.limit = spellID, limit
	return []persist.CastLogEntry{
		{At: time.UnixMilli(1500), CasterID: 7, Caster: "alice", SpellID: spellID, Outcome: persist.OutcomeWent, Hits: 2},
		{At: time.UnixMilli(1000), CasterID: 7, Caster: "alice", SpellID: spellID, Outcome: persist.OutcomeFailed, Reason: "interrupted"},
	}, nil
}

func TestSpellCastsFromJournal(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s := NewServer("", hub, data.NewSpellTable(), nil, zap.NewNop())
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/spells/5/casts")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("journal off: status = %d", res.StatusCode)
	}

	j := &fakeJournal{}
	s.SetJournal(j)

	res, err = http.Get(srv.URL + "/spells/5/casts?limit=5000")
	if err != nil {
		t.Fatal(err)
	}
	var casts []castJSON
	json.NewDecoder(res.Body).Decode(&casts)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || len(casts) != 2 {
		t.Fatalf("status = %d casts = %+v", res.StatusCode, casts)
	}
	if j.spell != 5 || j.limit != maxJournalLimit {
		t.Fatalf("query spell=%d limit=%d", j.spell, j.limit)
	}
	if casts[0].At != 1500 || casts[0].Hits != 2 || casts[1].Reason != "interrupted" {
		t.Fatalf("casts = %+v", casts)
	}

	res, err = http.Get(srv.URL + "/spells/5/casts?limit=-1")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: status = %d", res.StatusCode)
	}
}
