package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/core/event"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// 每個訂閱者的待送佇列長度；塞滿即斷線
const clientBuffer = 64

// Message is one feed frame. Text subscribers get JSON, binary
// subscribers (?format=msgpack) get MessagePack with the same keys.
type Message struct {
	Type        string     `json:"type" msgpack:"type"`
	At          int64      `json:"at" msgpack:"at"` // unix millis
	Region      uint32     `json:"region,omitempty" msgpack:"region,omitempty"`
	CasterID    uint64     `json:"caster_id" msgpack:"caster_id"`
	Caster      string     `json:"caster,omitempty" msgpack:"caster,omitempty"`
	SpellID     uint32     `json:"spell_id" msgpack:"spell_id"`
	Reason      string     `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Hit         []uint64   `json:"hit,omitempty" msgpack:"hit,omitempty"`
	Missed      []MissJSON `json:"missed,omitempty" msgpack:"missed,omitempty"`
	CastTimeMs  int64      `json:"cast_time_ms,omitempty" msgpack:"cast_time_ms,omitempty"`
	DelayMs     int64      `json:"delay_ms,omitempty" msgpack:"delay_ms,omitempty"`
	RemainingMs int64      `json:"remaining_ms,omitempty" msgpack:"remaining_ms,omitempty"`
}

type MissJSON struct {
	Target uint64 `json:"target" msgpack:"target"`
	Reason string `json:"reason" msgpack:"reason"`
}

// Frame encodings.
const (
	formatJSON = iota
	formatMsgpack
	formatCount
)

type client struct {
	conn   *websocket.Conn
	format int
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans cast events out to websocket subscribers. Broadcast never
// blocks the game loop: slow subscribers are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	now     func() time.Time
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), now: time.Now, log: log}
}

// Attach subscribes the hub to the cast events of bus.
func (h *Hub) Attach(bus *event.Bus) {
	event.Subscribe(bus, func(e event.CastStarted) {
		h.Broadcast(Message{
			Type: "cast_started", Region: e.Region, CasterID: uint64(e.CasterID), Caster: e.Caster,
			SpellID: e.SpellID, CastTimeMs: e.CastTime.Milliseconds(),
		})
	})
	event.Subscribe(bus, func(e event.CastFailed) {
		h.Broadcast(Message{
			Type: "cast_failed", Region: e.Region, CasterID: uint64(e.CasterID), Caster: e.Caster,
			SpellID: e.SpellID, Reason: e.Reason,
		})
	})
	event.Subscribe(bus, func(e event.SpellWent) {
		m := Message{
			Type: "spell_went", Region: e.Region, CasterID: uint64(e.CasterID), Caster: e.Caster,
			SpellID: e.SpellID, Hit: ids(e.Hit),
		}
		for _, miss := range e.Missed {
			m.Missed = append(m.Missed, MissJSON{Target: uint64(miss.TargetID), Reason: miss.Reason})
		}
		h.Broadcast(m)
	})
	event.Subscribe(bus, func(e event.CastDelayed) {
		h.Broadcast(Message{Type: "cast_delayed", CasterID: uint64(e.CasterID), SpellID: e.SpellID, DelayMs: e.Delay.Milliseconds()})
	})
	event.Subscribe(bus, func(e event.ChannelUpdated) {
		h.Broadcast(Message{Type: "channel_updated", CasterID: uint64(e.CasterID), SpellID: e.SpellID, RemainingMs: e.Remaining.Milliseconds()})
	})
}

func ids(list []ecs.EntityID) []uint64 {
	if len(list) == 0 {
		return nil
	}
	out := make([]uint64, len(list))
	for i, id := range list {
		out[i] = uint64(id)
	}
	return out
}

func encode(m *Message, format int) ([]byte, error) {
	if format == formatMsgpack {
		return msgpack.Marshal(m)
	}
	return json.Marshal(m)
}

// Broadcast encodes m at most once per format in use and queues it for
// every subscriber.
func (h *Hub) Broadcast(m Message) {
	if m.At == 0 {
		m.At = h.now().UnixMilli()
	}

	var frames [formatCount][]byte
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		data := frames[c.format]
		if data == nil {
			var err error
			if data, err = encode(&m, c.format); err != nil {
				h.log.Warn("feed 編碼失敗", zap.Error(err))
				continue
			}
			frames[c.format] = data
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("feed 訂閱者過慢，斷開", zap.String("remote", c.conn.RemoteAddr().String()))
		h.remove(c)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn, format int) *client {
	c := &client{conn: conn, format: format, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for _, c := range list {
		c.close()
	}
}
