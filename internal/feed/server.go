package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/persist"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Health is the /healthz body.
type Health struct {
	Status      string `json:"status"`
	UptimeSec   int64  `json:"uptime_sec"`
	Sessions    int    `json:"sessions"`
	Subscribers int    `json:"subscribers"`
	CastsLive   int    `json:"casts_live"`
	CastsIdle   int    `json:"casts_idle"`
	Spells      int    `json:"spells"`
}

// StatsFunc fills the process-specific part of Health.
type StatsFunc func() Health

// JournalReader reads back the cast journal; persist.CastLogRepo
// implements it.
type JournalReader interface {
	Recent(ctx context.Context, spellID uint32, limit int) ([]persist.CastLogEntry, error)
}

const (
	defaultJournalLimit = 20
	maxJournalLimit     = 200
)

// Server is the GM HTTP surface: the cast feed and read-only lookups.
type Server struct {
	hub      *Hub
	spells   *data.SpellTable
	stats    StatsFunc
	journal  JournalReader
	upgrader websocket.Upgrader
	http     *http.Server
	log      *zap.Logger
}

func NewServer(addr string, hub *Hub, spells *data.SpellTable, stats StatsFunc, log *zap.Logger) *Server {
	s := &Server{
		hub:    hub,
		spells: spells,
		stats:  stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/feed", s.handleFeed).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/spells/{id:[0-9]+}", s.handleSpell).Methods(http.MethodGet)
	r.HandleFunc("/spells/{id:[0-9]+}/casts", s.handleSpellCasts).Methods(http.MethodGet)
	return r
}

// SetJournal enables /spells/{id}/casts. Call before ListenAndServe.
func (s *Server) SetJournal(j JournalReader) {
	s.journal = j
}

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("GM feed 監聽中", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	format := formatJSON
	switch r.URL.Query().Get("format") {
	case "", "json":
	case "msgpack":
		format = formatMsgpack
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("feed upgrade 失敗", zap.Error(err))
		return
	}
	c := s.hub.add(conn, format)
	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client frames; it exists to observe close and pong.
func (s *Server) readPump(c *client) {
	defer s.hub.remove(c)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			kind := websocket.TextMessage
			if c.format == formatMsgpack {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := Health{}
	if s.stats != nil {
		h = s.stats()
	}
	h.Status = "ok"
	h.Subscribers = s.hub.Count()
	writeJSON(w, http.StatusOK, h)
}

type spellJSON struct {
	ID         uint32  `json:"id"`
	Name       string  `json:"name"`
	CastTimeMs int64   `json:"cast_time_ms"`
	ChannelMs  int64   `json:"channel_ms,omitempty"`
	Harmful    bool    `json:"harmful"`
	Channeled  bool    `json:"channeled"`
	MinRange   float32 `json:"min_range,omitempty"`
	MaxRange   float32 `json:"max_range,omitempty"`
	PowerCost  int     `json:"power_cost,omitempty"`
	Effects    int     `json:"effects"`
	Script     string  `json:"script,omitempty"`
}

func (s *Server) handleSpell(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		http.Error(w, "bad spell id", http.StatusBadRequest)
		return
	}
	sp := s.spells.Get(uint32(id))
	if sp == nil {
		http.Error(w, "spell not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, spellJSON{
		ID:         sp.ID,
		Name:       sp.Name,
		CastTimeMs: sp.CastDelay.Milliseconds(),
		ChannelMs:  sp.ChannelDuration.Milliseconds(),
		Harmful:    sp.IsHarmful(),
		Channeled:  sp.IsChanneled(),
		MinRange:   sp.MinRange,
		MaxRange:   sp.MaxRange,
		PowerCost:  sp.PowerCost,
		Effects:    len(sp.Effects),
		Script:     sp.Script,
	})
}

type castJSON struct {
	At       int64  `json:"at"`
	Region   uint32 `json:"region"`
	CasterID uint64 `json:"caster_id"`
	Caster   string `json:"caster,omitempty"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
	Hits     int    `json:"hits"`
	Misses   int    `json:"misses"`
}

func (s *Server) handleSpellCasts(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "cast journal disabled", http.StatusServiceUnavailable)
		return
	}
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		http.Error(w, "bad spell id", http.StatusBadRequest)
		return
	}
	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxJournalLimit)
	}
	entries, err := s.journal.Recent(r.Context(), uint32(id), limit)
	if err != nil {
		s.log.Error("施法日誌查詢失敗", zap.Uint64("spell", id), zap.Error(err))
		http.Error(w, "journal error", http.StatusInternalServerError)
		return
	}
	out := make([]castJSON, len(entries))
	for i, e := range entries {
		out[i] = castJSON{
			At:       e.At.UnixMilli(),
			Region:   e.Region,
			CasterID: e.CasterID,
			Caster:   e.Caster,
			Outcome:  e.Outcome,
			Reason:   e.Reason,
			Hits:     e.Hits,
			Misses:   e.Misses,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
