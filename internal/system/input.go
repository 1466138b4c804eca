package system

import (
	"time"

	coresys "github.com/l1jgo/spellcast/internal/core/system"
	"github.com/l1jgo/spellcast/internal/handler"
	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"go.uber.org/zap"
)

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	netServer  *net.Server
	registry   *packet.Registry
	store      *net.SessionStore
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(netServer *net.Server, registry *packet.Registry, deps *handler.Deps, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		netServer:  netServer,
		registry:   registry,
		store:      deps.Sessions,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.netServer.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.netServer.DeadSessions():
			s.store.Remove(id)
		default:
			goto doneDead
		}
	}
doneDead:

	for _, sess := range s.store.Snapshot() {
		if sess.IsClosed() {
			// 斷線前仍處理已收到的封包（例如最後一次取消施法）
			s.drain(sess)
			sess.FlushOutput()
			handler.LeaveWorld(sess, s.deps)
			s.netServer.NotifyDead(sess.ID)
			s.store.Remove(sess.ID)
			s.log.Info("客戶端斷線", zap.Uint64("session", sess.ID), zap.String("char", sess.CharName))
			continue
		}
		s.drain(sess)
	}
}

// drain dispatches up to maxPerTick queued packets of sess.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("封包分派錯誤",
					zap.Uint64("session", sess.ID),
					zap.Error(err),
				)
			}
		default:
			return
		}
	}
}

// SessionCount returns the current number of active sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Count()
}

// OutputSystem flushes every session's buffered packets once per tick.
// Phase 4 (Output).
type OutputSystem struct {
	store *net.SessionStore
}

func NewOutputSystem(store *net.SessionStore) *OutputSystem {
	return &OutputSystem{store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
