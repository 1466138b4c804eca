package net

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	acceptBacklog    = 64
	maxAcceptBackoff = time.Second
)

// Server accepts client connections for the cast daemon. Sessions are
// handed to the game loop through NewSessions; closed ones come back
// through DeadSessions.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64
	opts     SessionOptions
	log      *zap.Logger

	closing   atomic.Bool
	closeOnce sync.Once
}

func NewServer(bindAddr string, opts SessionOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		newConns: make(chan *Session, acceptBacklog),
		deadCh:   make(chan uint64, acceptBacklog),
		opts:     opts,
		log:      log,
	}, nil
}

// AcceptLoop blocks until Shutdown. Accept errors back off up to one
// second instead of spinning.
func (s *Server) AcceptLoop() {
	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, maxAcceptBackoff)
			}
			s.log.Error("連線接受失敗", zap.Error(err), zap.Duration("retry", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		sess := NewSession(conn, s.nextID.Add(1), s.opts, s.log)
		sess.Start()
		s.log.Info("客戶端連線", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("連線佇列已滿，拒絕新連線", zap.String("ip", sess.IP))
			sess.Close()
		}
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop. Drops when the
// loop is behind; the store sweep catches closed sessions anyway.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting connections. Safe to call twice.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.listener.Close()
	})
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
