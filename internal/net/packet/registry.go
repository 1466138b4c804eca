package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SessionState is the protocol phase of a client session.
type SessionState int

const (
	StateConnected     SessionState = iota // connected, no character yet
	StateInWorld                           // character spawned, may cast
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

var (
	ErrEmptyPacket = errors.New("empty packet")
	ErrWrongState  = errors.New("opcode not allowed in session state")
)

// HandlerFunc handles one decoded packet. sess is the caller's session type,
// kept opaque so this package does not import net.
type HandlerFunc func(sess any, r *Reader)

// stateMask has bit n set when SessionState(n) may send the opcode.
type stateMask uint8

func maskOf(states []SessionState) stateMask {
	var m stateMask
	for _, s := range states {
		m |= 1 << uint(s)
	}
	return m
}

func (m stateMask) allows(s SessionState) bool {
	return s >= 0 && s < 8 && m&(1<<uint(s)) != 0
}

type handlerEntry struct {
	fn      HandlerFunc
	allowed stateMask
}

// Registry routes client opcodes to handlers, gated by session state.
type Registry struct {
	handlers [256]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// Register binds opcode to fn for the given states. A second call for the
// same opcode replaces the first.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	reg.handlers[opcode] = &handlerEntry{fn: fn, allowed: maskOf(states)}
}

// Dispatch runs the handler of data[0]. Unknown opcodes are ignored; a
// handler panic is recovered and returned as an error.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPacket
	}
	opcode := data[0]
	entry := reg.handlers[opcode]
	if entry == nil {
		reg.log.Debug("未知操作碼", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}
	if !entry.allowed.allows(state) {
		reg.log.Warn("操作碼在此狀態下不允許",
			zap.String("opcode", OpcodeName(opcode)),
			zap.Stringer("state", state),
		)
		return fmt.Errorf("%s in %s: %w", OpcodeName(opcode), state, ErrWrongState)
	}
	reg.log.Debug("收到封包",
		zap.String("opcode", OpcodeName(opcode)),
		zap.Int("size", len(data)),
	)
	return reg.safeCall(entry.fn, sess, NewReader(data), opcode)
}

// safeCall keeps one bad packet from taking down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.String("opcode", OpcodeName(opcode)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", OpcodeName(opcode), rec)
		}
	}()
	fn(sess, r)
	return nil
}
