package handler

import (
	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/config"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	World    *world.World
	Spells   *data.SpellTable
	Casts    *cast.Engine
	Sessions *net.SessionStore
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_OPCODE_ENTER_WORLD,
		[]packet.SessionState{packet.StateConnected},
		func(sess any, r *packet.Reader) {
			HandleEnterWorld(sess.(*net.Session), r, deps)
		},
	)

	// In-world phase
	inWorldStates := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_OPCODE_CAST_SPELL, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleCastSpell(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_CANCEL_CAST, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleCancelCast(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_SELECT_TARGET, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleSelectTarget(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_MOVE, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleMove(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_ATTACK, inWorldStates,
		func(sess any, r *packet.Reader) {
			HandleAttack(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateConnected, packet.StateInWorld},
		func(sess any, r *packet.Reader) {
			HandleQuit(sess.(*net.Session), r, deps)
		},
	)
}

// inRegion runs fn on the session's region queue with the player resolved
// there. Dropped silently when the character is gone by then.
func inRegion(sess *net.Session, deps *Deps, fn func(region *world.Region, player *world.Unit)) {
	region := deps.World.Region(sess.Region)
	if region == nil || sess.Entity.IsZero() {
		return
	}
	id := sess.Entity
	region.ExecuteInContext(func() {
		player := region.FindUnit(id)
		if player == nil {
			return
		}
		fn(region, player)
	})
}
