package handler

import (
	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// 近戰參數
const (
	meleeRange  float32 = 5
	meleeDamage         = 5
)

// HandleAttack processes C_ATTACK.
// Packet format: [Q victimID]
// A pending next-strike spell replaces the plain melee hit.
func HandleAttack(sess *net.Session, r *packet.Reader, deps *Deps) {
	victimID := ecs.EntityID(r.ReadQ())
	inRegion(sess, deps, func(region *world.Region, player *world.Unit) {
		victim := region.FindUnit(victimID)
		if victim == nil || !victim.Alive() || !player.Alive() || victim == player {
			return
		}
		if !player.IsHostileTo(victim) {
			return
		}
		if player.Position.DistanceSq(victim.Position) > meleeRange*meleeRange {
			return
		}
		if deps.Casts.Context(region).OnStrike(player, victim) {
			return
		}
		dealt := victim.TakeDamage(meleeDamage)
		deps.Log.Debug("近戰攻擊",
			zap.String("attacker", player.Name),
			zap.String("victim", victim.Name),
			zap.Int("damage", dealt),
		)
		deps.Casts.OnDamage(victim, dealt)
	})
}
