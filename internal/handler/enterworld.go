package handler

import (
	"fmt"

	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// 開發用角色預設值
const (
	defaultPlayerHealth = 100
	defaultPlayerPower  = 100
)

// HandleEnterWorld processes C_ENTER_WORLD.
// Packet format: [S name][C level][D faction][D region][F x][F y][F z]
// Spawns a throwaway character; there is no account or character store.
func HandleEnterWorld(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	level := int(r.ReadC())
	faction := uint32(r.ReadD())
	regionID := uint32(r.ReadD())
	pos := world.Vector3{X: r.ReadF(), Y: r.ReadF(), Z: r.ReadF()}

	if name == "" || level <= 0 {
		deps.Log.Warn("進入世界: 角色資料無效", zap.Uint64("session", sess.ID))
		sess.Close()
		return
	}
	region := deps.World.Region(regionID)
	if region == nil {
		deps.Log.Warn("進入世界: 區域不存在",
			zap.Uint64("session", sess.ID),
			zap.Uint32("region", regionID),
		)
		sess.Close()
		return
	}

	sess.CharName = name
	sess.Region = regionID
	sess.SetState(packet.StateInWorld)

	region.ExecuteInContext(func() {
		if sess.IsClosed() {
			return
		}
		player := world.NewUnit(world.KindPlayer, 0, name, level)
		player.Faction = faction
		player.Health, player.MaxHealth = defaultPlayerHealth, defaultPlayerHealth
		player.Power, player.MaxPower = defaultPlayerPower, defaultPlayerPower
		player.Client = sess
		id := region.SpawnUnit(player, pos)
		region.BindSession(id, sess.ID)
		sess.Entity = id

		sendEnterWorld(sess, player)
		deps.Log.Info(fmt.Sprintf("角色進入世界  session=%d  角色=%s  區域=%d", sess.ID, name, regionID))
	})
}

func sendEnterWorld(sess *net.Session, player *world.Unit) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ENTER_WORLD)
	w.WriteQ(uint64(player.ID))
	w.WriteD(int32(player.Region().ID))
	w.WriteF(player.Position.X)
	w.WriteF(player.Position.Y)
	w.WriteF(player.Position.Z)
	sess.Send(w.Bytes())
}

// LeaveWorld removes the session's character from its region. Called by
// InputSystem when the connection closes.
func LeaveWorld(sess *net.Session, deps *Deps) {
	region := deps.World.Region(sess.Region)
	if region == nil || sess.Entity.IsZero() {
		return
	}
	id := sess.Entity
	sess.Entity = 0
	region.ExecuteInContext(func() {
		if obj := region.FindObject(id); obj != nil {
			region.Remove(obj)
		}
	})
}
