package handler

import (
	"time"

	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"github.com/l1jgo/spellcast/internal/world"
)

// PacketNotifier turns cast notifications into server packets for every
// client that can see the caster. CastDelayed only reaches the caster.
type PacketNotifier struct{}

func (PacketNotifier) CastStart(c *cast.Cast) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SPELL_START)
	writeCastHeader(w, c)
	w.WriteD(int32(c.CastDelay() / time.Millisecond))
	var target ecs.EntityID
	if sel := c.Selected(); sel != nil {
		target = sel.ID
	}
	w.WriteQ(uint64(target))
	broadcast(c, w.Bytes())
}

func (PacketNotifier) CastFailed(c *cast.Cast, reason cast.FailedReason) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CAST_FAILED)
	writeCastHeader(w, c)
	w.WriteC(byte(reason))
	broadcast(c, w.Bytes())
}

func (PacketNotifier) SpellGo(c *cast.Cast, hit []*world.Object, missed []cast.MissedTarget) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SPELL_GO)
	writeCastHeader(w, c)
	w.WriteC(byte(len(hit)))
	for _, t := range hit {
		w.WriteQ(uint64(t.ID))
	}
	w.WriteC(byte(len(missed)))
	for _, m := range missed {
		w.WriteQ(uint64(m.Target.ID))
		w.WriteC(byte(m.Reason))
	}
	broadcast(c, w.Bytes())
}

func (PacketNotifier) CastDelayed(c *cast.Cast, delay time.Duration) {
	caster := c.Caster()
	if caster == nil || caster.Client == nil {
		return
	}
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CAST_DELAYED)
	w.WriteQ(uint64(caster.ID))
	w.WriteD(int32(delay / time.Millisecond))
	caster.Client.Send(w.Bytes())
}

func (PacketNotifier) ChannelUpdate(c *cast.Cast, remaining time.Duration) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CHANNEL_UPDATE)
	w.WriteQ(uint64(c.CasterRef().ID))
	w.WriteD(int32(remaining / time.Millisecond))
	broadcast(c, w.Bytes())
}

// writeCastHeader writes [Q casterID][D spellID][C castID].
func writeCastHeader(w *packet.Writer, c *cast.Cast) {
	w.WriteQ(uint64(c.CasterRef().ID))
	var spellID uint32
	if s := c.Spell(); s != nil {
		spellID = s.ID
	}
	w.WriteDU(spellID)
	w.WriteC(c.CastID())
}

func broadcast(c *cast.Cast, data []byte) {
	caster := c.Caster()
	if caster == nil {
		return
	}
	for _, cl := range caster.Region().NearbyClients(caster) {
		cl.Send(data)
	}
}

// sendCastFailed answers a request that never reached a cast instance.
func sendCastFailed(sess *net.Session, caster ecs.EntityID, spellID uint32, castID byte, reason cast.FailedReason) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_CAST_FAILED)
	w.WriteQ(uint64(caster))
	w.WriteDU(spellID)
	w.WriteC(castID)
	w.WriteC(byte(reason))
	sess.Send(w.Bytes())
}
