package handler

import (
	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// ReadCastRequest decodes the body of C_CAST_SPELL.
// Packet format: [D spellID][C castID][D targetFlags] then, per flag:
//
//	unit/object/corpse: [Q targetID]
//	item:               [D itemObjectID]
//	source location:    [Q sourceID]
//	destination:        [Q destinationID][F x][F y][F z]
//	string:             [S text]
func ReadCastRequest(r *packet.Reader) cast.Request {
	req := cast.Request{
		SpellID:     uint32(r.ReadD()),
		CastID:      r.ReadC(),
		TargetFlags: cast.TargetFlags(r.ReadD()),
	}
	f := req.TargetFlags
	if f.HasAny(cast.TargetUnit | cast.TargetObject | cast.TargetCorpse | cast.TargetPvPCorpse) {
		req.TargetID = ecs.EntityID(r.ReadQ())
	}
	if f.HasAny(cast.TargetItem | cast.TargetTradeItem) {
		req.ItemID = uint32(r.ReadD())
	}
	if f.HasAny(cast.TargetSourceLocation) {
		req.SourceID = ecs.EntityID(r.ReadQ())
	}
	if f.HasAny(cast.TargetDestinationLocation) {
		req.DestinationID = ecs.EntityID(r.ReadQ())
		req.Destination = world.Vector3{X: r.ReadF(), Y: r.ReadF(), Z: r.ReadF()}
	}
	if f.HasAny(cast.TargetString) {
		req.String = r.ReadS()
	}
	return req
}

// HandleCastSpell processes C_CAST_SPELL.
// Thin handler: parse packet → run on the caster's region queue.
func HandleCastSpell(sess *net.Session, r *packet.Reader, deps *Deps) {
	req := ReadCastRequest(r)
	inRegion(sess, deps, func(_ *world.Region, player *world.Unit) {
		c := deps.Casts.CastOf(&player.Object)
		if c == nil {
			return
		}
		spell := deps.Spells.Get(req.SpellID)
		if spell == nil || spell.IsPassive() {
			deps.Log.Debug("施法: 無效法術",
				zap.Uint64("session", sess.ID),
				zap.Uint32("spell", req.SpellID),
			)
			sendCastFailed(sess, player.ID, req.SpellID, req.CastID, cast.FailedError)
			return
		}
		c.StartRequest(spell, req)
	})
}

// HandleCancelCast processes C_CANCEL_CAST.
// Packet format: [D spellID] (0 = whatever is being cast)
func HandleCancelCast(sess *net.Session, r *packet.Reader, deps *Deps) {
	spellID := uint32(r.ReadD())
	inRegion(sess, deps, func(region *world.Region, player *world.Unit) {
		ctx := deps.Casts.Context(region)
		c, ok := ctx.Owned(&player.Object)
		if !ok || !c.IsCasting() {
			return
		}
		if spellID != 0 && (c.Spell() == nil || c.Spell().ID != spellID) {
			return
		}
		c.Cancel(cast.FailedInterrupted)
	})
}

// HandleSelectTarget processes C_SELECT_TARGET.
// Packet format: [Q targetID] (0 = clear)
func HandleSelectTarget(sess *net.Session, r *packet.Reader, deps *Deps) {
	id := ecs.EntityID(r.ReadQ())
	inRegion(sess, deps, func(region *world.Region, player *world.Unit) {
		if id.IsZero() {
			player.Target = 0
			return
		}
		target := region.FindObject(id)
		if target == nil || !region.CanSee(&player.Object, target) {
			return
		}
		player.Target = id
	})
}
