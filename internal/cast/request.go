package cast

import (
	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/world"
)

// TargetFlags describe what the client selected.
type TargetFlags uint32

const (
	TargetSelf                TargetFlags = 0x0
	TargetUnit                TargetFlags = 0x2
	TargetItem                TargetFlags = 0x10
	TargetSourceLocation      TargetFlags = 0x20
	TargetDestinationLocation TargetFlags = 0x40
	TargetPvPCorpse           TargetFlags = 0x200
	TargetObject              TargetFlags = 0x800
	TargetTradeItem           TargetFlags = 0x1000
	TargetString              TargetFlags = 0x2000
	TargetCorpse              TargetFlags = 0x8000

	targetAnyObject = TargetUnit | TargetObject | TargetCorpse | TargetPvPCorpse
	targetAnyItem   = TargetItem | TargetTradeItem
)

func (f TargetFlags) HasAny(mask TargetFlags) bool { return f&mask != 0 }

// Request is a decoded client cast request. Only the fields selected by
// TargetFlags are meaningful.
type Request struct {
	SpellID       uint32
	CastID        byte
	TargetFlags   TargetFlags
	TargetID      ecs.EntityID
	ItemID        uint32
	SourceID      ecs.EntityID
	DestinationID ecs.EntityID
	Destination   world.Vector3
	String        string
}

// Action is the attack or event that caused a triggered cast. Immutable
// once built; casts share it by pointer.
type Action struct {
	Attacker ecs.EntityID
	Victim   ecs.EntityID
	SpellID  uint32 // spell that caused the action, 0 for melee
	Damage   int
}
