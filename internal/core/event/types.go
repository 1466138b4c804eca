package event

import (
	"time"

	"github.com/l1jgo/spellcast/internal/core/ecs"
)

// Cast lifecycle events, emitted by cast.BusNotifier.

type CastStarted struct {
	CasterID ecs.EntityID
	Caster   string
	SpellID  uint32
	Region   uint32
	CastTime time.Duration
}

type CastFailed struct {
	CasterID ecs.EntityID
	Caster   string
	SpellID  uint32
	Region   uint32
	Reason   string
}

type MissInfo struct {
	TargetID ecs.EntityID
	Reason   string
}

type SpellWent struct {
	CasterID ecs.EntityID
	Caster   string
	SpellID  uint32
	Region   uint32
	Hit      []ecs.EntityID
	Missed   []MissInfo
}

type CastDelayed struct {
	CasterID ecs.EntityID
	SpellID  uint32
	Delay    time.Duration
}

type ChannelUpdated struct {
	CasterID  ecs.EntityID
	SpellID   uint32
	Remaining time.Duration
}
