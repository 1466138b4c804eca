package cast

import (
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
)

// EffectHandler applies one effect slot of a spell. A fresh handler is
// built for every cast that passes initialization.
type EffectHandler interface {
	Apply(c *Cast, targets []*world.Object)
	Cleanup()
}

// Initializer is implemented by handlers that can veto the cast while
// handlers are being built.
type Initializer interface {
	Init(c *Cast) FailedReason
}

// ChannelTicker is implemented by handlers that act on every channel tick.
type ChannelTicker interface {
	OnChannelTick(c *Cast, tick int)
}

// HandlerFactory builds the handler for one effect slot.
type HandlerFactory func(c *Cast, eff *data.Effect) EffectHandler

// Hooks observe and veto casts of every spell.
type Hooks interface {
	OnCasting(c *Cast) FailedReason
	OnCancelled(c *Cast, reason FailedReason)
}

// SpecialCaster takes over spells flagged special_cast. It returns true
// when it handled the request.
type SpecialCaster interface {
	SpecialCast(c *Cast, selected *world.Object, targetLoc world.Vector3) bool
}

// AITargeter picks targets for casts of AI-controlled units.
type AITargeter interface {
	SelectTargets(c *Cast) ([]*world.Object, FailedReason)
}

// MissedTarget is a target that was not hit and why.
type MissedTarget struct {
	Target *world.Object
	Reason MissReason
}
