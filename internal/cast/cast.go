package cast

import (
	"time"

	"github.com/l1jgo/spellcast/internal/core/pool"
	"github.com/l1jgo/spellcast/internal/core/timer"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// Cast is one pooled cast instance. An instance is owned by the context
// of its caster's region until disposed; it is never shared between
// regions.
type Cast struct {
	engine *Engine
	handle pool.Handle
	ctx    *Context

	spell      *data.Spell
	casterRef  world.Reference
	casterObj  *world.Object
	casterUnit *world.Unit
	casterItem *world.Item
	region     *world.Region
	phase      uint32

	targets        []*world.Object
	initialTargets []*world.Object
	selected       *world.Object
	targetItem     *world.Item
	stringTarget   string
	sourceLoc      world.Vector3
	targetLoc      world.Vector3
	hasTargetLoc   bool
	targetFlags    TargetFlags
	castID         byte

	handlers []EffectHandler
	channel  *Channel
	timer    *timer.Timer

	state      State
	casting    bool
	passive    bool
	playerCast bool
	godMode    bool
	pushbacks  int
	castDelay  time.Duration
	startTime  time.Time

	triggerEffect *data.Effect
	triggerAction *Action
	depth         int
	disposing     bool
}

func (c *Cast) bind(caster *world.Object) {
	c.casterRef = caster.Ref()
	c.casterObj = caster
	c.casterUnit = caster.Responsible()
	c.region = caster.Region()
	c.phase = caster.Phase
	c.sourceLoc = caster.Position
	c.ctx = c.engine.Context(c.region)
}

func (c *Cast) Handle() pool.Handle           { return c.handle }
func (c *Cast) Engine() *Engine               { return c.engine }
func (c *Cast) Spell() *data.Spell            { return c.spell }
func (c *Cast) CasterRef() world.Reference    { return c.casterRef }
func (c *Cast) CasterItem() *world.Item       { return c.casterItem }
func (c *Cast) Region() *world.Region         { return c.region }
func (c *Cast) Phase() uint32                 { return c.phase }
func (c *Cast) Targets() []*world.Object      { return c.targets }
func (c *Cast) Selected() *world.Object       { return c.selected }
func (c *Cast) TargetItem() *world.Item       { return c.targetItem }
func (c *Cast) StringTarget() string          { return c.stringTarget }
func (c *Cast) SourceLocation() world.Vector3 { return c.sourceLoc }
func (c *Cast) TargetFlags() TargetFlags      { return c.targetFlags }
func (c *Cast) CastID() byte                  { return c.castID }
func (c *Cast) Handlers() []EffectHandler     { return c.handlers }
func (c *Cast) Channel() *Channel             { return c.channel }
func (c *Cast) State() State                  { return c.state }
func (c *Cast) IsCasting() bool               { return c.casting }
func (c *Cast) IsPassive() bool               { return c.passive }
func (c *Cast) IsPlayerCast() bool            { return c.playerCast }
func (c *Cast) GodMode() bool                 { return c.godMode }
func (c *Cast) Pushbacks() int                { return c.pushbacks }
func (c *Cast) CastDelay() time.Duration      { return c.castDelay }
func (c *Cast) StartTime() time.Time          { return c.startTime }
func (c *Cast) TriggerEffect() *data.Effect   { return c.triggerEffect }
func (c *Cast) TriggerAction() *Action        { return c.triggerAction }
func (c *Cast) Depth() int                    { return c.depth }
func (c *Cast) IsChanneling() bool            { return c.channel != nil && c.channel.IsChanneling() }
func (c *Cast) IsInstant() bool               { return c.castDelay == 0 }
func (c *Cast) TargetLocation() (world.Vector3, bool) {
	return c.targetLoc, c.hasTargetLoc
}

// Caster returns the casting object while it is still in the world.
func (c *Cast) Caster() *world.Object {
	if c.casterObj != nil && c.casterObj.InWorld() {
		return c.casterObj
	}
	return nil
}

// CasterUnit returns the unit responsible for the cast: the caster itself,
// or the owner of a trap or game object. Nil when neither exists.
func (c *Cast) CasterUnit() *world.Unit {
	if c.Caster() == nil {
		return nil
	}
	return c.casterUnit
}

// self returns the caster when it is animate, nil for traps and game objects.
func (c *Cast) self() *world.Unit {
	if o := c.Caster(); o != nil {
		return o.Unit()
	}
	return nil
}

// SetCasterItem sets the item the spell is cast from.
func (c *Cast) SetCasterItem(it *world.Item) { c.casterItem = it }

// SetTargetLocation fixes the destination before Start.
func (c *Cast) SetTargetLocation(loc world.Vector3) {
	c.targetLoc = loc
	c.hasTargetLoc = true
}

// Update advances the cast timer and the open channel.
func (c *Cast) Update(dt time.Duration) {
	wasChanneling := c.IsChanneling()
	c.timer.Update(dt)
	if wasChanneling && c.channel != nil {
		c.channel.Update(dt)
	}
}

func (c *Cast) onTimer() {
	if c.state != StateDelayed || !c.casting {
		return
	}
	c.Perform()
}

// RemoveTarget drops obj from every target list of the cast.
func (c *Cast) RemoveTarget(obj *world.Object) {
	c.targets = removeObject(c.targets, obj)
	c.initialTargets = removeObject(c.initialTargets, obj)
	if c.selected == obj {
		c.selected = nil
	}
}

func removeObject(list []*world.Object, obj *world.Object) []*world.Object {
	for i, o := range list {
		if o == obj {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

func (c *Cast) regionID() uint32 {
	if c.region == nil {
		return 0
	}
	return c.region.ID
}

func (c *Cast) spellID() uint32 {
	if c.spell == nil {
		return 0
	}
	return c.spell.ID
}

func (c *Cast) logFields() []zap.Field {
	return []zap.Field{
		zap.Uint32("spell", c.spellID()),
		zap.String("caster", c.casterRef.Name),
		zap.Stringer("casterID", c.casterRef.ID),
		zap.Stringer("state", c.state),
	}
}
