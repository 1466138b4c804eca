package cast

import (
	"sort"
	"time"

	"github.com/l1jgo/spellcast/internal/core/ecs"
	"github.com/l1jgo/spellcast/internal/world"
)

// Context holds the casts of one region. It is only touched from that
// region's turn of the game loop.
type Context struct {
	engine *Engine
	region *world.Region

	owned   map[ecs.EntityID]*Cast // tracked cast of each caster
	strikes map[ecs.EntityID]*Cast // pending next-strike cast of each caster
	ticking map[*Cast]uint64       // casts with a running timer or channel
	seq     uint64
	scratch []*Cast
}

func newContext(e *Engine, r *world.Region) *Context {
	return &Context{
		engine:  e,
		region:  r,
		owned:   make(map[ecs.EntityID]*Cast),
		strikes: make(map[ecs.EntityID]*Cast),
		ticking: make(map[*Cast]uint64),
	}
}

func (ctx *Context) Region() *world.Region { return ctx.region }

// CastOf returns the tracked cast of obj. The instance is created on first
// use and stays with the object until Release.
func (ctx *Context) CastOf(obj *world.Object) *Cast {
	if c, ok := ctx.owned[obj.ID]; ok {
		return c
	}
	c := ctx.engine.Obtain(obj)
	if c == nil {
		return nil
	}
	ctx.owned[obj.ID] = c
	return c
}

// Owned returns the tracked cast of obj without creating one.
func (ctx *Context) Owned(obj *world.Object) (*Cast, bool) {
	c, ok := ctx.owned[obj.ID]
	return c, ok
}

// Release disposes the tracked cast of obj.
func (ctx *Context) Release(obj *world.Object) {
	c, ok := ctx.owned[obj.ID]
	if !ok {
		return
	}
	delete(ctx.owned, obj.ID)
	c.Dispose()
}

// OnStrike performs the pending next-strike cast of attacker, if any.
func (ctx *Context) OnStrike(attacker, victim *world.Unit) bool {
	c, ok := ctx.strikes[attacker.ID]
	if !ok {
		return false
	}
	delete(ctx.strikes, attacker.ID)
	if !c.casting {
		return false
	}
	if c.selected == nil && victim != nil {
		c.selected = &victim.Object
	}
	c.Perform()
	return true
}

// Active returns how many casts are waiting on a timer, channel or strike.
func (ctx *Context) Active() int {
	return len(ctx.ticking) + len(ctx.strikes)
}

// Update advances every ticking cast in start order.
func (ctx *Context) Update(dt time.Duration) {
	if len(ctx.ticking) == 0 {
		return
	}
	list := ctx.scratch[:0]
	for c := range ctx.ticking {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return ctx.ticking[list[i]] < ctx.ticking[list[j]] })
	for _, c := range list {
		// an earlier cast in this tick may have cancelled or recycled it
		if _, ok := ctx.ticking[c]; ok {
			c.Update(dt)
		}
	}
	clear(list)
	ctx.scratch = list[:0]
}

func (ctx *Context) track(c *Cast) {
	if _, ok := ctx.ticking[c]; ok {
		return
	}
	ctx.seq++
	ctx.ticking[c] = ctx.seq
}

func (ctx *Context) untrack(c *Cast) {
	delete(ctx.ticking, c)
}

func (ctx *Context) pend(c *Cast) {
	if prev, ok := ctx.strikes[c.casterRef.ID]; ok && prev != c {
		prev.Cancel(FailedInterrupted)
	}
	ctx.strikes[c.casterRef.ID] = c
}

func (ctx *Context) unpend(c *Cast) {
	if cur, ok := ctx.strikes[c.casterRef.ID]; ok && cur == c {
		delete(ctx.strikes, c.casterRef.ID)
	}
}

func (ctx *Context) isOwned(c *Cast) bool {
	cur, ok := ctx.owned[c.casterRef.ID]
	return ok && cur == c
}

// onRemove runs while obj is still resolvable in the region.
func (ctx *Context) onRemove(obj *world.Object) {
	list := make([]*Cast, 0, len(ctx.ticking)+len(ctx.strikes))
	for c := range ctx.ticking {
		list = append(list, c)
	}
	for _, c := range ctx.strikes {
		if _, ok := ctx.ticking[c]; !ok {
			list = append(list, c)
		}
	}
	for _, c := range list {
		if c.casterRef.ID == obj.ID {
			c.Cancel(FailedDontReport)
			continue
		}
		c.RemoveTarget(obj)
	}
	ctx.Release(obj)
}
