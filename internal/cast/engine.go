package cast

import (
	"math/rand"
	"sync"

	"github.com/l1jgo/spellcast/internal/config"
	"github.com/l1jgo/spellcast/internal/core/pool"
	"github.com/l1jgo/spellcast/internal/core/timer"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// Engine owns the cast pool, the per-region contexts and every collaborator
// a cast needs. One Engine serves every region of the process.
type Engine struct {
	cfg    config.CastConfig
	hit    config.HitConfig
	spells *data.SpellTable
	world  *world.World
	pool   *pool.Pool[Cast]
	log    *zap.Logger

	notifier Notifier
	hooks    []Hooks
	effects  map[string]HandlerFactory
	roll     func(min, max int) int
	targeter AITargeter

	mu       sync.Mutex
	contexts map[uint32]*Context
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRoll replaces the hit roll; min and max are inclusive.
func WithRoll(fn func(min, max int) int) Option {
	return func(e *Engine) { e.roll = fn }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithAITargeter sets the target picker used for AI casts.
func WithAITargeter(t AITargeter) Option {
	return func(e *Engine) { e.targeter = t }
}

func NewEngine(cfg *config.Config, spells *data.SpellTable, w *world.World, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg.Cast,
		hit:      cfg.Hit,
		spells:   spells,
		world:    w,
		log:      log,
		notifier: NopNotifier{},
		effects:  make(map[string]HandlerFactory),
		roll:     defaultRoll,
		contexts: make(map[uint32]*Context),
	}
	e.pool = pool.New(e.newCast, e.resetCast)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultRoll(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}

func (e *Engine) newCast() *Cast {
	c := &Cast{engine: e}
	c.timer = timer.New(c.onTimer)
	return c
}

// resetCast restores a recycled instance, keeping its timer and target
// buffer.
func (e *Engine) resetCast(c *Cast) {
	t := c.timer
	t.Stop()
	clear(c.targets)
	targets := c.targets[:0]
	*c = Cast{engine: e, timer: t, targets: targets}
}

// RegisterEffect binds an effect type name to its handler factory.
func (e *Engine) RegisterEffect(effectType string, f HandlerFactory) {
	e.effects[effectType] = f
}

// AddHooks appends spell-wide hooks, called in registration order.
func (e *Engine) AddHooks(h Hooks) {
	e.hooks = append(e.hooks, h)
}

func (e *Engine) Spells() *data.SpellTable { return e.spells }
func (e *Engine) Notifier() Notifier       { return e.notifier }
func (e *Engine) Log() *zap.Logger         { return e.log }
func (e *Engine) Config() config.CastConfig {
	return e.cfg
}

// Context returns the cast context of region r, creating it on first use.
func (e *Engine) Context(r *world.Region) *Context {
	if r == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx, ok := e.contexts[r.ID]; ok {
		return ctx
	}
	ctx := newContext(e, r)
	e.contexts[r.ID] = ctx
	r.OnRemove(ctx.onRemove)
	return ctx
}

// CastOf returns the tracked cast of obj, creating it if needed.
func (e *Engine) CastOf(obj *world.Object) *Cast {
	ctx := e.Context(obj.Region())
	if ctx == nil {
		return nil
	}
	return ctx.CastOf(obj)
}

// Obtain checks out an untracked cast bound to caster. It returns to the
// pool by itself after its final cleanup.
func (e *Engine) Obtain(caster *world.Object) *Cast {
	if caster == nil || !caster.InWorld() {
		return nil
	}
	h, c := e.pool.Obtain()
	c.handle = h
	c.bind(caster)
	return c
}

// Lookup resolves a handle, false once the instance was recycled.
func (e *Engine) Lookup(h pool.Handle) (*Cast, bool) {
	c, ok := e.pool.Get(h)
	if !ok || c.handle != h {
		return nil, false
	}
	return c, true
}

// Dispose disposes the cast behind h. Stale handles are ignored.
func (e *Engine) Dispose(h pool.Handle) bool {
	c, ok := e.Lookup(h)
	if !ok {
		return false
	}
	c.Dispose()
	return true
}

// PoolStats reports checked-out and idle instances.
func (e *Engine) PoolStats() (live, idle int) {
	return e.pool.Live(), e.pool.Idle()
}

// OnDamage is called after victim took damage: it breaks auras that end on
// damage and pushes back the victim's current cast.
func (e *Engine) OnDamage(victim *world.Unit, amount int) {
	if victim == nil || amount <= 0 {
		return
	}
	victim.Auras.RemoveByInterruptFlag(data.InterruptOnDamage)
	ctx := e.Context(victim.Region())
	if ctx == nil {
		return
	}
	if c, ok := ctx.Owned(&victim.Object); ok && c.casting {
		c.Pushback()
	}
}

// OnMove is called after u changed position. Auras and casts flagged to
// break on movement end; next-strike casts are kept.
func (e *Engine) OnMove(u *world.Unit) {
	if u == nil {
		return
	}
	u.Auras.RemoveByInterruptFlag(data.InterruptOnMovement)
	ctx := e.Context(u.Region())
	if ctx == nil {
		return
	}
	c, ok := ctx.Owned(&u.Object)
	if !ok || !c.casting || c.spell == nil || !c.spell.InterruptedBy(data.InterruptOnMovement) {
		return
	}
	if c.state == StateDelayed || c.state == StateChanneling {
		c.Cancel(FailedInterrupted)
	}
}

// TriggerAt casts spell from caster at a fixed location, scheduled on the
// caster's region.
func (e *Engine) TriggerAt(caster *world.Object, spell *data.Spell, loc world.Vector3) {
	c := e.Obtain(caster)
	if c == nil {
		return
	}
	c.targetLoc = loc
	c.hasTargetLoc = true
	c.region.ExecuteInContext(func() {
		c.Start(spell, false)
	})
}

// ValidateAndTriggerNew casts spell from caster on target with a fresh
// instance, after the same checks as Cast.ValidateAndTrigger.
func (e *Engine) ValidateAndTriggerNew(spell *data.Spell, caster, target *world.Object, action *Action) {
	c := e.Obtain(caster)
	if c == nil {
		return
	}
	targets := c.triggerTargets(spell, target)
	c.triggerAction = action
	c.region.ExecuteInContext(func() {
		c.StartTriggered(spell, nil, false, targets...)
	})
}
