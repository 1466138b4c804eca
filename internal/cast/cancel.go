package cast

import (
	"fmt"
	"time"

	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// ==================== 取消 / 延遲 ====================

// Cancel aborts the cast. No-op when nothing is being cast.
func (c *Cast) Cancel(reason FailedReason) {
	if !c.casting {
		return
	}
	c.casting = false
	c.state = StateCancelled

	if ch := c.channel; ch != nil && ch.IsChanneling() {
		ch.Close(true)
	}
	for _, h := range c.engine.hooks {
		h.OnCancelled(c, reason)
	}

	if reason.Reportable() && !c.passive && !c.spell.IsHidden() {
		n := c.engine.notifier
		n.CastFailed(c, reason)
		// empty spell go clears the pending cast on the client
		n.SpellGo(c, nil, nil)
	} else if reason.Reportable() && c.depth > 0 && c.ctx != nil {
		if root, ok := c.ctx.owned[c.casterRef.ID]; ok && root != c && root.casting {
			root.Cancel(reason)
		}
	}
	c.cleanup(true)
}

// Pushback delays the cast after the caster took damage.
func (c *Cast) Pushback() {
	c.pushback(0)
}

// PushbackMillis is Pushback with an explicit delay for both the delayed
// and the channel path.
func (c *Cast) PushbackMillis(ms int) {
	if ms <= 0 {
		return
	}
	c.pushback(time.Duration(ms) * time.Millisecond)
}

func (c *Cast) pushback(d time.Duration) {
	if c.godMode || !c.casting || c.passive {
		return
	}
	if c.spell.InterruptedBy(data.InterruptOnDamage) {
		c.Cancel(FailedInterrupted)
		return
	}
	cfg := c.engine.cfg
	if c.pushbacks >= cfg.MaxPushbacks {
		return
	}
	switch c.state {
	case StateDelayed:
		if d == 0 {
			d = cfg.PushbackDelay
		}
		c.pushbacks++
		c.SetRemainingCastTime(c.timer.Remaining() + c.pushbackTime(d))
	case StateChanneling:
		if c.channel == nil {
			return
		}
		if d == 0 && cfg.ChannelPushbackFraction > 0 {
			d = c.channel.Duration() / time.Duration(cfg.ChannelPushbackFraction)
		}
		c.pushbacks++
		c.channel.Pushback(c.pushbackTime(d))
	}
}

// pushbackTime reduces d by the caster's interrupt protection and then by
// its pushback reduction auras. Never negative.
func (c *Cast) pushbackTime(d time.Duration) time.Duration {
	u := c.self()
	if u == nil {
		return d
	}
	if u.InterruptProtection >= 100 {
		return 0
	}
	if u.InterruptProtection > 0 {
		d -= d * time.Duration(u.InterruptProtection) / 100
	}
	ms := u.Auras.GetModifiedValue(data.ModPushbackReduction, c.spell, int(d.Milliseconds()))
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// RemainingCastTime is the time left before a delayed cast performs.
func (c *Cast) RemainingCastTime() time.Duration {
	if c.state != StateDelayed {
		return 0
	}
	return c.timer.Remaining()
}

// SetRemainingCastTime moves the perform time of a delayed cast and tells
// the client by how much.
func (c *Cast) SetRemainingCastTime(d time.Duration) {
	if !c.casting || c.state != StateDelayed {
		return
	}
	if d < 0 {
		d = 0
	}
	delta := d - c.timer.Remaining()
	c.timer.SetRemaining(d)
	c.castDelay += delta
	if !c.spell.IsHidden() {
		c.engine.notifier.CastDelayed(c, delta)
	}
}

// ==================== 清理 / 釋放 ====================

// cleanup resets the per-cast state. A soft cleanup keeps the instance
// casting (open channel); a final one releases the handlers and returns
// untracked instances to the pool.
func (c *Cast) cleanup(final bool) {
	c.timer.Stop()
	c.castID = 0
	clear(c.initialTargets)
	c.initialTargets = c.initialTargets[:0]
	c.targetItem = nil
	if !final {
		return
	}

	handlers := c.handlers
	c.handlers = nil

	if c.spell != nil && c.spell.IsTame() && c.selected != nil {
		if tu := c.selected.Unit(); tu != nil && tu.Tamer == c.casterRef.ID {
			tu.Tamer = 0
		}
	}
	if c.ctx != nil {
		c.ctx.untrack(c)
		c.ctx.unpend(c)
	}

	c.casting = false
	c.state = StateIdle
	c.passive = false
	c.playerCast = false
	c.godMode = false
	c.pushbacks = 0
	c.castDelay = 0
	c.selected = nil
	c.stringTarget = ""
	c.hasTargetLoc = false
	c.targetFlags = 0
	c.casterItem = nil
	c.triggerEffect = nil
	c.depth = 0
	c.channel = nil
	c.spell = nil
	clear(c.targets)
	c.targets = c.targets[:0]

	c.doFinalCleanup(handlers)
}

func (c *Cast) doFinalCleanup(handlers []EffectHandler) {
	c.triggerAction = nil
	for _, h := range handlers {
		h.Cleanup()
	}
	if c.disposing || c.ctx == nil || c.ctx.isOwned(c) {
		return
	}
	c.Dispose()
}

// Dispose cancels the cast and returns the instance to the pool. Calling
// it again on a disposed instance does nothing.
func (c *Cast) Dispose() {
	if c.casterRef.IsZero() {
		c.engine.log.Debug("施法實例已釋放")
		return
	}
	c.disposing = true
	c.Cancel(FailedInterrupted)
	c.channel = nil
	if c.ctx != nil {
		c.ctx.untrack(c)
		c.ctx.unpend(c)
		if c.ctx.isOwned(c) {
			delete(c.ctx.owned, c.casterRef.ID)
		}
	}
	c.engine.pool.Recycle(c.handle)
}

// recoverFault turns a panic inside the lifecycle into FailedError: the
// cast is cleaned up, a non-animate caster is removed from the world and a
// player is disconnected.
func (c *Cast) recoverFault(stage string, p any) FailedReason {
	targets := make([]string, 0, len(c.targets))
	for _, t := range c.targets {
		if t != nil {
			targets = append(targets, t.String())
		}
	}
	c.engine.log.Error("施法例外",
		append(c.logFields(),
			zap.String("stage", stage),
			zap.String("panic", fmt.Sprint(p)),
			zap.Strings("targets", targets),
			zap.Stack("stack"))...)

	caster := c.Caster()
	if c.casting {
		c.casting = false
		c.cleanup(true)
	}
	if caster == nil {
		return FailedError
	}
	switch {
	case caster.Unit() == nil:
		if r := caster.Region(); r != nil {
			r.Remove(caster)
		}
	case caster.Kind == world.KindPlayer && caster.Client != nil:
		caster.Client.Close()
	}
	return FailedError
}
