package cast

import (
	"time"

	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// ==================== 施法入口 ====================

// StartRequest starts a cast requested by the caster's client.
func (c *Cast) StartRequest(spell *data.Spell, req Request) FailedReason {
	if c.casting {
		if c.state != StateChanneling {
			return c.rejectRequest(spell, req, FailedSpellInProgress)
		}
		c.Cancel(FailedDontReport)
	}
	c.begin(spell, false)
	c.playerCast = true
	c.castID = req.CastID
	c.targetFlags = req.TargetFlags

	if r := c.resolveRequest(req); r != FailedOk {
		c.Cancel(r)
		return r
	}
	if spell.Has(data.AttrSpecialCast) {
		handled := false
		for _, h := range c.engine.hooks {
			if sc, ok := h.(SpecialCaster); ok && sc.SpecialCast(c, c.selected, c.targetLoc) {
				handled = true
				break
			}
		}
		if handled {
			c.Cancel(FailedDontReport)
			return FailedDontReport
		}
	}
	return c.run()
}

// Start casts spell on the given targets. With no targets the caster's
// selection (or the caster) is used.
func (c *Cast) Start(spell *data.Spell, passive bool, targets ...*world.Object) FailedReason {
	c.interrupt()
	c.begin(spell, passive)
	c.initialTargets = append(c.initialTargets[:0], targets...)
	return c.run()
}

// StartID is Start by spell id.
func (c *Cast) StartID(spellID uint32, passive bool, targets ...*world.Object) FailedReason {
	spell := c.engine.spells.Get(spellID)
	if spell == nil {
		c.engine.log.Warn("施法: 未知法術", zap.Uint32("spell", spellID))
		c.disposeIfLoose()
		return FailedError
	}
	return c.Start(spell, passive, targets...)
}

// StartTriggered starts spell as the result of effect (nil when triggered
// by an event rather than another spell).
func (c *Cast) StartTriggered(spell *data.Spell, effect *data.Effect, passive bool, targets ...*world.Object) FailedReason {
	c.interrupt()
	c.triggerEffect = effect
	c.begin(spell, passive)
	c.initialTargets = append(c.initialTargets[:0], targets...)
	return c.run()
}

// Prepare validates the cast and builds its effect handlers without
// performing it.
func (c *Cast) Prepare(spell *data.Spell, passive bool, targets ...*world.Object) FailedReason {
	c.interrupt()
	c.begin(spell, passive)
	c.initialTargets = append(c.initialTargets[:0], targets...)
	if r := c.prepare(); r != FailedOk {
		return r
	}
	if r := c.initHandlers(); r != FailedOk {
		c.Cancel(r)
		return r
	}
	return FailedOk
}

// interrupt cancels whatever the instance is still casting before it is
// reused.
func (c *Cast) interrupt() {
	if !c.casting {
		return
	}
	// 保留實例, 不回收到池
	keep := c.disposing
	c.disposing = true
	c.Cancel(FailedInterrupted)
	c.disposing = keep
}

// rejectRequest reports a refused client request against the requested
// spell and cast id. The running cast is left untouched.
func (c *Cast) rejectRequest(spell *data.Spell, req Request, reason FailedReason) FailedReason {
	view := &Cast{
		engine:      c.engine,
		ctx:         c.ctx,
		spell:       spell,
		casterRef:   c.casterRef,
		casterObj:   c.casterObj,
		casterUnit:  c.casterUnit,
		region:      c.region,
		phase:       c.phase,
		sourceLoc:   c.sourceLoc,
		targetFlags: req.TargetFlags,
		castID:      req.CastID,
		playerCast:  true,
	}
	c.engine.notifier.CastFailed(view, reason)
	return reason
}

func (c *Cast) begin(spell *data.Spell, passive bool) {
	c.spell = spell
	c.passive = passive
	c.casting = true
	c.state = StatePreparing
	if u := c.self(); u != nil {
		c.godMode = u.GodMode
	}
	if passive || c.ctx == nil || c.isTriggered() {
		return
	}
	// a fresh cast by the caster interrupts its tracked cast still waiting
	// on a delay
	if prev, ok := c.ctx.owned[c.casterRef.ID]; ok && prev != c && prev.casting && prev.state == StateDelayed {
		prev.Cancel(FailedInterrupted)
	}
}

func (c *Cast) run() FailedReason {
	if r := c.prepare(); r != FailedOk {
		return r
	}
	return c.finishPrepare()
}

// isTriggered reports a cast caused by another cast or by an event.
func (c *Cast) isTriggered() bool {
	return c.depth > 0 || c.triggerEffect != nil || c.triggerAction != nil
}

// disposeIfLoose returns an idle untracked instance to the pool.
func (c *Cast) disposeIfLoose() {
	if c.casting || c.ctx == nil || c.ctx.isOwned(c) {
		return
	}
	c.Dispose()
}

// ==================== 目標解析 ====================

func (c *Cast) resolveRequest(req Request) FailedReason {
	caster := c.Caster()
	if caster == nil {
		return FailedOutOfRange
	}
	region := c.region
	flags := req.TargetFlags

	if flags == TargetSelf {
		c.selected = caster
		c.targetLoc = caster.Position
		c.hasTargetLoc = true
	}
	if flags.HasAny(targetAnyObject) {
		obj := region.FindObject(req.TargetID)
		if obj == nil || !region.CanSee(caster, obj) {
			return FailedBadTargets
		}
		c.selected = obj
		c.targetLoc = obj.Position
		c.hasTargetLoc = true
	}
	if flags.HasAny(targetAnyItem) {
		u := c.self()
		if u == nil || u.Inventory == nil {
			return FailedItemGone
		}
		it := u.Inventory.FindByObjectID(req.ItemID)
		if it == nil {
			return FailedItemGone
		}
		c.targetItem = it
	}
	if flags.HasAny(TargetSourceLocation) {
		if src := region.FindObject(req.SourceID); src != nil {
			c.sourceLoc = src.Position
		}
	}
	if flags.HasAny(TargetDestinationLocation) {
		c.targetLoc = req.Destination
		c.hasTargetLoc = true
	}
	if flags.HasAny(TargetString) {
		c.stringTarget = req.String
	}

	spell := c.spell
	if spell.RequiredTarget != 0 || spell.RequiredKind != "" {
		sel := c.selected
		if sel == nil {
			return FailedBadTargets
		}
		if spell.RequiredTarget != 0 && sel.Entry != spell.RequiredTarget {
			return FailedBadTargets
		}
		if spell.RequiredKind != "" && sel.Kind.String() != spell.RequiredKind {
			return FailedBadTargets
		}
	}
	return FailedOk
}

// ==================== 準備 ====================

func (c *Cast) prepare() (reason FailedReason) {
	defer func() {
		if p := recover(); p != nil {
			reason = c.recoverFault("prepare", p)
		}
	}()

	spell := c.spell
	u := c.self()
	if c.Caster() == nil && !c.passive {
		c.Cancel(FailedDontReport)
		return FailedDontReport
	}

	if u != nil && !u.IsPlayer() && !c.passive && !c.playerCast &&
		!c.isTriggered() && len(c.initialTargets) == 0 && c.engine.targeter != nil {
		targets, r := c.engine.targeter.SelectTargets(c)
		if r != FailedOk {
			c.Cancel(r)
			return r
		}
		c.initialTargets = append(c.initialTargets[:0], targets...)
	}

	if c.selected == nil {
		if len(c.initialTargets) > 0 {
			c.selected = c.initialTargets[0]
		} else if u != nil && !u.Target.IsZero() {
			c.selected = c.region.FindObject(u.Target)
		}
	}

	if !c.passive && u != nil {
		if u.Mounted && !spell.Has(data.AttrCastableWhileMounted) {
			u.Mounted = false
		}
		if u.Sitting && !spell.Has(data.AttrCastableWhileSitting) {
			u.Sitting = false
		}
		if u.IsPlayer() && !c.godMode && !c.isTriggered() {
			if r := c.checkPlayerCast(u); r != FailedOk {
				c.engine.log.Debug("施法檢查失敗", append(c.logFields(), zap.Stringer("reason", r))...)
				c.Cancel(r)
				return r
			}
		}
		u.Auras.RemoveByInterruptFlag(data.InterruptOnCast)
	}

	c.castDelay = c.computeDelay(c.CasterUnit())
	if loc := spell.TargetLocation; loc != nil {
		c.targetLoc = world.Vector3{X: loc.X, Y: loc.Y, Z: loc.Z}
		c.hasTargetLoc = true
	}
	if spell.IsTame() && u != nil && c.selected != nil {
		if tu := c.selected.Unit(); tu != nil {
			tu.Tamer = u.ID
		}
	}

	for _, h := range c.engine.hooks {
		if r := h.OnCasting(c); r != FailedOk {
			c.Cancel(r)
			return r
		}
	}
	return FailedOk
}

func (c *Cast) computeDelay(u *world.Unit) time.Duration {
	spell := c.spell
	if c.passive || c.godMode || c.isTriggered() || spell.CastDelay <= 0 {
		return 0
	}
	d := spell.CastDelay
	if u != nil {
		ms := int(float64(d.Milliseconds()) * u.CastSpeed)
		ms = u.Auras.GetModifiedValue(data.ModCastTime, spell, ms)
		d = time.Duration(ms) * time.Millisecond
	}
	if d < c.engine.cfg.InstantThreshold {
		return 0
	}
	return d
}

// checkPlayerCast runs the constraints every non-god player cast must pass.
func (c *Cast) checkPlayerCast(u *world.Unit) FailedReason {
	spell := c.spell
	if !u.Alive() {
		return FailedCasterDead
	}
	sel := c.selected
	if spell.TargetFlags != 0 && !spell.IsArea() && sel == &u.Object {
		return FailedNoValidTargets
	}
	if sel != nil && sel != &u.Object {
		if r := c.checkRange(u.Position, sel.Position); r != FailedOk {
			return r
		}
		if !spell.IsArea() && !world.IsInFront(u.Position, u.Orientation, sel.Position) {
			return FailedUnitNotInFront
		}
		if tu := sel.Unit(); tu != nil && spell.IsHarmful() && (tu.Evading || tu.Invulnerable) {
			return FailedTargetAuraState
		}
	} else if sel == nil && c.hasTargetLoc {
		if r := c.checkRange(u.Position, c.targetLoc); r != FailedOk {
			return r
		}
	}
	if u.Silenced && !spell.IsPhysical() {
		return FailedSilenced
	}
	if spell.RequiredSkill != 0 && u.SkillLevel(spell.RequiredSkill) < spell.RequiredSkillLvl {
		return FailedMinSkill
	}
	if spell.IsTame() {
		if r := c.checkTameCast(u, sel); r != FailedOk {
			return r
		}
	}
	if cost := c.powerCost(u); cost > u.Power {
		return FailedNoPower
	}
	if len(spell.Reagents) > 0 && !u.Inventory.HasReagents(spell.Reagents) {
		return FailedReagents
	}
	if spell.RequiredItem != 0 && u.Inventory.FindByItemID(spell.RequiredItem) == nil {
		return FailedItemGone
	}
	return FailedOk
}

// checkRange treats MaxRange 0 as unlimited.
func (c *Cast) checkRange(from, to world.Vector3) FailedReason {
	d2 := from.DistanceSq(to)
	if maxR := c.spell.MaxRange; maxR > 0 && d2 > maxR*maxR {
		return FailedOutOfRange
	}
	if minR := c.spell.MinRange; minR > 0 && d2 < minR*minR {
		return FailedTooClose
	}
	return FailedOk
}

func (c *Cast) powerCost(u *world.Unit) int {
	if c.spell.PowerCost <= 0 {
		return 0
	}
	return u.Auras.GetModifiedValue(data.ModPowerCost, c.spell, c.spell.PowerCost)
}

func (c *Cast) checkTameCast(u *world.Unit, sel *world.Object) FailedReason {
	if sel == nil || sel.Unit() == nil {
		return FailedBadTargets
	}
	tu := sel.Unit()
	if !tu.Tamer.IsZero() && tu.Tamer != u.ID {
		return FailedAlreadyBeingTamed
	}
	if CheckTame(u, tu) != TameOk {
		return FailedBadTargets
	}
	return FailedOk
}

// CheckTame reports whether tamer may tame target.
func CheckTame(tamer, target *world.Unit) TameFailReason {
	switch {
	case !target.Alive():
		return TameTargetDead
	case !target.Tamable:
		return TameNotTamable
	case target.Exotic && !tamer.CanControlExotic:
		return TameCantControlExotic
	case !target.Master.IsZero():
		return TameAlreadyOwned
	case target.Level > tamer.Level:
		return TameTooHighLevel
	}
	return TameOk
}

// ==================== 完成準備 ====================

func (c *Cast) finishPrepare() (reason FailedReason) {
	defer func() {
		if p := recover(); p != nil {
			reason = c.recoverFault("finishPrepare", p)
		}
	}()

	if !c.casting {
		return FailedInterrupted
	}
	if c.castDelay > 0 {
		c.state = StateDelayed
		c.startTime = time.Now()
		if !c.passive && !c.spell.IsHidden() {
			c.engine.notifier.CastStart(c)
		}
		c.timer.Start(c.castDelay)
		c.ctx.track(c)
		return FailedOk
	}
	if c.spell.IsOnNextStrike() {
		if c.self() == nil {
			c.Cancel(FailedError)
			return FailedError
		}
		c.state = StateNextStrike
		c.ctx.pend(c)
		return FailedOk
	}
	return c.Perform()
}
