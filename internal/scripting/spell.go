package scripting

import (
	"fmt"

	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// SpellHooks connects spell script tables to the cast lifecycle. A spell
// whose definition names a script table may define, in that table:
//
//	on_casting(ctx)            return nil or a failure reason name to veto
//	on_cancelled(ctx, reason)
//	special_cast(ctx)          return true when the request was handled
//
// Script effects call a global function fn(ctx, targets).
type SpellHooks struct {
	*Engine
}

func NewSpellHooks(e *Engine) *SpellHooks {
	return &SpellHooks{Engine: e}
}

func (h *SpellHooks) OnCasting(c *cast.Cast) cast.FailedReason {
	fn := h.spellFunc(c.Spell().Script, "on_casting")
	if fn == nil {
		return cast.FailedOk
	}
	result, err := h.call(fn, h.castTable(c))
	if err != nil {
		h.log.Error("lua on_casting error", zap.Uint32("spell", c.Spell().ID), zap.Error(err))
		return cast.FailedError
	}
	name := ""
	switch v := result.(type) {
	case lua.LString:
		name = string(v)
	case *lua.LTable:
		name = lStr(v, "reason")
	}
	if name == "" {
		return cast.FailedOk
	}
	reason, ok := cast.ParseFailedReason(name)
	if !ok {
		h.log.Warn("lua on_casting returned unknown reason",
			zap.Uint32("spell", c.Spell().ID), zap.String("reason", name))
		return cast.FailedError
	}
	return reason
}

func (h *SpellHooks) OnCancelled(c *cast.Cast, reason cast.FailedReason) {
	fn := h.spellFunc(c.Spell().Script, "on_cancelled")
	if fn == nil {
		return
	}
	if _, err := h.call(fn, h.castTable(c), lua.LString(reason.String())); err != nil {
		h.log.Error("lua on_cancelled error", zap.Uint32("spell", c.Spell().ID), zap.Error(err))
	}
}

func (h *SpellHooks) SpecialCast(c *cast.Cast, selected *world.Object, loc world.Vector3) bool {
	fn := h.spellFunc(c.Spell().Script, "special_cast")
	if fn == nil {
		return false
	}
	ctx := h.castTable(c)
	if selected != nil {
		ctx.RawSetString("selected", h.objectTable(selected))
	}
	ctx.RawSetString("x", lua.LNumber(loc.X))
	ctx.RawSetString("y", lua.LNumber(loc.Y))
	ctx.RawSetString("z", lua.LNumber(loc.Z))
	result, err := h.call(fn, ctx)
	if err != nil {
		h.log.Error("lua special_cast error", zap.Uint32("spell", c.Spell().ID), zap.Error(err))
		return false
	}
	return lua.LVAsBool(result)
}

// RunEffect implements effect.ScriptRunner.
func (h *SpellHooks) RunEffect(name string, c *cast.Cast, targets []*world.Object) error {
	fn, ok := h.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return fmt.Errorf("lua function %s not found", name)
	}
	list := h.vm.NewTable()
	for _, t := range targets {
		list.Append(h.objectTable(t))
	}
	if _, err := h.call(fn, h.castTable(c), list); err != nil {
		return fmt.Errorf("lua %s: %w", name, err)
	}
	return nil
}

// castTable packs the cast for a script call.
func (h *SpellHooks) castTable(c *cast.Cast) *lua.LTable {
	t := h.vm.NewTable()
	spell := c.Spell()
	t.RawSetString("spell_id", lua.LNumber(spell.ID))
	t.RawSetString("spell_name", lua.LString(spell.Name))
	ref := c.CasterRef()
	t.RawSetString("caster_id", lua.LNumber(ref.ID))
	t.RawSetString("caster_name", lua.LString(ref.Name))
	level := ref.Level
	if u := c.CasterUnit(); u != nil {
		level = u.Level
	}
	t.RawSetString("caster_level", lua.LNumber(level))
	t.RawSetString("caster_kind", lua.LString(ref.Kind.String()))
	t.RawSetString("depth", lua.LNumber(c.Depth()))
	t.RawSetString("player_cast", lua.LBool(c.IsPlayerCast()))
	if sel := c.Selected(); sel != nil {
		t.RawSetString("target_id", lua.LNumber(sel.ID))
	}
	return t
}

func (h *SpellHooks) objectTable(o *world.Object) *lua.LTable {
	t := h.vm.NewTable()
	t.RawSetString("id", lua.LNumber(o.ID))
	t.RawSetString("name", lua.LString(o.Name))
	t.RawSetString("kind", lua.LString(o.Kind.String()))
	if u := o.Unit(); u != nil {
		t.RawSetString("level", lua.LNumber(u.Level))
		t.RawSetString("health", lua.LNumber(u.Health))
	}
	return t
}
