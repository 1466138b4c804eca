package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/config"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/effect"
	"github.com/l1jgo/spellcast/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const testScript = `
cancelled = {}

warded = {
  on_casting = function(ctx)
    if ctx.caster_level < 5 then return "silenced" end
    return nil
  end,
  on_cancelled = function(ctx, reason)
    table.insert(cancelled, reason)
  end,
}

portal = {
  special_cast = function(ctx)
    portal_x = ctx.x
    return true
  end,
}

function burn(ctx, targets)
  for _, t in ipairs(targets) do
    burned = (burned or 0) + 1
    burned_name = t.name
  end
end
`

func writeScripts(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	spellDir := filepath.Join(dir, "spell")
	if err := os.MkdirAll(spellDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(spellDir, "test.lua"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

type scriptEnv struct {
	lua    *Engine
	engine *cast.Engine
	ctx    *cast.Context
	caster *world.Unit
}

func newScriptEnv(t *testing.T, spells ...*data.Spell) *scriptEnv {
	t.Helper()
	le, err := NewEngine(writeScripts(t, testScript), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(le.Close)

	w := world.New(zap.NewNop())
	r := w.AddRegion(1, "test")
	hooks := NewSpellHooks(le)
	e := cast.NewEngine(config.Defaults(), data.NewSpellTable(spells...), w, zap.NewNop())
	e.AddHooks(hooks)
	effect.RegisterAll(e, hooks, zap.NewNop())

	caster := world.NewUnit(world.KindPlayer, 0, "mage", 3)
	r.SpawnUnit(caster, world.Vector3{})
	return &scriptEnv{lua: le, engine: e, ctx: e.Context(r), caster: caster}
}

func (s *scriptEnv) global(name string) lua.LValue {
	return s.lua.vm.GetGlobal(name)
}

func TestOnCastingVeto(t *testing.T) {
	spell := &data.Spell{ID: 1, Script: "warded", Effects: []data.Effect{{Type: effect.TypeDummy}}}
	s := newScriptEnv(t, spell)
	c := s.ctx.CastOf(&s.caster.Object)

	if r := c.Start(spell, false); r != cast.FailedSilenced {
		t.Fatalf("low level cast = %s", r)
	}
	cancelled := s.global("cancelled").(*lua.LTable)
	if cancelled.Len() != 1 || cancelled.RawGetInt(1).String() != "silenced" {
		t.Fatalf("on_cancelled calls = %d", cancelled.Len())
	}

	s.caster.Level = 10
	if r := c.Start(spell, false); r != cast.FailedOk {
		t.Fatalf("cast = %s", r)
	}
}

func TestSpecialCast(t *testing.T) {
	spell := &data.Spell{ID: 2, Script: "portal", Attributes: data.AttrSpecialCast}
	s := newScriptEnv(t, spell)
	c := s.ctx.CastOf(&s.caster.Object)

	r := c.StartRequest(spell, cast.Request{
		TargetFlags: cast.TargetDestinationLocation,
		Destination: world.Vector3{X: 12},
	})
	if r != cast.FailedDontReport {
		t.Fatalf("special cast = %s", r)
	}
	if got := lua.LVAsNumber(s.global("portal_x")); got != 12 {
		t.Fatalf("portal_x = %v", got)
	}
	if c.IsCasting() {
		t.Fatal("special cast left the cast running")
	}
}

func TestScriptEffect(t *testing.T) {
	spell := &data.Spell{ID: 3, Effects: []data.Effect{{Type: effect.TypeScript, Script: "burn"}}}
	missing := &data.Spell{ID: 4, Effects: []data.Effect{{Type: effect.TypeScript, Script: "nope"}}}
	s := newScriptEnv(t, spell, missing)
	c := s.ctx.CastOf(&s.caster.Object)

	if r := c.Start(spell, false); r != cast.FailedOk {
		t.Fatalf("cast = %s", r)
	}
	if lua.LVAsNumber(s.global("burned")) != 1 || lua.LVAsString(s.global("burned_name")) != "mage" {
		t.Fatal("burn did not see the caster")
	}
	// a missing function is logged, the cast itself still goes off
	if r := c.Start(missing, false); r != cast.FailedOk {
		t.Fatalf("missing function cast = %s", r)
	}
}

func TestNewEngineRejectsBrokenScript(t *testing.T) {
	if _, err := NewEngine(writeScripts(t, "function ("), zap.NewNop()); err == nil {
		t.Fatal("expected a load error")
	}
}

func TestShippedScriptsLoad(t *testing.T) {
	e, err := NewEngine("../../scripts", zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	for _, field := range []string{"on_casting", "on_cancelled"} {
		if e.spellFunc("judgement", field) == nil {
			t.Errorf("judgement.%s missing", field)
		}
	}
	if _, ok := e.vm.GetGlobal("judgement_effect").(*lua.LFunction); !ok {
		t.Error("judgement_effect missing")
	}
}
