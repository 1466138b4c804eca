package effect

import (
	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
)

// Script hands the targets to a Lua function.
type Script struct {
	eff    *data.Effect
	runner ScriptRunner
	log    *zap.Logger
}

func (h *Script) Init(*cast.Cast) cast.FailedReason {
	if h.runner == nil || h.eff.Script == "" {
		return cast.FailedError
	}
	return cast.FailedOk
}

func (h *Script) Apply(c *cast.Cast, targets []*world.Object) {
	if err := h.runner.RunEffect(h.eff.Script, c, targets); err != nil {
		h.log.Warn("腳本效果執行失敗",
			zap.Uint32("spell", c.Spell().ID),
			zap.String("func", h.eff.Script),
			zap.Error(err))
	}
}

func (h *Script) Cleanup() {}
