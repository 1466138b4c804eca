package cast

import "fmt"

// FailedReason is the closed set of cast outcomes. Validation failures are
// returned as values, never panicked.
type FailedReason uint8

const (
	FailedOk FailedReason = iota
	FailedDontReport // handled internally, no client message
	FailedSpellInProgress
	FailedOutOfRange
	FailedTooClose
	FailedBadTargets
	FailedNoValidTargets
	FailedUnitNotInFront
	FailedTargetAuraState
	FailedCasterDead
	FailedNoPower
	FailedReagents
	FailedItemGone
	FailedMinSkill
	FailedAlreadyBeingTamed
	FailedSilenced
	FailedInterrupted
	FailedError
)

var reasonNames = [...]string{
	FailedOk:                "ok",
	FailedDontReport:        "dont_report",
	FailedSpellInProgress:   "spell_in_progress",
	FailedOutOfRange:        "out_of_range",
	FailedTooClose:          "too_close",
	FailedBadTargets:        "bad_targets",
	FailedNoValidTargets:    "no_valid_targets",
	FailedUnitNotInFront:    "unit_not_in_front",
	FailedTargetAuraState:   "target_aura_state",
	FailedCasterDead:        "caster_dead",
	FailedNoPower:           "no_power",
	FailedReagents:          "reagents",
	FailedItemGone:          "item_gone",
	FailedMinSkill:          "min_skill",
	FailedAlreadyBeingTamed: "already_being_tamed",
	FailedSilenced:          "silenced",
	FailedInterrupted:       "interrupted",
	FailedError:             "error",
}

func (r FailedReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// ParseFailedReason maps a reason name back to its value.
func ParseFailedReason(name string) (FailedReason, bool) {
	for i, n := range reasonNames {
		if n == name {
			return FailedReason(i), true
		}
	}
	return FailedOk, false
}

// Reportable reports whether the client is told about this failure.
func (r FailedReason) Reportable() bool {
	return r != FailedOk && r != FailedDontReport
}

// MissReason explains why a target was not hit.
type MissReason uint8

const (
	MissNone MissReason = iota
	MissMiss
	MissEvade
	MissImmune             // every school of the spell is blocked
	MissImmuneInvulnerable // target is invulnerable
)

func (m MissReason) String() string {
	switch m {
	case MissNone:
		return "none"
	case MissMiss:
		return "miss"
	case MissEvade:
		return "evade"
	case MissImmune:
		return "immune"
	case MissImmuneInvulnerable:
		return "immune_invulnerable"
	}
	return fmt.Sprintf("miss(%d)", uint8(m))
}

// TameFailReason is the outcome of CheckTame.
type TameFailReason uint8

const (
	TameOk TameFailReason = iota
	TameTargetDead
	TameNotTamable
	TameCantControlExotic
	TameAlreadyOwned
	TameTooHighLevel
)

func (t TameFailReason) String() string {
	switch t {
	case TameOk:
		return "ok"
	case TameTargetDead:
		return "target_dead"
	case TameNotTamable:
		return "not_tamable"
	case TameCantControlExotic:
		return "cant_control_exotic"
	case TameAlreadyOwned:
		return "already_owned"
	case TameTooHighLevel:
		return "too_high_level"
	}
	return fmt.Sprintf("tame(%d)", uint8(t))
}

// State is the lifecycle phase of a cast.
type State uint8

const (
	StateIdle State = iota
	StatePreparing
	StateDelayed
	StateNextStrike
	StateChanneling
	StatePerforming
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateDelayed:
		return "delayed"
	case StateNextStrike:
		return "next_strike"
	case StateChanneling:
		return "channeling"
	case StatePerforming:
		return "performing"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}
