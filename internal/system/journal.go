package system

import (
	"context"
	"time"

	"github.com/l1jgo/spellcast/internal/core/event"
	coresys "github.com/l1jgo/spellcast/internal/core/system"
	"github.com/l1jgo/spellcast/internal/persist"
	"go.uber.org/zap"
)

// CastLogWriter is the journal sink; persist.CastLogRepo implements it.
type CastLogWriter interface {
	WriteBatch(ctx context.Context, entries []persist.CastLogEntry) error
}

// CastLogPruner deletes journal rows older than cutoff. Optional on the
// writer.
type CastLogPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

const (
	// 單次寫入上限；超過時保留最新的部分
	maxJournalBacklog = 10000
	pruneEvery        = time.Hour
)

// JournalSystem collects finished and failed casts from the bus and writes
// them to the cast journal every interval ticks. Phase 5 (Persist).
type JournalSystem struct {
	writer    CastLogWriter
	pending   []persist.CastLogEntry
	now       func() time.Time
	log       *zap.Logger
	tickCount int
	interval  int

	retention time.Duration // 0 = keep forever
	lastPrune time.Time
}

func NewJournalSystem(bus *event.Bus, writer CastLogWriter, intervalTicks int, log *zap.Logger) *JournalSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	s := &JournalSystem{writer: writer, now: time.Now, log: log, interval: intervalTicks}
	event.Subscribe(bus, func(e event.SpellWent) {
		s.add(persist.CastLogEntry{
			Region: e.Region, CasterID: uint64(e.CasterID), Caster: e.Caster, SpellID: e.SpellID,
			Outcome: persist.OutcomeWent, Hits: len(e.Hit), Misses: len(e.Missed),
		})
	})
	event.Subscribe(bus, func(e event.CastFailed) {
		s.add(persist.CastLogEntry{
			Region: e.Region, CasterID: uint64(e.CasterID), Caster: e.Caster, SpellID: e.SpellID,
			Outcome: persist.OutcomeFailed, Reason: e.Reason,
		})
	})
	return s
}

func (s *JournalSystem) add(e persist.CastLogEntry) {
	e.At = s.now()
	s.pending = append(s.pending, e)
}

// SetRetention makes successful flushes prune rows older than d, at most
// once per hour. Needs a writer that also implements CastLogPruner.
func (s *JournalSystem) SetRetention(d time.Duration) {
	s.retention = d
}

// Pending returns how many entries wait for the next flush.
func (s *JournalSystem) Pending() int { return len(s.pending) }

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush writes every pending entry. On failure the entries are kept for the
// next attempt, bounded by maxJournalBacklog. Also called on shutdown.
func (s *JournalSystem) Flush() {
	if len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.WriteBatch(ctx, s.pending); err != nil {
		s.log.Error("施法日誌寫入失敗", zap.Int("entries", len(s.pending)), zap.Error(err))
		if over := len(s.pending) - maxJournalBacklog; over > 0 {
			s.pending = append(s.pending[:0], s.pending[over:]...)
		}
		return
	}
	s.pending = s.pending[:0]
	s.prune(ctx)
}

func (s *JournalSystem) prune(ctx context.Context) {
	pruner, ok := s.writer.(CastLogPruner)
	if !ok || s.retention <= 0 {
		return
	}
	now := s.now()
	if !s.lastPrune.IsZero() && now.Sub(s.lastPrune) < pruneEvery {
		return
	}
	s.lastPrune = now
	n, err := pruner.Prune(ctx, now.Add(-s.retention))
	if err != nil {
		s.log.Warn("施法日誌清理失敗", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("施法日誌已清理", zap.Int64("rows", n), zap.Duration("retention", s.retention))
	}
}
