package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// 施法結果
const (
	OutcomeWent   = "went"
	OutcomeFailed = "failed"
)

// CastLogEntry is one row of the cast journal.
type CastLogEntry struct {
	At       time.Time
	Region   uint32
	CasterID uint64
	Caster   string
	SpellID  uint32
	Outcome  string
	Reason   string
	Hits     int
	Misses   int
}

type CastLogRepo struct {
	db *DB
}

func NewCastLogRepo(db *DB) *CastLogRepo {
	return &CastLogRepo{db: db}
}

// WriteBatch inserts entries in a single transaction.
func (r *CastLogRepo) WriteBatch(ctx context.Context, entries []CastLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cast log begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO cast_log (logged_at, region_id, caster_id, caster_name, spell_id, outcome, reason, hits, misses)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.At, int32(e.Region), int64(e.CasterID), e.Caster, int32(e.SpellID), e.Outcome, e.Reason, int16(e.Hits), int16(e.Misses),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("cast log insert: %w", err)
	}
	return tx.Commit(ctx)
}

// Recent returns the newest entries of a spell (0 = any), newest first.
func (r *CastLogRepo) Recent(ctx context.Context, spellID uint32, limit int) ([]CastLogEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT logged_at, region_id, caster_id, caster_name, spell_id, outcome, reason, hits, misses
		 FROM cast_log
		 WHERE $1 = 0 OR spell_id = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		int32(spellID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("cast log query: %w", err)
	}
	defer rows.Close()

	var result []CastLogEntry
	for rows.Next() {
		var (
			e             CastLogEntry
			region, spell int32
			caster        int64
			hits, misses  int16
		)
		if err := rows.Scan(&e.At, &region, &caster, &e.Caster, &spell, &e.Outcome, &e.Reason, &hits, &misses); err != nil {
			return nil, fmt.Errorf("cast log scan: %w", err)
		}
		e.Region = uint32(region)
		e.CasterID = uint64(caster)
		e.SpellID = uint32(spell)
		e.Hits, e.Misses = int(hits), int(misses)
		result = append(result, e)
	}
	return result, rows.Err()
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (r *CastLogRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM cast_log WHERE logged_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cast log prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
