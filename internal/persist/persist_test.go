package persist

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/spellcast/internal/config"
	"go.uber.org/zap"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := MigrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || names[0] != "001_cast_log.sql" {
		t.Fatalf("migrations = %v", names)
	}
	body, err := migrations.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
		t.Fatal("migration lacks goose annotations")
	}
}

func TestOpenDisabledWithoutDSN(t *testing.T) {
	db, err := Open(context.Background(), config.DatabaseConfig{}, zap.NewNop())
	if err != nil || db != nil {
		t.Fatalf("Open = %v, %v", db, err)
	}
}

// TestCastLogRoundTrip needs a scratch PostgreSQL in SPELLCAST_TEST_DSN.
func TestCastLogRoundTrip(t *testing.T) {
	dsn := os.Getenv("SPELLCAST_TEST_DSN")
	if dsn == "" {
		t.Skip("SPELLCAST_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 2}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewCastLogRepo(db)

	now := time.Now().UTC().Truncate(time.Millisecond)
	entries := []CastLogEntry{
		{At: now, Region: 1, CasterID: 42, Caster: "alice", SpellID: 90001, Outcome: OutcomeWent, Hits: 2, Misses: 1},
		{At: now, Region: 1, CasterID: 42, Caster: "alice", SpellID: 90001, Outcome: OutcomeFailed, Reason: "interrupted"},
	}
	if err := repo.WriteBatch(ctx, entries); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Recent(ctx, 90001, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Outcome != OutcomeFailed || got[1].Hits != 2 {
		t.Fatalf("recent = %+v", got)
	}
	if _, err := repo.Prune(ctx, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
}
