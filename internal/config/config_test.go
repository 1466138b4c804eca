package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[cast]
max_pushbacks = 3
pushback_delay = "250ms"

[hit]
per_level_pvp = 5
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Cast.MaxPushbacks != 3 {
		t.Errorf("max_pushbacks = %d", cfg.Cast.MaxPushbacks)
	}
	if cfg.Cast.PushbackDelay != 250*time.Millisecond {
		t.Errorf("pushback_delay = %v", cfg.Cast.PushbackDelay)
	}
	if cfg.Hit.PerLevelPvP != 5 {
		t.Errorf("per_level_pvp = %d", cfg.Hit.PerLevelPvP)
	}
	// untouched keys keep their defaults
	if cfg.Hit.EqualLevelChance != 96 || cfg.Cast.ChannelPushbackFraction != 4 {
		t.Errorf("defaults lost: %+v %+v", cfg.Hit, cfg.Cast)
	}
	if cfg.Server.StartTime == 0 {
		t.Error("start time not stamped")
	}
}

func TestParseRejectsBadHitRange(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"min above max", "[hit]\nmin_chance = 60\nmax_chance = 50\n"},
		{"max above 100", "[hit]\nmax_chance = 101\n"},
		{"player min below min", "[hit]\nmin_chance = 5\nplayer_min_chance = 1\n"},
		{"zero fraction", "[cast]\nchannel_pushback_fraction = 0\n"},
		{"zero packets per tick", "[network]\nmax_packets_per_tick = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.toml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadHonoursEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alt.toml")
	if err := os.WriteFile(path, []byte("[server]\nname = \"alt\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPath, path)

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Name != "alt" {
		t.Errorf("name = %q", cfg.Server.Name)
	}
}

func TestShippedConfigLoads(t *testing.T) {
	t.Setenv(EnvPath, "")
	cfg, err := Load("../../config/castd.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DSN != "" {
		t.Errorf("shipped config should keep the journal off, dsn = %q", cfg.Database.DSN)
	}
	if len(cfg.Server.Regions) != 2 || cfg.Network.MaxPacketsPerTick != 32 {
		t.Errorf("unexpected server/network: %+v %+v", cfg.Server, cfg.Network)
	}
	if cfg.Database.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("conn_max_lifetime = %v", cfg.Database.ConnMaxLifetime)
	}
}
