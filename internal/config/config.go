package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config path given on the command line.
const EnvPath = "SPELLCAST_CONFIG"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	Logging   LoggingConfig   `toml:"logging"`
	Cast      CastConfig      `toml:"cast"`
	Hit       HitConfig       `toml:"hit"`
	Scripting ScriptingConfig `toml:"scripting"`
}

type ServerConfig struct {
	Name      string   `toml:"name"`
	ID        int      `toml:"id"`
	SpellFile string   `toml:"spell_file"` // YAML spell table
	AIFile    string   `toml:"creature_spell_file"`
	Regions   []uint32 `toml:"regions"`    // region (map) ids hosted by this process
	StartTime int64    // set at boot, not from config
}

// DatabaseConfig 為空 DSN 時停用施法日誌。
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	FlushTicks      int           `toml:"flush_ticks"` // cast journal flush interval
	Retention       time.Duration `toml:"retention"`   // journal rows older than this are pruned, 0 = keep
}

type NetworkConfig struct {
	BindAddress         string        `toml:"bind_address"`
	TickRate            time.Duration `toml:"tick_rate"`
	InQueueSize         int           `toml:"in_queue_size"`
	OutQueueSize        int           `toml:"out_queue_size"`
	MaxPacketsPerTick   int           `toml:"max_packets_per_tick"`
	MaxPacketsPerSecond int           `toml:"max_packets_per_second"` // 0 = unlimited
	FeedAddress         string        `toml:"feed_address"`           // GM websocket feed, empty = off
	WriteTimeout        time.Duration `toml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// CastConfig holds cast lifecycle tunables.
type CastConfig struct {
	PushbackDelay           time.Duration `toml:"pushback_delay"`            // added to a delayed cast per hit
	ChannelPushbackFraction int           `toml:"channel_pushback_fraction"` // channel loses duration/N per hit
	MaxPushbacks            int           `toml:"max_pushbacks"`
	InstantThreshold        time.Duration `toml:"instant_threshold"` // shorter delays collapse to instant
	MaxTriggerDepth         int           `toml:"max_trigger_depth"`
}

// HitConfig holds the spell hit table. Chances are percentages.
type HitConfig struct {
	EqualLevelChance int `toml:"equal_level_chance"`
	PerLevelPvP      int `toml:"per_level_pvp"`
	PerLevelPvE      int `toml:"per_level_pve"`
	MinChance        int `toml:"min_chance"`
	PlayerMinChance  int `toml:"player_min_chance"`
	MaxChance        int `toml:"max_chance"`
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Load reads path (or $SPELLCAST_CONFIG when set) over the defaults.
func Load(path string) (*Config, error) {
	if env := os.Getenv(EnvPath); env != "" {
		path = env
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Network.TickRate <= 0 {
		return fmt.Errorf("network.tick_rate must be positive")
	}
	if c.Network.MaxPacketsPerTick <= 0 {
		return fmt.Errorf("network.max_packets_per_tick must be positive")
	}
	if c.Cast.ChannelPushbackFraction <= 0 {
		return fmt.Errorf("cast.channel_pushback_fraction must be positive")
	}
	if c.Cast.MaxPushbacks < 0 {
		return fmt.Errorf("cast.max_pushbacks must not be negative")
	}
	if c.Cast.MaxTriggerDepth <= 0 {
		return fmt.Errorf("cast.max_trigger_depth must be positive")
	}
	h := c.Hit
	if h.MinChance < 0 || h.MaxChance > 100 || h.MinChance > h.MaxChance {
		return fmt.Errorf("hit chance range [%d,%d] invalid", h.MinChance, h.MaxChance)
	}
	if h.PlayerMinChance < h.MinChance || h.PlayerMinChance > h.MaxChance {
		return fmt.Errorf("hit.player_min_chance %d outside [%d,%d]", h.PlayerMinChance, h.MinChance, h.MaxChance)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "spellcast",
			ID:        1,
			SpellFile: "data/yaml/spells.yaml",
			AIFile:    "data/yaml/creature_spells.yaml",
			Regions:   []uint32{0},
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			FlushTicks:      25,
			Retention:       7 * 24 * time.Hour,
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:7001",
			TickRate:          200 * time.Millisecond,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			FeedAddress:       "127.0.0.1:7070",
			WriteTimeout:      10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Cast: CastConfig{
			PushbackDelay:           500 * time.Millisecond,
			ChannelPushbackFraction: 4,
			MaxPushbacks:            2,
			InstantThreshold:        100 * time.Millisecond,
			MaxTriggerDepth:         8,
		},
		Hit: HitConfig{
			EqualLevelChance: 96,
			PerLevelPvP:      7,
			PerLevelPvE:      11,
			MinChance:        0,
			PlayerMinChance:  1,
			MaxChance:        100,
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
		},
	}
}
