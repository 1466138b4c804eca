package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/l1jgo/spellcast/internal/cast"
	"github.com/l1jgo/spellcast/internal/config"
	"github.com/l1jgo/spellcast/internal/core/event"
	coresys "github.com/l1jgo/spellcast/internal/core/system"
	"github.com/l1jgo/spellcast/internal/data"
	"github.com/l1jgo/spellcast/internal/effect"
	"github.com/l1jgo/spellcast/internal/feed"
	"github.com/l1jgo/spellcast/internal/handler"
	gonet "github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"github.com/l1jgo/spellcast/internal/persist"
	"github.com/l1jgo/spellcast/internal/scripting"
	"github.com/l1jgo/spellcast/internal/system"
	"github.com/l1jgo/spellcast/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             spellcast  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          施法引擎 · Go 區域伺服器         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config (SPELLCAST_CONFIG overrides the path)
	cfg, err := config.Load("config/castd.toml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Optional cast journal database
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if db != nil {
		defer db.Close()
		printOK("PostgreSQL 連線成功，施法日誌啟用")
	} else {
		printOK("未設定 DSN，施法日誌停用")
	}
	fmt.Println()

	var castLog *persist.CastLogRepo
	if db != nil {
		castLog = persist.NewCastLogRepo(db)
	}

	// 4. Spell data
	printSection("資料載入")

	spells, err := data.LoadSpellTable(cfg.Server.SpellFile)
	if err != nil {
		return fmt.Errorf("load spell table: %w", err)
	}
	printStat("法術", spells.Count())

	var creatureSpells *data.CreatureSpellTable
	if cfg.Server.AIFile != "" {
		creatureSpells, err = data.LoadCreatureSpellTable(cfg.Server.AIFile)
		if err != nil {
			return fmt.Errorf("load creature spells: %w", err)
		}
		printStat("怪物施法", creatureSpells.Count())
	}

	// 5. World regions
	bus := event.NewBus()
	w := world.New(log)
	for _, id := range cfg.Server.Regions {
		w.AddRegion(id, fmt.Sprintf("region-%d", id))
	}
	printStat("區域", len(w.Regions()))

	// 6. Cast engine, effects and scripts
	engine := cast.NewEngine(cfg, spells, w, log,
		cast.WithNotifier(cast.Notifiers{handler.PacketNotifier{}, cast.BusNotifier{Bus: bus}}),
		cast.WithAITargeter(system.HostileTargeter{}),
	)

	var scripts effect.ScriptRunner
	if cfg.Scripting.Enabled {
		luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer luaEngine.Close()
		hooks := scripting.NewSpellHooks(luaEngine)
		engine.AddHooks(hooks)
		scripts = hooks
		printOK("Lua 腳本載入完成")
	}
	effect.RegisterAll(engine, scripts, log)
	fmt.Println()

	// 7. Packet handlers
	sessions := gonet.NewSessionStore()
	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Config:   cfg,
		Log:      log,
		World:    w,
		Spells:   spells,
		Casts:    engine,
		Sessions: sessions,
	}
	handler.RegisterAll(pktReg, deps)

	// 8. Network server
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.SessionOptions{
		InSize:       cfg.Network.InQueueSize,
		OutSize:      cfg.Network.OutQueueSize,
		PktPerSec:    cfg.Network.MaxPacketsPerSecond,
		WriteTimeout: cfg.Network.WriteTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 9. GM feed; health numbers are published by the game loop
	var health atomic.Pointer[feed.Health]
	health.Store(&feed.Health{Spells: spells.Count()})
	var feedServer *feed.Server
	if cfg.Network.FeedAddress != "" {
		hub := feed.NewHub(log)
		hub.Attach(bus)
		feedServer = feed.NewServer(cfg.Network.FeedAddress, hub, spells, func() feed.Health {
			return *health.Load()
		}, log)
		if castLog != nil {
			feedServer.SetJournal(castLog)
		}
		go func() {
			if err := feedServer.ListenAndServe(); err != nil {
				log.Error("GM feed 停止", zap.Error(err))
			}
		}()
	}

	// 10. Systems
	runner := coresys.NewRunner()
	inputSys := system.NewInputSystem(netServer, pktReg, deps, cfg.Network.MaxPacketsPerTick, log)
	runner.Register(inputSys)
	runner.Register(system.NewEventDispatchSystem(bus))
	for _, r := range w.Regions() {
		if creatureSpells != nil {
			runner.Register(system.NewAICastSystem(engine, r, creatureSpells, log))
		}
		runner.Register(system.NewCastSystem(engine, r))
		runner.Register(system.NewAuraSystem(r))
		runner.Register(system.NewCleanupSystem(r))
	}
	runner.Register(system.NewOutputSystem(sessions))

	var journal *system.JournalSystem
	if db != nil {
		journal = system.NewJournalSystem(bus, castLog, cfg.Database.FlushTicks, log)
		journal.SetRetention(cfg.Database.Retention)
		runner.Register(journal)
	}

	// 11. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	if feedServer != nil {
		printReady(fmt.Sprintf("GM feed %s", cfg.Network.FeedAddress))
	}
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
			live, idle := engine.PoolStats()
			health.Store(&feed.Health{
				UptimeSec: time.Now().Unix() - cfg.Server.StartTime,
				Sessions:  inputSys.SessionCount(),
				CastsLive: live,
				CastsIdle: idle,
				Spells:    spells.Count(),
			})
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			if journal != nil {
				journal.Flush()
			}
			netServer.Shutdown()
			if feedServer != nil {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := feedServer.Shutdown(sctx); err != nil {
					log.Warn("GM feed 關閉失敗", zap.Error(err))
				}
				scancel()
			}
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
