package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chroma-chain/internal/api"
	"chroma-chain/internal/autoplay"
	"chroma-chain/internal/command"
	"chroma-chain/internal/config"
	"chroma-chain/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🔮 ================================")
	log.Println("🔮  CHROMA CHAIN - GO ENGINE")
	log.Println("🔮  Marble chain arena")
	log.Println("🔮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	gameCfg := appConfig.Game
	serverCfg := appConfig.Server

	port := strconv.Itoa(serverCfg.Port)

	log.Printf("🎮 Config: %d TPS, %.0fx%.0f playfield, %d lives, policy=%s",
		gameCfg.TickRate, gameCfg.WorldWidth, gameCfg.WorldHeight, gameCfg.Lives, appConfig.Chain.Policy)

	// Create game engine with centralized config
	engine := game.NewEngine(buildEngineConfig(appConfig))
	limits := engine.GetLimits()
	log.Printf("🛡️ Resource limits: %d marbles, %d shots, %d bursts, %d pops",
		limits.MaxMarbles, limits.MaxShots, limits.MaxBursts, limits.MaxPops)

	// Start event log
	if appConfig.EventLog.Enabled {
		if err := engine.StartEventLog(appConfig.EventLog.Path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
		}
	}

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Admin authentication setup
	var sessionManager *api.SessionManager
	if serverCfg.AdminAuthEnabled {
		sessionManager = api.NewSessionManager(serverCfg.AdminToken)
		log.Println("🔐 Admin authentication ENABLED")
	} else {
		log.Println("⚠️ Admin authentication DISABLED (set ADMIN_AUTH_ENABLED=true to enable)")
	}

	server := api.NewServerWithAuth(engine, sessionManager)

	// Feed the game-side metrics: counters from engine callbacks, timings
	// from the tick observer, gauges sampled on a one-second ticker.
	engine.SetObserver(game.EngineObserver{
		TickDone:  api.RecordTick,
		ShotFired: api.RecordShot,
	})
	engine.SetCallbacks(
		func(p game.MatchPayload) {
			api.RecordMatch(p.RunSize)
			api.UpdateCombo(p.Combo)
		},
		func(game.OverrunPayload) { api.RecordOverrun() },
		nil,
	)
	go func() {
		for range time.Tick(time.Second) {
			state := engine.GetState()
			api.UpdateChainLength(state.ChainLength)
			api.UpdateCombo(state.Combo)
		}
	}()

	// Start game engine
	engine.Start()
	log.Println("✅ Game Engine started")

	// Text command pipeline: terminal operators drive the launcher through
	// the same rate-limited queue remote clients would
	cmdHandler := command.NewHandler(engine)
	cmdQueue := command.NewCommandQueue(cmdHandler, command.DefaultQueueConfig())
	cmdQueue.Start()
	go readConsoleCommands(cmdQueue)

	// Optional autoplay bot keeps the arena alive with nobody connected
	var bot *autoplay.Bot
	if os.Getenv("AUTOPLAY") == "true" {
		bot = autoplay.NewBot(engine, "autoplay", gameCfg.Seed)
		bot.Start()
		log.Println("🤖 Autoplay bot started")
	}

	// Start API server in goroutine
	go func() {
		addr := ":" + port
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("🔌 WebSocket: ws://localhost%s/ws", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	if bot != nil {
		bot.Stop()
	}
	cmdQueue.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}

	engine.StopEventLog()
	engine.Stop()
	log.Println("👋 Goodbye!")
}

// buildEngineConfig maps the app configuration onto the engine tuning,
// keeping engine defaults for anything the config does not cover.
func buildEngineConfig(app config.AppConfig) game.EngineConfig {
	cfg := game.DefaultEngineConfig()

	cfg.TickRate = app.Game.TickRate
	cfg.WorldWidth = app.Game.WorldWidth
	cfg.WorldHeight = app.Game.WorldHeight
	cfg.Lives = app.Game.Lives
	cfg.Seed = app.Game.Seed

	cfg.Chain.Policy = game.PolicyCompacting
	if app.Chain.Policy == "placeholder" {
		cfg.Chain.Policy = game.PolicyPlaceholder
	}
	cfg.Chain.MatchMin = app.Chain.MatchMin
	cfg.Chain.RollbackTicks = app.Chain.RollbackTicks
	cfg.Chain.VanishStaggerTicks = app.Chain.VanishStaggerTicks

	cfg.Track.StepSize = app.Track.StepSize
	cfg.Track.MinDistance = app.Track.MinDistance
	cfg.Track.MaxParametric = app.Track.MaxParametric

	cfg.Spawner.IntervalTicks = app.Spawner.IntervalTicks
	cfg.Spawner.PrefeedCount = app.Spawner.PrefeedCount
	cfg.Spawner.PaletteSize = app.Spawner.PaletteSize
	cfg.Spawner.TotalMarbles = app.Spawner.TotalMarbles

	cfg.Launcher.CooldownTicks = app.Launcher.CooldownTicks
	cfg.Launcher.ShotSpeed = app.Launcher.ShotSpeed
	cfg.Launcher.CatchUpFactor = app.Launcher.CatchUpFactor

	cfg.Limits = game.ResourceLimits{
		MaxMarbles: app.Limits.MaxMarbles,
		MaxShots:   app.Limits.MaxShots,
		MaxBursts:  app.Limits.MaxBursts,
		MaxPops:    app.Limits.MaxPops,
	}

	return cfg
}

// readConsoleCommands feeds stdin lines like "shoot 45" or "swap" into the
// command queue under the owner "console".
func readConsoleCommands(queue *command.CommandQueue) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		queue.Enqueue(command.Command{
			Name:       strings.ToLower(parts[0]),
			Args:       parts[1:],
			Owner:      "console",
			ReceivedAt: time.Now(),
		})
	}
}
