// previewgen renders a deterministic offline session to a PNG frame
// sequence. The engine is stepped one tick per frame instead of running
// its own loop, so frame N always shows tick N and the same seed always
// produces the same footage.
package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chroma-chain/internal/api"
	"chroma-chain/internal/autoplay"
	"chroma-chain/internal/config"
	"chroma-chain/internal/game"
	"chroma-chain/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	}

	log.Println("🎬 ================================")
	log.Println("🎬  CHROMA CHAIN - PREVIEW GEN")
	log.Println("🎬 ================================")

	appConfig := config.Load()
	renderCfg := appConfig.Render

	frames := getEnvInt("RENDER_FRAMES", renderCfg.FPS*30) // 30 seconds by default
	seed := appConfig.Game.Seed
	if seed == 0 {
		seed = 42 // fixed seed so reruns produce identical footage
	}

	log.Printf("🎬 %d frames at %d FPS (%dx%d) → %s, seed=%d",
		frames, renderCfg.FPS, renderCfg.Width, renderCfg.Height, renderCfg.OutputDir, seed)

	// The engine is never Start()ed: the snapshot source steps it manually
	engineCfg := buildEngineConfig(appConfig)
	engineCfg.Seed = seed
	engine := game.NewEngine(engineCfg)

	if appConfig.EventLog.Enabled {
		if err := engine.StartEventLog(appConfig.EventLog.Path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		}
	}

	source := render.NewSteppedEngineSource(engine)
	leaderboard := engine.GetLeaderboard()
	renderer := render.NewRenderer(render.Config{
		Width:         renderCfg.Width,
		Height:        renderCfg.Height,
		FPS:           renderCfg.FPS,
		FrameObserver: api.RecordRender,
	}, source, engine.TrackOutline(), func(n int) []game.LeaderboardEntry {
		return leaderboard.GetTop(n)
	})

	sink := render.NewPNGSequenceWriter(renderCfg.OutputDir, renderCfg.Width, renderCfg.Height)
	sink.Start(renderCfg.FPS)

	// The autoplay bot aims at the stepped engine. Its wall-clock cadence
	// lines up because the frame loop below also runs in real time.
	bot := autoplay.NewBot(engine, "autoplay", seed)
	bot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Pace frames at the target FPS so the sink keeps up and the bot's
	// timers track game time.
	frameInterval := time.Second / time.Duration(renderCfg.FPS)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	rendered := 0
loop:
	for rendered < frames {
		select {
		case <-quit:
			log.Println("🛑 Interrupted")
			break loop
		case <-ticker.C:
			frame := renderer.RenderNext()
			if frame == nil {
				continue
			}
			if !sink.TryWrite(frame) {
				log.Println("⚠️ Frame dropped - encoder behind")
			}
			rendered++

			if rendered%(renderCfg.FPS*5) == 0 {
				state := engine.GetState()
				log.Printf("🎬 %d/%d frames · tick %d · %d in chain · score %d",
					rendered, frames, state.TickCount, state.ActiveCount, state.Score)
			}
		}
	}

	bot.Stop()
	sink.Stop()
	engine.StopEventLog()

	stats := sink.GetStats()
	log.Printf("✅ Done: %d frames rendered, %v encoded, %v dropped",
		rendered, stats["framesEncoded"], stats["bufferDropped"])
	log.Printf("💡 Encode with: ffmpeg -framerate %d -i %s/frame_%%06d.png -c:v libx264 -pix_fmt yuv420p preview.mp4",
		renderCfg.FPS, renderCfg.OutputDir)
}

// buildEngineConfig maps the app configuration onto the engine tuning.
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

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
