// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all game and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds the engine-level tuning: tick rate, playfield size and
// round rules. The tick rate is shared with the preview renderer so recorded
// sessions replay at the speed they were played.
type GameConfig struct {
	TickRate    int     // Simulation ticks per second
	WorldWidth  float64 // Playfield width in world units (also render pixels)
	WorldHeight float64 // Playfield height in world units
	Lives       int     // Marbles allowed off the track end before the round fails
	Seed        int64   // RNG seed, 0 for time-based
}

// DefaultGame returns the default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate:    20,
		WorldWidth:  1280, // 720p playfield
		WorldHeight: 720,
		Lives:       3,
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if tps := getEnvInt("GAME_TPS", 0); tps > 0 {
		cfg.TickRate = tps
	}
	if w := getEnvFloat("WORLD_WIDTH", 0); w > 0 {
		cfg.WorldWidth = w
	}
	if h := getEnvFloat("WORLD_HEIGHT", 0); h > 0 {
		cfg.WorldHeight = h
	}
	if l := getEnvInt("GAME_LIVES", 0); l > 0 {
		cfg.Lives = l
	}
	if s := getEnvInt("GAME_SEED", 0); s != 0 {
		cfg.Seed = int64(s)
	}

	return cfg
}

// =============================================================================
// CHAIN CONFIGURATION
// =============================================================================

// ChainConfig holds the sequence-management tuning. Policy selects how
// cleared slots reshape the chain: "compacting" closes the gap, "placeholder"
// leaves a ghost.
type ChainConfig struct {
	Policy             string // "compacting" or "placeholder"
	MatchMin           int    // Run size needed to clear
	RollbackTicks      int    // Duration of the backward ease after a clear
	VanishStaggerTicks int    // Per-marble delay within a cleared run
}

// DefaultChain returns the default chain configuration.
func DefaultChain() ChainConfig {
	return ChainConfig{
		Policy:             "compacting",
		MatchMin:           3,
		RollbackTicks:      8,
		VanishStaggerTicks: 2,
	}
}

// ChainFromEnv returns chain configuration with environment variable overrides.
func ChainFromEnv() ChainConfig {
	cfg := DefaultChain()

	if p := os.Getenv("CHAIN_POLICY"); p == "compacting" || p == "placeholder" {
		cfg.Policy = p
	}
	if m := getEnvInt("CHAIN_MATCH_MIN", 0); m >= 2 {
		cfg.MatchMin = m
	}
	if r := getEnvInt("CHAIN_ROLLBACK_TICKS", 0); r > 0 {
		cfg.RollbackTicks = r
	}
	if v := getEnvInt("CHAIN_VANISH_STAGGER", -1); v >= 0 {
		cfg.VanishStaggerTicks = v
	}

	return cfg
}

// =============================================================================
// TRACK CONFIGURATION
// =============================================================================

// TrackConfig holds the waypoint table build parameters. StepSize must stay
// small relative to MinDistance or waypoint spacing becomes irregular.
type TrackConfig struct {
	StepSize      float64 // Parametric walk increment for the table build
	MinDistance   float64 // Minimum world distance between waypoints
	MaxParametric float64 // Slots past this parametric position count as finished
}

// DefaultTrack returns the default track configuration.
func DefaultTrack() TrackConfig {
	return TrackConfig{
		StepSize:      0.0005,
		MinDistance:   34.0,
		MaxParametric: 1.0,
	}
}

// TrackFromEnv returns track configuration with environment variable overrides.
func TrackFromEnv() TrackConfig {
	cfg := DefaultTrack()

	if s := getEnvFloat("TRACK_STEP_SIZE", 0); s > 0 {
		cfg.StepSize = s
	}
	if d := getEnvFloat("TRACK_MIN_DISTANCE", 0); d > 0 {
		cfg.MinDistance = d
	}
	if m := getEnvFloat("TRACK_MAX_PARAMETRIC", 0); m > 0 && m <= 1.0 {
		cfg.MaxParametric = m
	}

	return cfg
}

// =============================================================================
// SPAWNER CONFIGURATION
// =============================================================================

// SpawnerConfig tunes the feeder that deals marbles onto the track.
type SpawnerConfig struct {
	IntervalTicks int // Ticks between deals once the prefeed is done
	PrefeedCount  int // Marbles dealt at a faster cadence at round start
	PaletteSize   int // How many colors the round draws from
	TotalMarbles  int // Marbles in the round pool, 0 for endless
}

// DefaultSpawner returns the default spawner configuration.
func DefaultSpawner() SpawnerConfig {
	return SpawnerConfig{
		IntervalTicks: 24,
		PrefeedCount:  10,
		PaletteSize:   4,
		TotalMarbles:  60,
	}
}

// SpawnerFromEnv returns spawner configuration with environment variable overrides.
func SpawnerFromEnv() SpawnerConfig {
	cfg := DefaultSpawner()

	if i := getEnvInt("SPAWN_INTERVAL_TICKS", 0); i > 0 {
		cfg.IntervalTicks = i
	}
	if p := getEnvInt("SPAWN_PREFEED", 0); p > 0 {
		cfg.PrefeedCount = p
	}
	if p := getEnvInt("SPAWN_PALETTE_SIZE", 0); p > 0 {
		cfg.PaletteSize = p
	}
	if t := getEnvInt("SPAWN_TOTAL", -1); t >= 0 {
		cfg.TotalMarbles = t
	}

	return cfg
}

// =============================================================================
// LAUNCHER CONFIGURATION
// =============================================================================

// LauncherConfig tunes the player-driven shooter.
type LauncherConfig struct {
	CooldownTicks int     // Minimum ticks between shots
	ShotSpeed     float64 // Flight speed in world units per tick
	CatchUpFactor float64 // Transition speed multiplier after a landing splice
}

// DefaultLauncher returns the default launcher configuration.
func DefaultLauncher() LauncherConfig {
	return LauncherConfig{
		CooldownTicks: 6,
		ShotSpeed:     22.0,
		CatchUpFactor: 0.5,
	}
}

// LauncherFromEnv returns launcher configuration with environment variable overrides.
func LauncherFromEnv() LauncherConfig {
	cfg := DefaultLauncher()

	if c := getEnvInt("LAUNCHER_COOLDOWN_TICKS", 0); c > 0 {
		cfg.CooldownTicks = c
	}
	if s := getEnvFloat("LAUNCHER_SHOT_SPEED", 0); s > 0 {
		cfg.ShotSpeed = s
	}
	if f := getEnvFloat("LAUNCHER_CATCHUP", 0); f > 0 {
		cfg.CatchUpFactor = f
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             int
	AdminAuthEnabled bool
	AdminToken       string // Shared secret for admin login, empty disables login
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if os.Getenv("ADMIN_AUTH_ENABLED") == "true" {
		cfg.AdminAuthEnabled = true
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	return cfg
}

// =============================================================================
// RENDER CONFIGURATION
// =============================================================================

// RenderConfig holds the offline preview renderer settings.
type RenderConfig struct {
	Width     int    // Frame width in pixels
	Height    int    // Frame height in pixels
	FPS       int    // Frames per second of the PNG sequence
	OutputDir string // Directory PNG frames are written to
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{
		Width:     1280, // 720p - matches the default playfield
		Height:    720,
		FPS:       20, // One frame per tick at the default TPS
		OutputDir: "frames",
	}
}

// RenderFromEnv returns render configuration with environment variable overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()

	if w := getEnvInt("RENDER_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("RENDER_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if fps := getEnvInt("RENDER_FPS", 0); fps > 0 {
		cfg.FPS = fps
	}
	if dir := os.Getenv("RENDER_OUTPUT_DIR"); dir != "" {
		cfg.OutputDir = dir
	}

	return cfg
}

// =============================================================================
// EVENT LOG CONFIGURATION
// =============================================================================

// EventLogConfig holds the JSONL event log settings.
type EventLogConfig struct {
	Path    string // Output file, empty keeps the log in-memory only
	Enabled bool
}

// DefaultEventLog returns the default event log configuration.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{
		Path:    "events.jsonl",
		Enabled: true,
	}
}

// EventLogFromEnv returns event log configuration with environment variable overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()

	if p := os.Getenv("EVENT_LOG_PATH"); p != "" {
		cfg.Path = p
	}
	if os.Getenv("EVENT_LOG_ENABLED") == "false" {
		cfg.Enabled = false
	}

	return cfg
}

// =============================================================================
// GAME RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and snapshot size limits.
type ResourceLimits struct {
	MaxMarbles int // Hard cap on chain marbles per snapshot
	MaxShots   int // In-flight shots per snapshot
	MaxBursts  int // Per-frame transient effect limit
	MaxPops    int // Per-frame floating score marker limit
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxMarbles: 256,
		MaxShots:   32,
		MaxBursts:  40,
		MaxPops:    30,
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game     GameConfig
	Chain    ChainConfig
	Track    TrackConfig
	Spawner  SpawnerConfig
	Launcher LauncherConfig
	Server   ServerConfig
	Render   RenderConfig
	EventLog EventLogConfig
	Limits   ResourceLimits
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:     GameFromEnv(),
		Chain:    ChainFromEnv(),
		Track:    TrackFromEnv(),
		Spawner:  SpawnerFromEnv(),
		Launcher: LauncherFromEnv(),
		Server:   ServerFromEnv(),
		Render:   RenderFromEnv(),
		EventLog: EventLogFromEnv(),
		Limits:   DefaultLimits(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
