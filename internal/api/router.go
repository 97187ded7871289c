package api

import (
	"net/http"

	"chroma-chain/internal/game"
	"chroma-chain/internal/game/path"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the game engine methods used by the API.
// This interface enables mocking for tests without spinning up the full game loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetState returns the current logical game state
	GetState() game.GameState
	// GetSnapshot returns the latest lock-free immutable snapshot (preferred for stats)
	GetSnapshot() *game.GameSnapshot
	// TrackOutline returns the waypoint positions in order
	TrackOutline() []path.Point
	// FireAt aims the launcher at a world point and fires
	FireAt(owner string, targetX, targetY float64) bool
	// FireAngle fires along an angle in degrees
	FireAngle(owner string, degrees float64) bool
	// SwapMagazine exchanges the launcher's current and next colors
	SwapMagazine(owner string)
	// GetLeaderboard returns the commander leaderboard
	GetLeaderboard() *game.Leaderboard
	// GetEventLogStats returns event log statistics
	GetEventLogStats() map[string]interface{}
	// Pause freezes the simulation
	Pause()
	// Resume unfreezes the simulation
	Resume()
	// Paused reports whether the simulation is frozen
	Paused() bool
	// Reset starts over from round 1
	Reset()
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Sessions guards the admin routes. If nil, admin routes are open
	// (local development).
	Sessions *SessionManager

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default local origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
// This is used internally to pass handlers to route setup.
type routerHandlers struct {
	engine EngineInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
//
// Example:
//
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Create handlers struct
	h := &routerHandlers{
		engine: cfg.Engine,
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Game state
		r.Get("/state", h.handleGetState)
		r.Get("/chain", h.handleGetChain)
		r.Get("/track", h.handleGetTrack)
		r.Get("/stats", h.handleGetStats)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/events/stats", h.handleGetEventStats)

		// Commander actions
		r.Post("/shoot", h.handleShoot)
		r.Post("/swap", h.handleSwap)

		// Admin - session-guarded when a SessionManager is wired
		r.Route("/admin", func(admin chi.Router) {
			if cfg.Sessions != nil {
				admin.Use(cfg.Sessions.AdminAuthMiddleware)
			}
			admin.Post("/reset", h.handleAdminReset)
			admin.Post("/pause", h.handleAdminPause)
			admin.Post("/resume", h.handleAdminResume)
		})

		if cfg.Sessions != nil {
			r.Post("/login", cfg.Sessions.HandleLogin)
			r.Post("/logout", cfg.Sessions.HandleLogout)
			r.Get("/auth/status", cfg.Sessions.HandleAuthStatus)
		}
	})

	// Default route
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}
