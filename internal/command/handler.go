package command

import (
	"log"
	"strconv"

	"chroma-chain/internal/game"
)

// Engine is the slice of the game engine the command pipeline drives.
type Engine interface {
	FireAt(owner string, targetX, targetY float64) bool
	FireAngle(owner string, degrees float64) bool
	SwapMagazine(owner string)
	GetLeaderboard() *game.Leaderboard
}

// Handler processes commander commands and applies them to the game
type Handler struct {
	engine      Engine
	rateLimiter *RateLimiter
}

// NewHandler creates a new command handler
func NewHandler(engine Engine) *Handler {
	return &Handler{
		engine:      engine,
		rateLimiter: NewRateLimiter(DefaultRateLimitConfig),
	}
}

// ProcessCommand handles a single command
func (h *Handler) ProcessCommand(cmd Command) {
	// Rate limit check
	if !h.rateLimiter.Allow(cmd.Owner) {
		log.Printf("🚫 Rate limited: %s", cmd.Owner)
		return
	}

	switch GetCommandType(cmd.Name) {
	case CmdShoot:
		h.handleShoot(cmd)
	case CmdSwap:
		h.engine.SwapMagazine(cmd.Owner)
	case CmdStats:
		h.handleStats(cmd)
	case CmdTop:
		h.handleTop(cmd)
	case CmdHelp:
		h.handleHelp(cmd)
	default:
		// Unknown command - silently ignore
	}
}

// handleShoot fires the launcher. One numeric argument is an angle in
// degrees, two are a world target point.
func (h *Handler) handleShoot(cmd Command) {
	switch len(cmd.Args) {
	case 1:
		angle, err := strconv.ParseFloat(cmd.Args[0], 64)
		if err != nil {
			log.Printf("ℹ️ %s: Usage: !shoot <angle> or !shoot <x> <y>", cmd.Owner)
			return
		}
		h.engine.FireAngle(cmd.Owner, angle)
	case 2:
		x, errX := strconv.ParseFloat(cmd.Args[0], 64)
		y, errY := strconv.ParseFloat(cmd.Args[1], 64)
		if errX != nil || errY != nil {
			log.Printf("ℹ️ %s: Usage: !shoot <angle> or !shoot <x> <y>", cmd.Owner)
			return
		}
		h.engine.FireAt(cmd.Owner, x, y)
	default:
		log.Printf("ℹ️ %s: Usage: !shoot <angle> or !shoot <x> <y>", cmd.Owner)
	}
}

// handleStats shows a commander's leaderboard line
func (h *Handler) handleStats(cmd Command) {
	targetName := cmd.Owner
	if len(cmd.Args) > 0 {
		targetName = cmd.Args[0]
	}

	lb := h.engine.GetLeaderboard()
	score, ok := lb.GetScore(targetName)
	if !ok {
		log.Printf("ℹ️ %s has no clears yet", targetName)
		return
	}

	rank := lb.GetRank(targetName)
	log.Printf("📊 %s: rank #%d | %d points", targetName, rank, int(score))
}

// handleTop shows the top commanders
func (h *Handler) handleTop(cmd Command) {
	entries := h.engine.GetLeaderboard().GetTop(5)
	if len(entries) == 0 {
		log.Printf("ℹ️ No commanders on the board yet")
		return
	}
	for _, e := range entries {
		log.Printf("🏆 #%d %s: %d points (%d clears, best combo x%d)",
			e.Rank, e.CommanderID, int(e.Score), e.Clears, e.BestCombo)
	}
}

// handleHelp shows available commands
func (h *Handler) handleHelp(cmd Command) {
	log.Printf("📜 Commands: !shoot <angle> | !shoot <x> <y> | !swap | !stats [name] | !top")
}

// Run starts processing commands from a channel (call in goroutine)
func (h *Handler) Run(commands <-chan Command) {
	for cmd := range commands {
		h.ProcessCommand(cmd)
	}
	log.Println("📜 Command handler stopped")
}
