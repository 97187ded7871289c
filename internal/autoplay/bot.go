// Package autoplay drives the launcher without a human, for demo sessions
// and offline preview recordings.
package autoplay

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"chroma-chain/internal/game"
)

// ShotOrder represents a single planned shot
type ShotOrder struct {
	TargetX float64
	TargetY float64
	Swap    bool // swap the magazine before firing
}

// Engine is the slice of the game engine the bot drives.
type Engine interface {
	GetState() game.GameState
	FireAt(owner string, targetX, targetY float64) bool
	SwapMagazine(owner string)
}

// Bot plays the game on a fixed cadence:
//   - A planner reads the logical state and queues shot orders
//   - A dispatcher drains the queue at the fire rate
//
// The queue uses Drop Newest: when planning outruns dispatch, fresh orders
// are discarded rather than stacking up stale aims.
type Bot struct {
	engine Engine
	owner  string
	queue  chan ShotOrder
	quit   chan struct{}
	wg     sync.WaitGroup
	rng    *rand.Rand

	planEvery time.Duration
	fireEvery time.Duration
}

// NewBot creates an autoplay bot identified as owner on the leaderboard.
func NewBot(engine Engine, owner string, seed int64) *Bot {
	if owner == "" {
		owner = "autoplay"
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Bot{
		engine:    engine,
		owner:     owner,
		queue:     make(chan ShotOrder, 100),
		quit:      make(chan struct{}),
		rng:       rand.New(rand.NewSource(seed)),
		planEvery: 400 * time.Millisecond,
		fireEvery: 500 * time.Millisecond, // comfortably above the launcher cooldown
	}
}

// Start begins the planner and dispatcher loops
func (b *Bot) Start() {
	b.wg.Add(2)
	go b.planner()
	go b.dispatcher()
	log.Printf("🤖 Autoplay bot started as %q", b.owner)
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() {
	close(b.quit)
	b.wg.Wait()
	log.Println("🤖 Autoplay bot stopped")
}

// QueueShot attempts to queue a shot order.
// Non-blocking: if the queue is full, the order is intentionally DROPPED
// (Drop Newest policy) - a stale aim is worse than no shot.
func (b *Bot) QueueShot(order ShotOrder) {
	select {
	case b.queue <- order:
		// Successfully queued
	default:
		// Queue full, drop newest
	}
}

// planner reads the game state on a cadence and queues aimed shots
func (b *Bot) planner() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.planEvery)
	defer ticker.Stop()

	for {
		select {
		case <-b.quit:
			return
		case <-ticker.C:
			if order, ok := b.plan(); ok {
				b.QueueShot(order)
			}
		}
	}
}

// plan picks a chain marble matching the loaded color. When the current
// color has no target but the next one does, the order swaps first. With
// no target at all the bot holds fire.
func (b *Bot) plan() (ShotOrder, bool) {
	state := b.engine.GetState()
	if len(state.Marbles) == 0 {
		return ShotOrder{}, false
	}

	if m, ok := b.pickTarget(state.Marbles, state.Current); ok {
		return b.aimAt(m), true
	}
	if m, ok := b.pickTarget(state.Marbles, state.Next); ok {
		order := b.aimAt(m)
		order.Swap = true
		return order, true
	}

	// No matching color anywhere; lob at a random live marble so the
	// board keeps moving
	live := make([]game.MarbleView, 0, len(state.Marbles))
	for _, m := range state.Marbles {
		if !m.Ghost {
			live = append(live, m)
		}
	}
	if len(live) == 0 {
		return ShotOrder{}, false
	}
	return b.aimAt(live[b.rng.Intn(len(live))]), true
}

// pickTarget returns a random marble of the given color
func (b *Bot) pickTarget(marbles []game.MarbleView, color game.MarbleColor) (game.MarbleView, bool) {
	candidates := make([]game.MarbleView, 0, 8)
	for _, m := range marbles {
		if m.Color == color && !m.Ghost {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return game.MarbleView{}, false
	}
	return candidates[b.rng.Intn(len(candidates))], true
}

// aimAt builds an order with a little jitter so replays don't look robotic
func (b *Bot) aimAt(m game.MarbleView) ShotOrder {
	jitter := game.MarbleRadius * 0.5
	return ShotOrder{
		TargetX: m.X + (b.rng.Float64()*2-1)*jitter,
		TargetY: m.Y + (b.rng.Float64()*2-1)*jitter,
	}
}

// dispatcher drains the order queue at the fire rate
func (b *Bot) dispatcher() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.fireEvery)
	defer ticker.Stop()

	for {
		select {
		case <-b.quit:
			return

		case order := <-b.queue:
			// Wait for rate limit tick
			select {
			case <-ticker.C:
			case <-b.quit:
				return
			}

			if order.Swap {
				b.engine.SwapMagazine(b.owner)
			}
			b.engine.FireAt(b.owner, order.TargetX, order.TargetY)
		}
	}
}
