package game

import (
	"log"

	"chroma-chain/internal/game/path"
)

// ChainPolicy selects how clears reshape the sequence.
type ChainPolicy int

const (
	PolicyCompacting  ChainPolicy = iota // cleared slots close up, trailing marbles roll forward
	PolicyPlaceholder                    // cleared slots keep a ghost, length only grows by insertion
)

// String returns the policy name used in config logs.
func (p ChainPolicy) String() string {
	if p == PolicyPlaceholder {
		return "placeholder"
	}
	return "compacting"
}

// ScoreService receives fire-and-forget clear notifications. The engine
// implements it; tests substitute a recorder.
type ScoreService interface {
	RecordMatch(runSize, combo int, pos path.Point, color MarbleColor, owner string)
}

// ChainConfig holds the tunables for sequence management.
type ChainConfig struct {
	Policy             ChainPolicy
	MatchMin           int // run size needed to clear
	RollbackTicks      int // fixed duration of the backward ease after a clear
	VanishStaggerTicks int // per-marble delay within a cleared run
}

// DefaultChainConfig returns sensible defaults for a 20 TPS loop.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		Policy:             PolicyCompacting,
		MatchMin:           3,
		RollbackTicks:      8, // 0.4 seconds at 20 TPS
		VanishStaggerTicks: 2,
	}
}

// ChainManager owns the ordered marble sequence. Index 0 is the lead slot at
// the track entry; every insertion becomes the new lead and pushes existing
// marbles one waypoint deeper. Slot indices are never stored durably on the
// marbles; membership questions always go through identity search.
//
// All mutation happens on the engine tick. Clears never splice mid-scan:
// matched marbles are marked dead immediately and the sequence is reshaped
// by FlushRemovals at the end of the tick.
type ChainManager struct {
	marbles []*Marble
	track   *path.Track
	sched   *Scheduler
	effects EffectSink
	score   ScoreService
	cfg     ChainConfig

	combo int

	// Dead but not yet burst, kept so clients can fade them out
	vanishing []*Marble
}

// NewChainManager wires a chain over a track. The effect and score sinks may
// be nil, which disables those notifications.
func NewChainManager(cfg ChainConfig, track *path.Track, sched *Scheduler, effects EffectSink, score ScoreService) *ChainManager {
	if cfg.MatchMin < 2 {
		cfg.MatchMin = 3
	}
	if cfg.RollbackTicks < 1 {
		cfg.RollbackTicks = DefaultChainConfig().RollbackTicks
	}
	if cfg.VanishStaggerTicks < 0 {
		cfg.VanishStaggerTicks = 0
	}
	return &ChainManager{
		marbles: make([]*Marble, 0, 64),
		track:   track,
		sched:   sched,
		effects: effects,
		score:   score,
		cfg:     cfg,
	}
}

// Len returns the raw sequence length including ghosts and dying marbles.
func (c *ChainManager) Len() int {
	return len(c.marbles)
}

// Policy returns the active management policy.
func (c *ChainManager) Policy() ChainPolicy {
	return c.cfg.Policy
}

// Combo returns the current chain-reaction intensity counter.
func (c *ChainManager) Combo() int {
	return c.combo
}

// Marbles returns a copy of the live sequence for snapshot building.
func (c *ChainManager) Marbles() []*Marble {
	out := make([]*Marble, len(c.marbles))
	copy(out, c.marbles)
	return out
}

// Vanishing returns the marbles cleared this moment whose burst has not
// fired yet, so renderers can fade them instead of dropping them abruptly.
func (c *ChainManager) Vanishing() []*Marble {
	out := make([]*Marble, len(c.vanishing))
	copy(out, c.vanishing)
	return out
}

// Insert makes the marble the new lead at slot 0 and pushes everything else
// one slot deeper. A real marble first eats the nearest ghost so holes never
// pile up at the entry. Returns the world position the marble animates
// toward from its off-track feeder spot.
func (c *ChainManager) Insert(m *Marble) path.Point {
	if m == nil {
		return path.Point{}
	}
	if !m.Color.IsPlaceholder() {
		if g := c.NextPlaceholderFrom(0); g >= 0 {
			c.marbles[g].Kill()
			c.marbles = append(c.marbles[:g], c.marbles[g+1:]...)
		}
	}

	m.Land()
	c.marbles = append(c.marbles, nil)
	copy(c.marbles[1:], c.marbles)
	c.marbles[0] = m

	c.retargetFrom(0, 1.0)

	pos, _ := c.track.SlotPosition(0)
	return pos
}

// InsertAt splices the marble in at the given slot, used when a shot lands
// between existing marbles. Out-of-range indices clamp to append; negative
// indices are rejected. Returns the world position of the landing slot.
func (c *ChainManager) InsertAt(m *Marble, index int, speedFactor float64) (path.Point, bool) {
	if m == nil {
		return path.Point{}, false
	}
	if index < 0 {
		log.Printf("⚠️ Chain insert rejected: negative slot %d", index)
		return path.Point{}, false
	}

	// Ghosts only ever fill holes inside the occupied region
	if m.Color.IsPlaceholder() && index >= len(c.marbles) {
		m.Kill()
		return path.Point{}, false
	}

	if index > len(c.marbles) {
		index = len(c.marbles)
	}

	m.Land()
	switch {
	case index == len(c.marbles):
		c.marbles = append(c.marbles, m)
	case c.marbles[index] != nil && c.marbles[index].Color.IsPlaceholder():
		// A ghost holds the slot: the real marble takes it in place
		c.marbles[index].Kill()
		c.marbles[index] = m
	default:
		c.marbles = append(c.marbles, nil)
		copy(c.marbles[index+1:], c.marbles[index:])
		c.marbles[index] = m
		c.evictStalePlaceholder(index, m.Color)
	}

	c.retargetFrom(index, speedFactor)

	pos, ok := c.track.SlotPosition(c.effectiveIndex(index))
	return pos, ok
}

// evictStalePlaceholder keeps sparsity bounded after a true splice: scanning
// forward from index, the first ghost sitting in front of a real marble of a
// different color than the inserted one is destroyed and the chain compacts
// around it. At most one ghost goes per insertion.
func (c *ChainManager) evictStalePlaceholder(index int, inserted MarbleColor) {
	for j := index; j >= 0 && j < len(c.marbles); j++ {
		g := c.marbles[j]
		if g == nil || !g.Color.IsPlaceholder() {
			continue
		}
		if j+1 >= len(c.marbles) {
			return
		}
		next := c.marbles[j+1]
		if next == nil || next.Color.IsPlaceholder() {
			continue
		}
		if next.Color == inserted {
			// This hole resolves when the insertion merges with its own
			// color region; keep looking for a stale one.
			continue
		}
		g.Kill()
		c.marbles = append(c.marbles[:j], c.marbles[j+1:]...)
		return
	}
}

// Remove takes the marble out of the sequence. Identity search runs from the
// tail since departing marbles are almost always near the back. Bookkeeping
// only: no retarget, no effects.
func (c *ChainManager) Remove(m *Marble) {
	for i := len(c.marbles) - 1; i >= 0; i-- {
		if c.marbles[i] == m {
			c.marbles = append(c.marbles[:i], c.marbles[i+1:]...)
			return
		}
	}
}

// FlushRemovals reshapes the sequence around marbles killed by clears. The
// engine calls this at the end of every tick so no scan or retarget ever
// sees the sequence change under it.
func (c *ChainManager) FlushRemovals() {
	if c.cfg.Policy == PolicyPlaceholder {
		for i, m := range c.marbles {
			if m == nil || m.Alive() {
				continue
			}
			ghost := NewMarble(ColorGhost)
			pos, _ := c.track.SlotPosition(i)
			ghost.PlaceAt(i, pos, c.track.SlotParametric(i))
			c.marbles[i] = ghost
		}
		return
	}

	kept := c.marbles[:0]
	for _, m := range c.marbles {
		if m != nil && m.Alive() {
			kept = append(kept, m)
		}
	}
	for i := len(kept); i < len(c.marbles); i++ {
		c.marbles[i] = nil
	}
	c.marbles = kept
}

// IndexOf returns the marble's current slot by identity, -1 if absent.
func (c *ChainManager) IndexOf(m *Marble) int {
	for i, cur := range c.marbles {
		if cur == m {
			return i
		}
	}
	return -1
}

// At returns the marble at a slot, nil when out of bounds.
func (c *ChainManager) At(index int) *Marble {
	if index < 0 || index >= len(c.marbles) {
		return nil
	}
	return c.marbles[index]
}

// ActiveCount returns how many living marbles the chain holds.
func (c *ChainManager) ActiveCount(includePlaceholders bool) int {
	n := 0
	for _, m := range c.marbles {
		if m == nil || !m.Alive() {
			continue
		}
		if !includePlaceholders && m.Color.IsPlaceholder() {
			continue
		}
		n++
	}
	return n
}

// LastActiveIndex returns the deepest slot holding a living marble, -1 when
// the chain is empty.
func (c *ChainManager) LastActiveIndex(includePlaceholders bool) int {
	for i := len(c.marbles) - 1; i >= 0; i-- {
		m := c.marbles[i]
		if m == nil || !m.Alive() {
			continue
		}
		if !includePlaceholders && m.Color.IsPlaceholder() {
			continue
		}
		return i
	}
	return -1
}

// HasColor reports whether any living real marble carries the color. The
// feeder uses this to stop dealing colors the player can no longer match.
func (c *ChainManager) HasColor(color MarbleColor) bool {
	for _, m := range c.marbles {
		if m != nil && m.Alive() && m.Color == color {
			return true
		}
	}
	return false
}

// NextPlaceholderFrom returns the first ghost slot at or after start, -1 if
// none.
func (c *ChainManager) NextPlaceholderFrom(start int) int {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(c.marbles); i++ {
		if m := c.marbles[i]; m != nil && m.Color.IsPlaceholder() {
			return i
		}
	}
	return -1
}

// NextRealFrom returns the first living non-ghost slot at or after start, -1
// if none.
func (c *ChainManager) NextRealFrom(start int) int {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(c.marbles); i++ {
		m := c.marbles[i]
		if m != nil && m.Alive() && !m.Color.IsPlaceholder() {
			return i
		}
	}
	return -1
}

// SlotPosition resolves a slot to world space the way the sequence will
// settle once pending clears compact, so in-flight pushes already aim at the
// post-clear layout.
func (c *ChainManager) SlotPosition(index int) (path.Point, bool) {
	return c.track.SlotPosition(c.effectiveIndex(index))
}

// SlotParametric resolves a slot to its parametric track position under the
// same pending-clear adjustment as SlotPosition.
func (c *ChainManager) SlotParametric(index int) float64 {
	return c.track.SlotParametric(c.effectiveIndex(index))
}

// WorldAt projects a parametric position through the track curve. Rollback
// blending runs through this so marbles follow the curvature.
func (c *ChainManager) WorldAt(t float64) path.Point {
	return c.track.WorldAt(t)
}

// effectiveIndex maps a raw slot to the slot it settles on after pending
// clears compact. Ghost-holding policies never shift, so raw and effective
// are the same there.
func (c *ChainManager) effectiveIndex(raw int) int {
	if c.cfg.Policy == PolicyPlaceholder {
		return raw
	}
	eff := raw
	limit := raw
	if limit > len(c.marbles) {
		limit = len(c.marbles)
	}
	for j := 0; j < limit; j++ {
		if m := c.marbles[j]; m == nil || !m.Alive() {
			eff--
		}
	}
	return eff
}

// retargetFrom pushes fresh slot targets to every living marble from start
// through the tail. Forward moves lerp in world space at the given speed
// factor; targets that sit behind a marble's current track position become a
// fixed-duration backward ease instead. Running it twice with no mutation in
// between changes nothing.
func (c *ChainManager) retargetFrom(start int, speedFactor float64) {
	if start < 0 {
		start = 0
	}
	dead := 0
	for j := 0; j < start && j < len(c.marbles); j++ {
		if m := c.marbles[j]; m == nil || !m.Alive() {
			dead++
		}
	}
	for i := start; i < len(c.marbles); i++ {
		m := c.marbles[i]
		if m == nil || !m.Alive() {
			dead++
			continue
		}
		c.retargetMarble(m, i-dead, speedFactor)
	}
}

func (c *ChainManager) retargetMarble(m *Marble, eff int, speedFactor float64) {
	if m.State == StateLaunching || m.State == StateDetached {
		return
	}
	goalT := c.track.SlotParametric(eff)
	if goalT < m.Parametric()-1e-9 {
		m.PushRollback(eff, goalT, c.cfg.RollbackTicks)
		return
	}
	pos, ok := c.track.SlotPosition(eff)
	m.PushTarget(eff, pos, goalT, !ok, speedFactor)
}

// Resync pushes fresh targets to the whole sequence. Idempotent; safe to
// call any time the layout might have drifted.
func (c *ChainManager) Resync() {
	c.retargetFrom(0, 1.0)
}

// Clear kills and drops every marble, ghosts included, and resets the combo
// counter. Used on round teardown; pending scheduler tasks see the kills
// through their liveness guards.
func (c *ChainManager) Clear() {
	for _, m := range c.marbles {
		if m != nil {
			m.Kill()
		}
	}
	c.marbles = c.marbles[:0]
	c.vanishing = c.vanishing[:0]
	c.combo = 0
}
