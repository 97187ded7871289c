package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
)

// ShotSpeed is the flight speed of a launched marble in world units per tick.
const ShotSpeed = 22.0

// ShotLifeTicks bounds a shot that never hits anything.
const ShotLifeTicks = 50

// TrailPoint is one sample in a shot's motion trail.
type TrailPoint struct {
	X, Y  float64
	Alpha float64
}

// Shot carries a launched marble across the playfield until it strikes the
// chain or expires. The marble stays in the launching state the whole
// flight; the shot owns its position.
type Shot struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	Marble    *Marble `json:"-"`
	Color     string  `json:"color"`
	LifeTicks int     `json:"-"`

	// Motion trail ring buffer for rendering
	Trail      [4]TrailPoint `json:"-"`
	trailIdx   int
	trailCount int
}

var shotSeq uint64

// NewShot wraps a marble in flight from (x, y) along angle.
func NewShot(owner string, m *Marble, x, y, angle, speed float64) *Shot {
	seq := atomic.AddUint64(&shotSeq, 1)
	m.Owner = owner
	m.BeginLaunch(x, y)
	return &Shot{
		ID:        fmt.Sprintf("shot_%d", seq),
		OwnerID:   owner,
		X:         x,
		Y:         y,
		VX:        math.Cos(angle) * speed,
		VY:        math.Sin(angle) * speed,
		Marble:    m,
		Color:     GetKind(m.Color).Hex,
		LifeTicks: ShotLifeTicks,
	}
}

// Update advances the shot one tick, dragging the carried marble with it.
// Returns false when the shot has expired or left the world.
func (s *Shot) Update(worldWidth, worldHeight float64) bool {
	s.LifeTicks--
	if s.LifeTicks <= 0 {
		return false
	}

	s.Trail[s.trailIdx] = TrailPoint{X: s.X, Y: s.Y, Alpha: 1.0}
	s.trailIdx = (s.trailIdx + 1) % len(s.Trail)
	if s.trailCount < len(s.Trail) {
		s.trailCount++
	}
	for i := range s.Trail {
		s.Trail[i].Alpha *= 0.7
	}

	s.X += s.VX
	s.Y += s.VY
	s.Marble.X = s.X
	s.Marble.Y = s.Y

	margin := MarbleRadius * 2
	if s.X < -margin || s.X > worldWidth+margin || s.Y < -margin || s.Y > worldHeight+margin {
		return false
	}
	return true
}

// TrailPoints returns the valid trail samples, oldest first.
func (s *Shot) TrailPoints() []TrailPoint {
	if s.trailCount == 0 {
		return nil
	}
	out := make([]TrailPoint, 0, s.trailCount)
	start := s.trailIdx - s.trailCount
	if start < 0 {
		start += len(s.Trail)
	}
	for i := 0; i < s.trailCount; i++ {
		out = append(out, s.Trail[(start+i)%len(s.Trail)])
	}
	return out
}

// LauncherConfig tunes the shooter at the center of the board.
type LauncherConfig struct {
	X             float64
	Y             float64
	CooldownTicks int
	ShotSpeed     float64
	CatchUpFactor float64 // transition speed multiplier after a landing splice
	Seed          int64
}

// DefaultLauncherConfig returns the stock launcher tuning for a 1280x720
// playfield.
func DefaultLauncherConfig() LauncherConfig {
	return LauncherConfig{
		X:             640,
		Y:             420,
		CooldownTicks: 6,
		ShotSpeed:     ShotSpeed,
		CatchUpFactor: 0.5,
	}
}

// Launcher holds the current and next marble colors and turns fire commands
// into shots. Colors reroll against the chain so the magazine never deals a
// color with nothing left to match.
type Launcher struct {
	cfg      LauncherConfig
	rng      *rand.Rand
	Current  MarbleColor `json:"current"`
	Next     MarbleColor `json:"next"`
	Angle    float64     `json:"angle"` // last aim, kept for rendering
	cooldown int
}

// ColorSource is the chain query the launcher magazine rerolls against.
type ColorSource interface {
	HasColor(color MarbleColor) bool
	ActiveCount(includePlaceholders bool) int
}

// NewLauncher creates a launcher with a primed magazine.
func NewLauncher(cfg LauncherConfig) *Launcher {
	if cfg.CooldownTicks < 1 {
		cfg.CooldownTicks = DefaultLauncherConfig().CooldownTicks
	}
	if cfg.ShotSpeed <= 0 {
		cfg.ShotSpeed = ShotSpeed
	}
	if cfg.CatchUpFactor <= 0 {
		cfg.CatchUpFactor = DefaultLauncherConfig().CatchUpFactor
	}
	l := &Launcher{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	l.Current = l.roll(nil)
	l.Next = l.roll(nil)
	return l
}

// CatchUpFactor returns the transition multiplier for post-landing splices.
func (l *Launcher) CatchUpFactor() float64 {
	return l.cfg.CatchUpFactor
}

// Position returns the launcher mount point.
func (l *Launcher) Position() (float64, float64) {
	return l.cfg.X, l.cfg.Y
}

// Update cools the launcher down one tick and rerolls magazine colors that
// no longer exist in the chain.
func (l *Launcher) Update(chain ColorSource) {
	if l.cooldown > 0 {
		l.cooldown--
	}
	if chain == nil || chain.ActiveCount(false) == 0 {
		return
	}
	if !chain.HasColor(l.Current) {
		l.Current = l.roll(chain)
	}
	if !chain.HasColor(l.Next) {
		l.Next = l.roll(chain)
	}
}

// CanFire reports whether the cooldown has elapsed.
func (l *Launcher) CanFire() bool {
	return l.cooldown == 0
}

// Fire launches the current marble along angle and advances the magazine.
// Returns nil while cooling down.
func (l *Launcher) Fire(owner string, angle float64) *Shot {
	if !l.CanFire() {
		return nil
	}
	l.cooldown = l.cfg.CooldownTicks
	l.Angle = angle

	m := NewMarble(l.Current)
	shot := NewShot(owner, m, l.cfg.X, l.cfg.Y, angle, l.cfg.ShotSpeed)

	l.Current = l.Next
	l.Next = l.roll(nil)
	return shot
}

// Swap exchanges the current and next magazine colors.
func (l *Launcher) Swap() {
	l.Current, l.Next = l.Next, l.Current
}

// roll picks a magazine color, restricted to colors still present in the
// chain when a source is given.
func (l *Launcher) roll(chain ColorSource) MarbleColor {
	palette := SpawnableColors(0)
	if chain != nil {
		present := palette[:0:0]
		for _, c := range palette {
			if chain.HasColor(c) {
				present = append(present, c)
			}
		}
		if len(present) > 0 {
			palette = present
		}
	}
	return palette[l.rng.Intn(len(palette))]
}
