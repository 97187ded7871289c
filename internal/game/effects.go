package game

import "chroma-chain/internal/game/path"

// EffectKind selects an entry in the effect table. Gameplay code only names
// a kind; the table decides which sprite, sound and timing it maps to, so
// swapping assets never touches the resolution code.
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectBurst
	EffectComboFlare
	EffectSplash
	EffectDrain
)

// String returns the effect kind name used in events and logs.
func (k EffectKind) String() string {
	switch k {
	case EffectNone:
		return "none"
	case EffectBurst:
		return "burst"
	case EffectComboFlare:
		return "combo_flare"
	case EffectSplash:
		return "splash"
	case EffectDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// EffectSpec holds the resource handles and timing for one effect kind.
type EffectSpec struct {
	Sprite    string  // render resource handle
	Sound     string  // audio cue handle, forwarded to clients
	LifeTicks int     // lifetime before the record is dropped
	MaxRadius float64 // final ring radius at expiry
	Particles int     // particle count hint for clients
	Shake     float64 // screen shake intensity added on spawn, 0 for none
}

// EffectTable maps effect kinds to their resources. Built once at startup
// and handed to the chain manager and engine at construction.
type EffectTable map[EffectKind]EffectSpec

// DefaultEffectTable returns the stock effect mapping.
func DefaultEffectTable() EffectTable {
	return EffectTable{
		// ===== BURST =====
		// Standard marble pop. Short and punchy so a triple clear reads as
		// three distinct pops even with the vanish stagger.
		EffectBurst: {
			Sprite:    "fx/burst",
			Sound:     "sfx/pop",
			LifeTicks: 8, // 0.4 seconds at 20 TPS
			MaxRadius: 28,
			Particles: 10,
		},

		// ===== COMBO FLARE =====
		// Spawned once per chain-reaction step on top of the bursts.
		EffectComboFlare: {
			Sprite:    "fx/flare",
			Sound:     "sfx/combo",
			LifeTicks: 14,
			MaxRadius: 52,
			Particles: 18,
			Shake:     3.5,
		},

		// ===== SPLASH =====
		// Shot landing in the chain.
		EffectSplash: {
			Sprite:    "fx/splash",
			Sound:     "sfx/clack",
			LifeTicks: 6,
			MaxRadius: 20,
			Particles: 6,
		},

		// ===== DRAIN =====
		// Marble falling off the track end.
		EffectDrain: {
			Sprite:    "fx/drain",
			Sound:     "sfx/drain",
			LifeTicks: 12,
			MaxRadius: 24,
			Particles: 8,
		},
	}
}

// EffectSink receives fire-and-forget effect requests from gameplay code.
// The engine implements it; tests substitute a recorder.
type EffectSink interface {
	SpawnEffect(kind EffectKind, pos path.Point, color MarbleColor)
}

// Burst is a live transient effect on the playfield.
type Burst struct {
	Kind      EffectKind `json:"kind"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Radius    float64    `json:"radius"`
	MaxRadius float64    `json:"maxRadius"`
	Color     string     `json:"color"` // hex fill taken from the marble kind
	Sprite    string     `json:"sprite"`
	Timer     int        `json:"timer"` // remaining ticks
	life      int
}

// NewBurst spawns a transient effect record from the table entry for kind.
// Returns nil for kinds the table does not carry.
func NewBurst(table EffectTable, kind EffectKind, pos path.Point, color MarbleColor) *Burst {
	spec, ok := table[kind]
	if !ok || spec.LifeTicks <= 0 {
		return nil
	}
	return &Burst{
		Kind:      kind,
		X:         pos.X,
		Y:         pos.Y,
		Radius:    3.0, // start small, expand toward MaxRadius
		MaxRadius: spec.MaxRadius,
		Color:     GetKind(color).Hex,
		Sprite:    spec.Sprite,
		Timer:     spec.LifeTicks,
		life:      spec.LifeTicks,
	}
}

// Update expands and fades the effect. Returns false when expired.
func (b *Burst) Update() bool {
	b.Timer--
	if b.Timer <= 0 {
		return false
	}

	// Expand rapidly then ease out
	progress := 1.0 - float64(b.Timer)/float64(b.life)
	b.Radius = b.MaxRadius * (1.0 - (1.0-progress)*(1.0-progress))
	return true
}

// GetAlpha returns the current opacity.
func (b *Burst) GetAlpha() float64 {
	if b.life == 0 {
		return 0
	}
	return float64(b.Timer) / float64(b.life)
}

// MaxShakeIntensity caps how hard combos can rattle the playfield.
const MaxShakeIntensity = 12.0

// TrackShake nudges the whole rendered playfield for a few ticks after a
// combo clear.
type TrackShake struct {
	Intensity float64 `json:"intensity"` // current shake magnitude
	Duration  int     `json:"duration"`  // remaining ticks
	OffsetX   float64 `json:"offsetX"`   // current X offset, computed each tick
	OffsetY   float64 `json:"offsetY"`   // current Y offset, computed each tick
}

// NewTrackShake creates a new playfield shake.
func NewTrackShake(intensity float64) *TrackShake {
	if intensity > MaxShakeIntensity {
		intensity = MaxShakeIntensity
	}
	return &TrackShake{
		Intensity: intensity,
		Duration:  8, // 0.4 seconds at 20 TPS
	}
}

// Update decays the shake over time.
// Uses a deterministic LCG so replays shake the same way.
func (s *TrackShake) Update(rngSeed int64) bool {
	s.Duration--
	s.Intensity *= 0.8

	seed := rngSeed + int64(s.Duration)
	x := float64((seed*1103515245+12345)%256) / 256.0
	y := float64((seed*1103515245*2+12345)%256) / 256.0

	s.OffsetX = (x - 0.5) * 2 * s.Intensity
	s.OffsetY = (y - 0.5) * 2 * s.Intensity

	return s.Duration > 0 && s.Intensity > 0.5
}

// ScorePop is a floating score number that drifts up and fades.
type ScorePop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Points int     `json:"points"`
	Combo  int     `json:"combo"`
	Timer  int     `json:"timer"` // remaining ticks
	life   int
}

// NewScorePop creates a floating score marker at a cleared run's pivot.
func NewScorePop(pos path.Point, points, combo int) *ScorePop {
	return &ScorePop{
		X:      pos.X,
		Y:      pos.Y,
		Points: points,
		Combo:  combo,
		Timer:  20, // 1 second at 20 TPS
		life:   20,
	}
}

// Update drifts the marker upward. Returns false when expired.
func (p *ScorePop) Update() bool {
	p.Timer--
	p.Y -= 0.8
	return p.Timer > 0
}

// GetAlpha returns the current opacity of the marker.
func (p *ScorePop) GetAlpha() float64 {
	if p.life == 0 {
		return 0
	}
	return float64(p.Timer) / float64(p.life)
}
