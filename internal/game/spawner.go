package game

import (
	"math/rand"

	"chroma-chain/internal/game/path"
)

// SpawnerConfig tunes the feeder that pushes new marbles onto the track.
type SpawnerConfig struct {
	IntervalTicks int // ticks between deals once the prefeed is done
	PrefeedCount  int // marbles dealt at a faster cadence at round start
	PaletteSize   int // how many colors the round draws from
	TotalMarbles  int // marbles in the round pool, 0 for endless
	Seed          int64
}

// DefaultSpawnerConfig returns the stock feeder tuning.
func DefaultSpawnerConfig() SpawnerConfig {
	return SpawnerConfig{
		IntervalTicks: 24, // 1.2 seconds at 20 TPS
		PrefeedCount:  10,
		PaletteSize:   4,
		TotalMarbles:  60,
	}
}

// Spawner deals marbles into the chain at the track entry. It owns the deal
// cadence and the color distribution; the chain owns everything after
// Insert.
type Spawner struct {
	cfg       SpawnerConfig
	rng       *rand.Rand
	entry     path.Point
	countdown int
	dealt     int
}

// NewSpawner creates a feeder positioned at the track entry point.
func NewSpawner(cfg SpawnerConfig, entry path.Point) *Spawner {
	if cfg.IntervalTicks < 1 {
		cfg.IntervalTicks = DefaultSpawnerConfig().IntervalTicks
	}
	if cfg.PaletteSize < 1 {
		cfg.PaletteSize = DefaultSpawnerConfig().PaletteSize
	}
	return &Spawner{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		entry: entry,
	}
}

// Dealt returns how many marbles the feeder has pushed out this round.
func (s *Spawner) Dealt() int {
	return s.dealt
}

// Exhausted reports whether the round pool is used up.
func (s *Spawner) Exhausted() bool {
	return s.cfg.TotalMarbles > 0 && s.dealt >= s.cfg.TotalMarbles
}

// Reset rewinds the feeder for a new round without reseeding the deal
// stream.
func (s *Spawner) Reset() {
	s.dealt = 0
	s.countdown = 0
}

// Update advances the deal countdown one tick and returns a freshly dealt
// marble when one is due, nil otherwise. The caller inserts it at the chain
// head; until then the marble idles at the feeder mouth.
func (s *Spawner) Update() *Marble {
	if s.Exhausted() {
		return nil
	}
	if s.countdown > 0 {
		s.countdown--
		return nil
	}

	interval := s.cfg.IntervalTicks
	if s.dealt < s.cfg.PrefeedCount {
		// Prefeed runs hot so the round opens with a worthwhile chain
		interval = s.cfg.IntervalTicks / 4
		if interval < 1 {
			interval = 1
		}
	}
	s.countdown = interval
	s.dealt++

	m := NewMarble(s.pickColor())
	m.X = s.entry.X
	m.Y = s.entry.Y
	return m
}

// pickColor draws from the round palette using the catalog spawn weights.
func (s *Spawner) pickColor() MarbleColor {
	palette := SpawnableColors(s.cfg.PaletteSize)
	total := 0
	for _, c := range palette {
		total += GetKind(c).Weight
	}
	if total <= 0 {
		return palette[s.rng.Intn(len(palette))]
	}
	roll := s.rng.Intn(total)
	for _, c := range palette {
		roll -= GetKind(c).Weight
		if roll < 0 {
			return c
		}
	}
	return palette[len(palette)-1]
}
