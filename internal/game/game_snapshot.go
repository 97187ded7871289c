package game

import (
	"sync/atomic"
	"time"
)

// ResourceLimits defines hard caps on snapshot contents so a runaway tick
// can never balloon what consumers have to carry.
type ResourceLimits struct {
	MaxMarbles int // Rendered chain marbles per frame
	MaxShots   int // In-flight shots per frame
	MaxBursts  int // Transient effects per frame
	MaxPops    int // Floating score markers per frame
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxMarbles: 256,
	MaxShots:   32,
	MaxBursts:  40,
	MaxPops:    30,
}

// MarbleSnapshot is an immutable copy of one marble for rendering.
// Value types only, so consumers can never reach back into live state.
type MarbleSnapshot struct {
	ID       string
	X, Y     float64
	Color    string // hex fill
	Rim      string
	State    string
	Owner    string
	Slot     int
	Ghost    bool
	Alpha    float64 // < 1 while fading out after a clear
	Progress float64
}

// ShotSnapshot is an immutable in-flight shot
type ShotSnapshot struct {
	ID      string
	X, Y    float64
	Color   string
	OwnerID string
	Trail   [4]TrailPointSnapshot
	Count   int // valid trail points
}

// TrailPointSnapshot is a single point in a shot trail
type TrailPointSnapshot struct {
	X, Y  float64
	Alpha float64
}

// BurstSnapshot is an immutable transient effect
type BurstSnapshot struct {
	X, Y   float64
	Radius float64
	Color  string
	Sprite string
	Alpha  float64
}

// PopSnapshot is an immutable floating score marker
type PopSnapshot struct {
	X, Y   float64
	Points int
	Combo  int
	Alpha  float64
}

// ShakeSnapshot captures playfield shake state
type ShakeSnapshot struct {
	OffsetX   float64
	OffsetY   float64
	Intensity float64
}

// LauncherSnapshot captures the shooter for rendering
type LauncherSnapshot struct {
	X, Y    float64
	Angle   float64
	Current string // hex of the loaded marble
	Next    string // hex of the one behind it
}

// GameSnapshot is a complete immutable game state for rendering and the
// websocket hub. All slices are pre-allocated and capped.
type GameSnapshot struct {
	Sequence   uint64    // Monotonic sequence for ordering
	Timestamp  time.Time // When snapshot was created
	TickNumber uint64    // Game tick this represents
	RNGSeed    int64     // Seed for deterministic replay

	// Pre-allocated capped slices (never grow beyond limits)
	Marbles []MarbleSnapshot
	Shots   []ShotSnapshot
	Bursts  []BurstSnapshot
	Pops    []PopSnapshot

	Shake    ShakeSnapshot // Single global shake state
	Launcher LauncherSnapshot

	// Aggregate stats
	ChainLength int
	ActiveCount int
	Score       int
	Combo       int
	Round       int
	Lives       int
	Dealt       int
	TotalDeal   int
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Triple buffering keeps the tick-loop producer and the render/hub consumer
// lock-free.
type SnapshotPool struct {
	snapshots [3]GameSnapshot // Triple buffer
	limits    ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	// Pre-allocate all slices to avoid runtime allocations
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Marbles: make([]MarbleSnapshot, 0, limits.MaxMarbles),
			Shots:   make([]ShotSnapshot, 0, limits.MaxShots),
			Bursts:  make([]BurstSnapshot, 0, limits.MaxBursts),
			Pops:    make([]PopSnapshot, 0, limits.MaxPops),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the game
// tick). Returns a snapshot with reset slices but preserved capacity.
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	// Reset ALL slices but keep capacity (zero allocation)
	snap.Marbles = snap.Marbles[:0]
	snap.Shots = snap.Shots[:0]
	snap.Bursts = snap.Bursts[:0]
	snap.Pops = snap.Pops[:0]
	snap.Shake = ShakeSnapshot{}
	snap.Launcher = LauncherSnapshot{}

	// Assign new sequence number
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks the write complete and advances the read pointer.
// Called after the snapshot is fully populated.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only).
// The slot stays valid until the producer laps the buffer twice.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}
