package game

import (
	"fmt"
	"sync/atomic"

	"chroma-chain/internal/game/path"
)

// MarbleState represents the marble's lifecycle state
type MarbleState int

const (
	StateIdle        MarbleState = iota // Parked on its slot waypoint
	StateMoving                         // Interpolating toward a target waypoint
	StateLaunching                      // In flight from the launcher, motion owned by the shot
	StateDetached                       // Ran off the track end, draining
	StateRollingBack                    // Easing backward along the curve to close a gap
)

// String returns the state name used in snapshots and logs.
func (s MarbleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateLaunching:
		return "launching"
	case StateDetached:
		return "detached"
	case StateRollingBack:
		return "rollingBack"
	default:
		return "unknown"
	}
}

// MarbleRadius is the render and contact radius in world units.
const MarbleRadius = 16.0

// BaseTransitionTicks is the duration of a one-slot advance at speed factor 1.
const BaseTransitionTicks = 6

// DetachTicks is how long a detached marble drains before the engine drops it.
const DetachTicks = 14

// ChainAdvisor is the slice of chain behavior a marble drives itself with
// on arrival. Implemented by the chain manager; tests substitute fakes.
type ChainAdvisor interface {
	IndexOf(m *Marble) int
	SlotPosition(index int) (path.Point, bool)
	SlotParametric(index int) float64
	WorldAt(t float64) path.Point
	CheckForMatch(m *Marble) int
}

// Marble is one tile in the chain.
type Marble struct {
	ID    string      `json:"id"`
	Color MarbleColor `json:"color"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	State MarbleState `json:"state"`
	Owner string      `json:"owner,omitempty"` // who launched it, empty for feeder marbles

	// Transition state (one slot advance or a rollback)
	TargetIndex int     `json:"targetIndex"` // waypoint this transition ends on
	Progress    float64 `json:"-"`           // 0..1 within the current transit
	fromX       float64
	fromY       float64
	goalX       float64
	goalY       float64
	fromT       float64 // parametric endpoints, kept for rollback blending
	goalT       float64
	currentT    float64
	stepPerTick float64
	speedFactor float64
	endOfPath   bool // target resolved to the clamped track-end sentinel

	// Slot bookkeeping. The chain is the authority on membership; this is
	// only the waypoint the marble last came to rest on.
	slotIndex int

	// One-shot arrival flag: armed when a forward target is pushed, consumed
	// by exactly one match check per arrival.
	checkArmed bool

	// Liveness, checked by deferred callbacks at execution time.
	alive uint32

	// Drain countdown once detached
	DetachTimer int `json:"-"`
}

var marbleSeq uint64

// NewMarble creates a marble of the given color, idle and off the track.
func NewMarble(color MarbleColor) *Marble {
	seq := atomic.AddUint64(&marbleSeq, 1)
	m := &Marble{
		ID:          fmt.Sprintf("marble_%d", seq),
		Color:       color,
		State:       StateIdle,
		TargetIndex: -1,
		slotIndex:   -1,
		speedFactor: 1.0,
	}
	atomic.StoreUint32(&m.alive, 1)
	return m
}

// Alive reports whether the marble is still an acting member of the game.
// Deferred callbacks check this at execution time, never at scheduling time.
func (m *Marble) Alive() bool {
	return atomic.LoadUint32(&m.alive) == 1
}

// Kill marks the marble dead. Idempotent.
func (m *Marble) Kill() {
	atomic.StoreUint32(&m.alive, 0)
}

// SlotIndex returns the waypoint the marble last came to rest on, -1 if it
// has not rested yet.
func (m *Marble) SlotIndex() int {
	return m.slotIndex
}

// Parametric returns the marble's estimated parametric position on the track.
func (m *Marble) Parametric() float64 {
	return m.currentT
}

// PlaceAt teleports the marble onto a slot with no transition. Used when a
// marble first materializes on the track.
func (m *Marble) PlaceAt(index int, pos path.Point, t float64) {
	m.X = pos.X
	m.Y = pos.Y
	m.fromX = pos.X
	m.fromY = pos.Y
	m.goalX = pos.X
	m.goalY = pos.Y
	m.fromT = t
	m.goalT = t
	m.currentT = t
	m.slotIndex = index
	m.TargetIndex = index
	m.Progress = 1.0
	m.State = StateIdle
	m.speedFactor = 1.0
	m.endOfPath = false
}

// PushTarget assigns a forward target waypoint. Starting from rest begins a
// new transition with the given speed factor; while already moving, the
// factor only clamps downward so a later slow push never cancels a fast
// catch-up. Pushing the slot a resting marble already occupies is a no-op.
func (m *Marble) PushTarget(index int, pos path.Point, t float64, endOfPath bool, speedFactor float64) {
	if !m.Alive() || m.State == StateLaunching || m.State == StateDetached {
		return
	}
	if speedFactor <= 0 {
		speedFactor = 1.0
	}

	// A re-sync naming the slot we are already easing back to changes nothing.
	if m.State == StateRollingBack && index == m.TargetIndex {
		return
	}

	if m.State == StateMoving || m.State == StateRollingBack {
		if speedFactor < m.speedFactor {
			m.speedFactor = speedFactor
		}
		if index == m.TargetIndex && m.State == StateMoving {
			// Same goal, possibly faster: recompute the step, keep progress
			m.stepPerTick = transitionStep(BaseTransitionTicks, m.speedFactor)
			return
		}
		m.beginMove(index, pos, t, endOfPath, m.speedFactor)
		return
	}

	if index == m.slotIndex && m.Progress >= 1.0 {
		return
	}
	m.beginMove(index, pos, t, endOfPath, speedFactor)
}

// PushRollback starts a backward ease toward the given slot. The blend runs
// in parametric space and is projected through the curve each tick so the
// marble follows the track instead of cutting a straight line.
func (m *Marble) PushRollback(index int, t float64, durationTicks int) {
	if !m.Alive() || m.State == StateLaunching || m.State == StateDetached {
		return
	}
	if m.State == StateRollingBack && index == m.TargetIndex {
		return
	}
	if durationTicks < 1 {
		durationTicks = 1
	}
	m.TargetIndex = index
	m.fromT = m.currentT
	m.goalT = t
	m.fromX = m.X
	m.fromY = m.Y
	m.Progress = 0
	m.stepPerTick = 1.0 / float64(durationTicks)
	m.endOfPath = false
	m.State = StateRollingBack
}

func (m *Marble) beginMove(index int, pos path.Point, t float64, endOfPath bool, speedFactor float64) {
	m.TargetIndex = index
	m.fromX = m.X
	m.fromY = m.Y
	m.goalX = pos.X
	m.goalY = pos.Y
	m.fromT = m.currentT
	m.goalT = t
	m.Progress = 0
	m.speedFactor = speedFactor
	m.stepPerTick = transitionStep(BaseTransitionTicks, speedFactor)
	m.endOfPath = endOfPath
	m.checkArmed = true
	m.State = StateMoving
}

func transitionStep(baseTicks int, factor float64) float64 {
	d := float64(baseTicks) * factor
	if d < 1 {
		d = 1
	}
	return 1.0 / d
}

// progressEpsilon absorbs the float error from summing stepPerTick: 1/6 added
// six times lands at 0.9999999999999999, not 1.0, and the transition must
// still complete on that tick.
const progressEpsilon = 1e-9

// Update advances the marble one tick. Launching marbles are driven by the
// shot that carries them; detached marbles drain until the engine reaps them.
func (m *Marble) Update(advisor ChainAdvisor) {
	switch m.State {
	case StateLaunching:
		return
	case StateDetached:
		// Slide off the end and sink
		m.DetachTimer--
		m.Y += 2.2
		return
	case StateMoving:
		m.Progress += m.stepPerTick
		if m.Progress >= 1.0-progressEpsilon {
			m.Progress = 1.0
			m.arriveForward(advisor)
			return
		}
		m.X = m.fromX + (m.goalX-m.fromX)*m.Progress
		m.Y = m.fromY + (m.goalY-m.fromY)*m.Progress
		m.currentT = m.fromT + (m.goalT-m.fromT)*m.Progress
	case StateRollingBack:
		m.Progress += m.stepPerTick
		if m.Progress >= 1.0-progressEpsilon {
			m.Progress = 1.0
			m.currentT = m.goalT
			p := advisor.WorldAt(m.currentT)
			m.X = p.X
			m.Y = p.Y
			m.slotIndex = m.TargetIndex
			m.State = StateIdle
			return
		}
		m.currentT = m.fromT + (m.goalT-m.fromT)*m.Progress
		p := advisor.WorldAt(m.currentT)
		m.X = p.X
		m.Y = p.Y
	}
}

// arriveForward resolves a completed forward transition: snap to the goal,
// run the one-shot match check, then re-derive the next target so the marble
// keeps advancing on its own when insertions stacked up during the transit.
func (m *Marble) arriveForward(advisor ChainAdvisor) {
	m.X = m.goalX
	m.Y = m.goalY
	m.currentT = m.goalT
	m.slotIndex = m.TargetIndex

	if m.endOfPath {
		m.State = StateDetached
		m.DetachTimer = DetachTicks
		return
	}

	m.State = StateIdle
	factor := m.speedFactor
	m.speedFactor = 1.0

	if m.checkArmed {
		m.checkArmed = false
		advisor.CheckForMatch(m)
	}

	// The match check may have killed us or pushed a new transition.
	if !m.Alive() || m.State != StateIdle {
		return
	}

	// Catch-up: keep hopping at the in-flight speed until we reach the slot
	// the chain currently assigns us.
	idx := advisor.IndexOf(m)
	if idx < 0 || idx == m.slotIndex {
		return
	}
	pos, ok := advisor.SlotPosition(idx)
	m.beginMove(idx, pos, advisor.SlotParametric(idx), !ok, factor)
}

// BeginLaunch hands motion control to the launcher subsystem.
func (m *Marble) BeginLaunch(x, y float64) {
	m.X = x
	m.Y = y
	m.State = StateLaunching
	m.slotIndex = -1
	m.TargetIndex = -1
}

// Land returns control of a launched marble to the chain. The landing spot
// becomes the start of its first slot transition.
func (m *Marble) Land() {
	if m.State == StateLaunching {
		m.State = StateIdle
	}
}

// BurstInto asks the effect sink for this marble's vanish burst. The chain
// schedules this on the staggered clear timeline; it fires even though the
// marble is already marked dead.
func (m *Marble) BurstInto(sink EffectSink) {
	if sink == nil {
		return
	}
	sink.SpawnEffect(GetKind(m.Color).Burst, path.Point{X: m.X, Y: m.Y}, m.Color)
}
