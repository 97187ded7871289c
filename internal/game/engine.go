package game

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"chroma-chain/internal/game/path"
	"chroma-chain/internal/game/spatial"
)

// MaxShakePerTick caps how many shake requests a single tick honors.
const MaxShakePerTick = 3

// EngineConfig bundles the construction knobs for a game engine.
type EngineConfig struct {
	TickRate    int
	WorldWidth  float64
	WorldHeight float64
	Lives       int
	Seed        int64

	ControlPoints []path.Point // track layout, nil for the stock course

	Track    path.TrackConfig
	Chain    ChainConfig
	Spawner  SpawnerConfig
	Launcher LauncherConfig
	Effects  EffectTable
	Limits   ResourceLimits
}

// DefaultEngineConfig returns the stock engine tuning.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickRate:    20,
		WorldWidth:  1280,
		WorldHeight: 720,
		Lives:       3,
		Track:       path.DefaultTrackConfig(),
		Chain:       DefaultChainConfig(),
		Spawner:     DefaultSpawnerConfig(),
		Launcher:    DefaultLauncherConfig(),
		Effects:     DefaultEffectTable(),
		Limits:      DefaultLimits,
	}
}

// DefaultTrackLayout is the stock serpentine course across a 1280x720
// playfield, spiraling in toward the drain.
func DefaultTrackLayout() []path.Point {
	return []path.Point{
		{X: -40, Y: 90}, {X: 220, Y: 60}, {X: 640, Y: 95}, {X: 1080, Y: 150},
		{X: 1190, Y: 330}, {X: 1020, Y: 500}, {X: 660, Y: 560}, {X: 300, Y: 510},
		{X: 150, Y: 340}, {X: 300, Y: 210}, {X: 620, Y: 230}, {X: 880, Y: 300},
		{X: 930, Y: 400}, {X: 810, Y: 450},
	}
}

// Engine is the main game engine handling the tick loop and everything on
// the playfield: the track, the chain, the feeder, the launcher and shots,
// and the transient effects.
type Engine struct {
	mu  sync.RWMutex
	cfg EngineConfig

	track    *path.Track
	sched    *Scheduler
	chain    *ChainManager
	spawner  *Spawner
	launcher *Launcher

	shots  []*Shot
	drains []*Marble // detached marbles sliding off the end

	// Spatial broad phase for shot landings, rebuilt each tick
	grid        *spatial.SpatialGrid
	marbleSlice []*Marble // cached chain order, slice index == slot index

	// Transient visual effects
	bursts        []*Burst
	pops          []*ScorePop
	shake         *TrackShake
	shakeThisTick int

	// Round state
	score   int
	lives   int
	round   int
	cleared int // marbles cleared this round

	leaderboard *Leaderboard

	running  bool
	paused   bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount int64

	// Snapshot system for lock-free render separation
	snapshotPool *SnapshotPool

	// Event sourcing for replay and debugging
	eventLog *EventLog

	// Deterministic RNG for replay consistency
	rng     *rand.Rand
	rngSeed int64

	// Event callbacks
	onMatch   func(MatchPayload)
	onOverrun func(OverrunPayload)
	onRound   func(RoundPayload)

	// Telemetry hooks, run synchronously on the tick goroutine
	observer EngineObserver
}

// NewEngine creates an engine from the config, filling in defaults for any
// zero fields.
func NewEngine(cfg EngineConfig) *Engine {
	def := DefaultEngineConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.WorldWidth <= 0 {
		cfg.WorldWidth = def.WorldWidth
	}
	if cfg.WorldHeight <= 0 {
		cfg.WorldHeight = def.WorldHeight
	}
	if cfg.Lives <= 0 {
		cfg.Lives = def.Lives
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Effects == nil {
		cfg.Effects = DefaultEffectTable()
	}
	if cfg.Limits == (ResourceLimits{}) {
		cfg.Limits = DefaultLimits
	}
	if len(cfg.ControlPoints) == 0 {
		cfg.ControlPoints = DefaultTrackLayout()
	}
	if cfg.Spawner.Seed == 0 {
		cfg.Spawner.Seed = cfg.Seed
	}
	if cfg.Launcher.Seed == 0 {
		cfg.Launcher.Seed = cfg.Seed + 1
	}

	curve := path.NewCatmullRom(cfg.ControlPoints)
	track := path.NewTrack(curve, cfg.Track)
	sched := NewScheduler()

	e := &Engine{
		cfg:          cfg,
		track:        track,
		sched:        sched,
		spawner:      NewSpawner(cfg.Spawner, curve.WorldAt(0)),
		launcher:     NewLauncher(cfg.Launcher),
		shots:        make([]*Shot, 0, cfg.Limits.MaxShots),
		bursts:       make([]*Burst, 0, cfg.Limits.MaxBursts),
		pops:         make([]*ScorePop, 0, cfg.Limits.MaxPops),
		grid:         spatial.NewSpatialGrid(cfg.WorldWidth, cfg.WorldHeight, ContactRadius*2, cfg.Limits.MaxMarbles),
		marbleSlice:  make([]*Marble, 0, cfg.Limits.MaxMarbles),
		lives:        cfg.Lives,
		round:        1,
		leaderboard:  NewLeaderboard(),
		stopChan:     make(chan struct{}),
		snapshotPool: NewSnapshotPool(cfg.Limits),
		eventLog:     NewEventLog(),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		rngSeed:      cfg.Seed,
	}
	e.chain = NewChainManager(cfg.Chain, track, sched, e, e)
	return e
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	e.eventLog.EmitSimple(EventTypeRoundStart, 0, "",
		RoundPayload{Round: e.round, Score: e.score})
	log.Printf("🎮 Game engine started at %d TPS (%s policy, %d waypoints)",
		e.cfg.TickRate, e.chain.Policy(), e.track.Table().Len())
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Game engine stopped")
}

// Pause freezes the simulation. The tick loop keeps running but every tick
// is a no-op until Resume, so snapshots stay valid for readers.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		e.paused = true
		log.Println("⏸️ Game paused")
	}
}

// Resume unfreezes a paused simulation.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		e.paused = false
		log.Println("▶️ Game resumed")
	}
}

// Paused reports whether the simulation is frozen.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// Reset tears the board down and starts over from round 1 with a clean
// score. Pending deferred tasks die through their liveness guards.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.chain.Clear()
	for _, s := range e.shots {
		s.Marble.Kill()
	}
	e.shots = e.shots[:0]
	e.drains = e.drains[:0]
	e.bursts = e.bursts[:0]
	e.pops = e.pops[:0]
	e.shake = nil
	e.track.Reset()
	e.spawner.Reset()
	e.lives = e.cfg.Lives
	e.score = 0
	e.cleared = 0
	e.round = 1

	e.eventLog.EmitSimple(EventTypeRoundStart, uint64(e.tickCount), "",
		RoundPayload{Round: e.round, Score: e.score})
	log.Println("🔄 Game reset")
}

// tick runs one simulation step. Everything that mutates game state happens
// here under the engine lock; the scheduler drain at the top means deferred
// work from earlier ticks also runs on this thread.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return
	}

	tickStart := time.Now()
	e.tickCount++

	e.eventLog.EmitSimple(EventTypeTick, uint64(e.tickCount), "",
		TickPayload{
			RNGSeed:     e.rngSeed,
			ChainLength: e.chain.Len(),
			DeltaTimeNs: int64(1e9) / int64(e.cfg.TickRate),
		})

	// Advance RNG seed deterministically for next tick
	e.rngSeed = e.rng.Int63()
	e.rng.Seed(e.rngSeed)

	// 1. Deferred work: staggered bursts, chain-reaction rechecks
	e.sched.Advance(e.tickCount)

	// 2. Feeder deal
	if m := e.spawner.Update(); m != nil {
		e.chain.Insert(m)
		e.eventLog.EmitSimple(EventTypeDeal, uint64(e.tickCount), "",
			DealPayload{MarbleID: m.ID, Color: m.Color.String(), ChainLength: e.chain.Len()})
	}

	// 3. Launcher cooldown and magazine upkeep
	e.launcher.Update(e.chain)

	// 4. Broad phase: rebuild the grid from the chain in slot order so a
	// grid hit is also a slot index
	e.marbleSlice = e.marbleSlice[:0]
	e.marbleSlice = append(e.marbleSlice, e.chain.Marbles()...)
	e.grid.Clear()
	for i, m := range e.marbleSlice {
		if m != nil && m.Alive() {
			e.grid.Insert(uint32(i), m.X, m.Y)
		}
	}

	// 5. Shots fly and land
	e.updateShots()

	// 6. Chain marbles interpolate; arrivals trigger their own match checks
	for _, m := range e.marbleSlice {
		if m != nil && m.Alive() {
			m.Update(e.chain)
		}
	}
	e.collectDetached()

	// 7. Detached marbles drain off the board
	e.updateDrains()

	// 8. Transient effects
	e.updateBursts()
	e.updatePops()
	e.updateShake()
	e.shakeThisTick = 0

	// 9. End-of-tick splice of everything the match checks killed
	e.chain.FlushRemovals()

	// 10. Round bookkeeping
	e.checkRound()

	// Produce immutable snapshot for lock-free render access
	e.ProduceSnapshot()

	if e.observer.TickDone != nil {
		e.observer.TickDone(time.Since(tickStart))
	}
}

// updateShots advances every shot and splices the ones that strike the
// chain.
func (e *Engine) updateShots() {
	n := 0
	for _, s := range e.shots {
		if !s.Update(e.cfg.WorldWidth, e.cfg.WorldHeight) {
			// Flew off or timed out; the carried marble dies with it
			s.Marble.Kill()
			continue
		}

		candidates := e.grid.QueryRadius(s.X, s.Y, ContactRadius+MarbleRadius)
		landing, hit := ResolveLanding(e.track, e.marbleSlice, candidates, s.X, s.Y)
		if !hit {
			e.shots[n] = s
			n++
			continue
		}

		e.chain.InsertAt(s.Marble, landing.InsertIndex, e.launcher.CatchUpFactor())
		e.SpawnEffect(EffectSplash, path.Point{X: s.X, Y: s.Y}, s.Marble.Color)
		e.eventLog.EmitSimple(EventTypeLanding, uint64(e.tickCount), s.OwnerID,
			LandingPayload{
				OwnerID:     s.OwnerID,
				MarbleID:    s.Marble.ID,
				Slot:        landing.InsertIndex,
				StruckSlot:  landing.StruckIndex,
				ChainLength: e.chain.Len(),
			})
	}
	e.shots = e.shots[:n]
}

// collectDetached pulls marbles that ran off the track end out of the chain
// and starts their drain. Each one costs a life.
func (e *Engine) collectDetached() {
	for _, m := range e.marbleSlice {
		if m == nil || m.State != StateDetached || !m.Alive() {
			continue
		}
		if e.chain.IndexOf(m) < 0 {
			continue // already collected
		}
		e.chain.Remove(m)
		e.drains = append(e.drains, m)

		if !m.Color.IsPlaceholder() {
			e.lives--
			if e.lives < 0 {
				e.lives = 0
			}
		}
		e.SpawnEffect(EffectDrain, path.Point{X: m.X, Y: m.Y}, m.Color)
		e.eventLog.EmitSimple(EventTypeOverrun, uint64(e.tickCount), m.Owner,
			OverrunPayload{MarbleID: m.ID, Color: m.Color.String(), LivesLeft: e.lives})
		log.Printf("🕳️ Marble overran the track end (%s), %d lives left", m.Color, e.lives)

		if e.onOverrun != nil {
			go e.onOverrun(OverrunPayload{MarbleID: m.ID, Color: m.Color.String(), LivesLeft: e.lives})
		}
	}
}

// updateDrains advances detached marbles until their timers run out.
func (e *Engine) updateDrains() {
	n := 0
	for _, m := range e.drains {
		m.Update(e.chain)
		if m.DetachTimer > 0 {
			e.drains[n] = m
			n++
			continue
		}
		m.Kill()
	}
	e.drains = e.drains[:n]
}

func (e *Engine) updateBursts() {
	n := 0
	for _, b := range e.bursts {
		if b.Update() {
			e.bursts[n] = b
			n++
		}
	}
	e.bursts = e.bursts[:n]
}

func (e *Engine) updatePops() {
	n := 0
	for _, p := range e.pops {
		if p.Update() {
			e.pops[n] = p
			n++
		}
	}
	e.pops = e.pops[:n]
}

func (e *Engine) updateShake() {
	if e.shake != nil {
		if !e.shake.Update(e.rngSeed) {
			e.shake = nil
		}
	}
}

// checkRound handles round completion and failure.
func (e *Engine) checkRound() {
	if e.lives == 0 {
		log.Printf("💔 Round %d failed with %d points", e.round, e.score)
		e.finishRound(false)
		return
	}
	if e.spawner.Exhausted() && e.chain.ActiveCount(true) == 0 &&
		len(e.drains) == 0 && len(e.shots) == 0 && len(e.chain.Vanishing()) == 0 {
		bonus := e.lives * 100
		e.score += bonus
		log.Printf("🏁 Round %d cleared, +%d life bonus", e.round, bonus)
		e.finishRound(true)
	}
}

// finishRound tears the board down and arms the next round. The waypoint
// table is dropped so the next activation rebuilds it.
func (e *Engine) finishRound(won bool) {
	payload := RoundPayload{Round: e.round, Score: e.score, Dealt: e.spawner.Dealt(), Cleared: e.cleared}
	e.eventLog.EmitSimple(EventTypeRoundEnd, uint64(e.tickCount), "", payload)
	if e.onRound != nil {
		go e.onRound(payload)
	}

	e.chain.Clear()
	for _, s := range e.shots {
		s.Marble.Kill()
	}
	e.shots = e.shots[:0]
	e.drains = e.drains[:0]
	e.track.Reset()
	e.spawner.Reset()
	e.lives = e.cfg.Lives
	e.cleared = 0
	e.round++
	_ = won

	e.eventLog.EmitSimple(EventTypeRoundStart, uint64(e.tickCount), "",
		RoundPayload{Round: e.round, Score: e.score})
}

// SpawnEffect implements EffectSink. Marbles call it for their vanish
// bursts; the engine itself uses it for splashes and drains. Caller holds
// the engine lock (everything runs on the tick).
func (e *Engine) SpawnEffect(kind EffectKind, pos path.Point, color MarbleColor) {
	if len(e.bursts) >= e.cfg.Limits.MaxBursts {
		return
	}
	b := NewBurst(e.cfg.Effects, kind, pos, color)
	if b == nil {
		return
	}
	e.bursts = append(e.bursts, b)

	if spec, ok := e.cfg.Effects[kind]; ok && spec.Shake > 0 {
		e.addShake(spec.Shake)
	}
}

// RecordMatch implements ScoreService. Called by the chain while the engine
// lock is held; must not re-lock.
func (e *Engine) RecordMatch(runSize, combo int, pos path.Point, color MarbleColor, owner string) {
	points := runSize * 10 * combo
	e.score += points
	e.cleared += runSize

	if combo > 1 {
		e.SpawnEffect(EffectComboFlare, pos, color)
	}
	if len(e.pops) < e.cfg.Limits.MaxPops {
		e.pops = append(e.pops, NewScorePop(pos, points, combo))
	}
	e.addShake(1.5 + float64(runSize))

	if owner != "" {
		e.leaderboard.AddClear(owner, runSize, combo, points)
	}

	payload := MatchPayload{
		OwnerID: owner,
		Color:   color.String(),
		RunSize: runSize,
		Combo:   combo,
		Points:  points,
		X:       pos.X,
		Y:       pos.Y,
	}
	e.eventLog.EmitSimple(EventTypeMatch, uint64(e.tickCount), owner, payload)
	log.Printf("💥 Cleared %d %s marbles for %d points (combo x%d)", runSize, color, points, combo)

	if e.onMatch != nil {
		go e.onMatch(payload)
	}
}

// addShake adds playfield shake with per-tick rate limiting.
func (e *Engine) addShake(intensity float64) {
	if e.shakeThisTick >= MaxShakePerTick {
		return
	}
	e.shakeThisTick++

	if e.shake == nil {
		e.shake = NewTrackShake(intensity)
	} else {
		e.shake.Intensity += intensity * 0.5
		if e.shake.Intensity > MaxShakeIntensity {
			e.shake.Intensity = MaxShakeIntensity
		}
		e.shake.Duration = 8
	}
}

// FireAt aims the launcher at a world point and fires. Returns false while
// the launcher is cooling down.
func (e *Engine) FireAt(owner string, targetX, targetY float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	lx, ly := e.launcher.Position()
	return e.fireLocked(owner, AimAngle(lx, ly, targetX, targetY))
}

// FireAngle fires the launcher along an angle given in degrees, 0 pointing
// right and growing clockwise.
func (e *Engine) FireAngle(owner string, degrees float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fireLocked(owner, NormalizeAngle(degrees*math.Pi/180))
}

func (e *Engine) fireLocked(owner string, angle float64) bool {
	if len(e.shots) >= e.cfg.Limits.MaxShots {
		return false
	}
	shot := e.launcher.Fire(owner, angle)
	if shot == nil {
		return false
	}
	e.shots = append(e.shots, shot)
	e.eventLog.EmitSimple(EventTypeShot, uint64(e.tickCount), owner,
		ShotPayload{OwnerID: owner, Color: GetKind(shot.Marble.Color).Name, Angle: angle})
	if e.observer.ShotFired != nil {
		e.observer.ShotFired()
	}
	return true
}

// SwapMagazine exchanges the launcher's current and next colors.
func (e *Engine) SwapMagazine(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.launcher.Swap()
	e.eventLog.EmitSimple(EventTypeSwap, uint64(e.tickCount), owner, nil)
}

// MarbleView is a value copy of one marble for state queries.
type MarbleView struct {
	ID    string      `json:"id"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Color MarbleColor `json:"color"`
	Slot  int         `json:"slot"`
	State MarbleState `json:"state"`
	Ghost bool        `json:"ghost"`
}

// GameState is a value snapshot of the logical game state for state queries
// and the autoplay bot. For rendering use GetSnapshot instead.
type GameState struct {
	Marbles     []MarbleView `json:"marbles"`
	ChainLength int          `json:"chainLength"`
	ActiveCount int          `json:"activeCount"`
	Score       int          `json:"score"`
	Combo       int          `json:"combo"`
	Round       int          `json:"round"`
	Lives       int          `json:"lives"`
	Dealt       int          `json:"dealt"`
	Current     MarbleColor  `json:"current"`
	Next        MarbleColor  `json:"next"`
	LauncherX   float64      `json:"launcherX"`
	LauncherY   float64      `json:"launcherY"`
	TickCount   int64        `json:"tickCount"`
}

// GetState returns the current logical game state.
func (e *Engine) GetState() GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	marbles := e.chain.Marbles()
	views := make([]MarbleView, 0, len(marbles))
	for i, m := range marbles {
		if m == nil || !m.Alive() {
			continue
		}
		views = append(views, MarbleView{
			ID:    m.ID,
			X:     m.X,
			Y:     m.Y,
			Color: m.Color,
			Slot:  i,
			State: m.State,
			Ghost: m.Color.IsPlaceholder(),
		})
	}

	lx, ly := e.launcher.Position()
	return GameState{
		Marbles:     views,
		ChainLength: e.chain.Len(),
		ActiveCount: e.chain.ActiveCount(false),
		Score:       e.score,
		Combo:       e.chain.Combo(),
		Round:       e.round,
		Lives:       e.lives,
		Dealt:       e.spawner.Dealt(),
		Current:     e.launcher.Current,
		Next:        e.launcher.Next,
		LauncherX:   lx,
		LauncherY:   ly,
		TickCount:   e.tickCount,
	}
}

// TrackOutline returns the waypoint positions in order, for render caching
// and web clients. Built once per activation, so callers may hold onto it
// until the next round.
func (e *Engine) TrackOutline() []path.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()

	wps := e.track.Table().Waypoints()
	out := make([]path.Point, len(wps))
	for i, wp := range wps {
		out[i] = wp.Pos
	}
	return out
}

// GetLeaderboard returns the commander leaderboard.
func (e *Engine) GetLeaderboard() *Leaderboard {
	return e.leaderboard
}

// GetSnapshot returns the latest immutable snapshot for lock-free rendering
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// ProduceSnapshot creates an immutable snapshot of the current game state.
// Called at the end of each tick with the engine lock held.
func (e *Engine) ProduceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	snap.TickNumber = uint64(e.tickCount)
	snap.RNGSeed = e.rngSeed

	limits := e.cfg.Limits

	// Live chain marbles in slot order
	for i, m := range e.marbleSlice {
		if len(snap.Marbles) >= limits.MaxMarbles {
			break
		}
		if m == nil || !m.Alive() {
			continue
		}
		kind := GetKind(m.Color)
		snap.Marbles = append(snap.Marbles, MarbleSnapshot{
			ID:       m.ID,
			X:        m.X,
			Y:        m.Y,
			Color:    kind.Hex,
			Rim:      kind.Rim,
			State:    m.State.String(),
			Owner:    m.Owner,
			Slot:     i,
			Ghost:    m.Color.IsPlaceholder(),
			Alpha:    1.0,
			Progress: m.Progress,
		})
	}

	// Fading clears and draining overruns ride along with reduced alpha
	for _, m := range e.chain.Vanishing() {
		if len(snap.Marbles) >= limits.MaxMarbles {
			break
		}
		kind := GetKind(m.Color)
		snap.Marbles = append(snap.Marbles, MarbleSnapshot{
			ID: m.ID, X: m.X, Y: m.Y, Color: kind.Hex, Rim: kind.Rim,
			State: "vanishing", Slot: -1, Alpha: 0.6,
		})
	}
	for _, m := range e.drains {
		if len(snap.Marbles) >= limits.MaxMarbles {
			break
		}
		kind := GetKind(m.Color)
		alpha := float64(m.DetachTimer) / float64(DetachTicks)
		snap.Marbles = append(snap.Marbles, MarbleSnapshot{
			ID: m.ID, X: m.X, Y: m.Y, Color: kind.Hex, Rim: kind.Rim,
			State: m.State.String(), Slot: -1, Alpha: alpha,
		})
	}

	for _, s := range e.shots {
		if len(snap.Shots) >= limits.MaxShots {
			break
		}
		shotSnap := ShotSnapshot{
			ID:      s.ID,
			X:       s.X,
			Y:       s.Y,
			Color:   s.Color,
			OwnerID: s.OwnerID,
		}
		for i, pt := range s.TrailPoints() {
			if i >= len(shotSnap.Trail) {
				break
			}
			shotSnap.Trail[i] = TrailPointSnapshot{X: pt.X, Y: pt.Y, Alpha: pt.Alpha}
			shotSnap.Count++
		}
		snap.Shots = append(snap.Shots, shotSnap)
	}

	for _, b := range e.bursts {
		if len(snap.Bursts) >= limits.MaxBursts {
			break
		}
		snap.Bursts = append(snap.Bursts, BurstSnapshot{
			X:      b.X,
			Y:      b.Y,
			Radius: b.Radius,
			Color:  b.Color,
			Sprite: b.Sprite,
			Alpha:  b.GetAlpha(),
		})
	}

	for _, p := range e.pops {
		if len(snap.Pops) >= limits.MaxPops {
			break
		}
		snap.Pops = append(snap.Pops, PopSnapshot{
			X:      p.X,
			Y:      p.Y,
			Points: p.Points,
			Combo:  p.Combo,
			Alpha:  p.GetAlpha(),
		})
	}

	if e.shake != nil && e.shake.Intensity > 0.5 {
		snap.Shake = ShakeSnapshot{
			OffsetX:   e.shake.OffsetX,
			OffsetY:   e.shake.OffsetY,
			Intensity: e.shake.Intensity,
		}
	}

	lx, ly := e.launcher.Position()
	snap.Launcher = LauncherSnapshot{
		X:       lx,
		Y:       ly,
		Angle:   e.launcher.Angle,
		Current: GetKind(e.launcher.Current).Hex,
		Next:    GetKind(e.launcher.Next).Hex,
	}

	snap.ChainLength = e.chain.Len()
	snap.ActiveCount = e.chain.ActiveCount(false)
	snap.Score = e.score
	snap.Combo = e.chain.Combo()
	snap.Round = e.round
	snap.Lives = e.lives
	snap.Dealt = e.spawner.Dealt()
	snap.TotalDeal = e.cfg.Spawner.TotalMarbles

	e.snapshotPool.PublishWrite()
}

// SetCallbacks sets event callbacks. Callbacks run on their own goroutines
// so they may call back into the engine.
func (e *Engine) SetCallbacks(onMatch func(MatchPayload), onOverrun func(OverrunPayload), onRound func(RoundPayload)) {
	e.onMatch = onMatch
	e.onOverrun = onOverrun
	e.onRound = onRound
}

// EngineObserver carries telemetry hooks, typically metric recorders. Hooks
// run synchronously while the engine lock is held, so they must be cheap and
// must not call back into the engine. Nil hooks are skipped.
type EngineObserver struct {
	TickDone  func(time.Duration) // called after every simulated tick
	ShotFired func()              // called for every launcher shot that fires
}

// SetObserver installs the telemetry hooks. Call before Start.
func (e *Engine) SetObserver(o EngineObserver) {
	e.observer = o
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// GetLimits returns the current resource limits
func (e *Engine) GetLimits() ResourceLimits {
	return e.cfg.Limits
}

// TickCount returns the current tick number.
func (e *Engine) TickCount() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// StepOnce runs exactly one tick, for offline rendering and tests.
func (e *Engine) StepOnce() {
	e.tick()
}
