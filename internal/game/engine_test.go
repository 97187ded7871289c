package game

import (
	"testing"
	"time"
)

// TestNewEngine verifies engine creation fills sane defaults.
func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		tickRate int
	}{
		{"standard 20 TPS", 20},
		{"high 60 TPS", 60},
		{"low 10 TPS", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(EngineConfig{TickRate: tt.tickRate, Seed: 1})
			if engine == nil {
				t.Fatal("NewEngine returned nil")
			}
			state := engine.GetState()
			if state.Round != 1 {
				t.Errorf("expected round 1, got %d", state.Round)
			}
			if state.Lives != 3 {
				t.Errorf("expected 3 lives, got %d", state.Lives)
			}
			if state.ChainLength != 0 {
				t.Errorf("expected empty chain, got %d", state.ChainLength)
			}
		})
	}
}

// TestEngineStartStop verifies engine can start and stop without panics.
func TestEngineStartStop(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 1})

	engine.Start()
	time.Sleep(100 * time.Millisecond)

	engine.Stop()

	// Should not panic on double stop
	engine.Stop()
}

// TestStepOnceAdvancesTick verifies manual stepping moves virtual time by
// exactly one tick per call.
func TestStepOnceAdvancesTick(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 1})

	for i := 0; i < 5; i++ {
		engine.StepOnce()
	}
	if got := engine.TickCount(); got != 5 {
		t.Errorf("expected tick count 5, got %d", got)
	}
}

// TestSpawnerFeedsChain verifies the feeder deals marbles onto the track as
// ticks pass.
func TestSpawnerFeedsChain(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 7})

	for i := 0; i < 60; i++ {
		engine.StepOnce()
	}

	state := engine.GetState()
	if state.Dealt == 0 {
		t.Fatal("feeder should have dealt marbles by tick 60")
	}
	if state.ActiveCount == 0 {
		t.Error("chain should hold live marbles")
	}
	if state.ActiveCount > state.Dealt {
		t.Errorf("active count %d cannot exceed dealt %d", state.ActiveCount, state.Dealt)
	}
}

// TestDeterministicReplay verifies two engines with the same seed play out
// identically under manual stepping.
func TestDeterministicReplay(t *testing.T) {
	a := NewEngine(EngineConfig{Seed: 99})
	b := NewEngine(EngineConfig{Seed: 99})

	for i := 0; i < 200; i++ {
		a.StepOnce()
		b.StepOnce()
	}

	sa, sb := a.GetState(), b.GetState()
	if sa.Dealt != sb.Dealt {
		t.Errorf("dealt diverged: %d vs %d", sa.Dealt, sb.Dealt)
	}
	if sa.ChainLength != sb.ChainLength {
		t.Errorf("chain length diverged: %d vs %d", sa.ChainLength, sb.ChainLength)
	}
	if sa.Score != sb.Score {
		t.Errorf("score diverged: %d vs %d", sa.Score, sb.Score)
	}
	if len(sa.Marbles) != len(sb.Marbles) {
		t.Fatalf("marble counts diverged: %d vs %d", len(sa.Marbles), len(sb.Marbles))
	}
	for i := range sa.Marbles {
		ma, mb := sa.Marbles[i], sb.Marbles[i]
		if ma.Color != mb.Color || ma.Slot != mb.Slot || ma.X != mb.X || ma.Y != mb.Y {
			t.Fatalf("marble %d diverged: %+v vs %+v", i, ma, mb)
		}
	}
}

// TestPauseHaltsSimulation verifies paused ticks are no-ops and resume picks
// back up.
func TestPauseHaltsSimulation(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 1})

	engine.Pause()
	if !engine.Paused() {
		t.Fatal("engine should report paused")
	}
	for i := 0; i < 10; i++ {
		engine.StepOnce()
	}
	if got := engine.TickCount(); got != 0 {
		t.Errorf("paused engine must not advance, tick count %d", got)
	}

	engine.Resume()
	engine.StepOnce()
	if got := engine.TickCount(); got != 1 {
		t.Errorf("resumed engine should advance, tick count %d", got)
	}
}

// TestResetRestoresFreshRound verifies reset returns the board to round 1
// with a clean score and a full feeder.
func TestResetRestoresFreshRound(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 5})

	for i := 0; i < 100; i++ {
		engine.StepOnce()
		if i%10 == 0 {
			engine.FireAngle("tester", float64(i))
		}
	}

	engine.Reset()

	state := engine.GetState()
	if state.Score != 0 {
		t.Errorf("expected score 0 after reset, got %d", state.Score)
	}
	if state.Round != 1 {
		t.Errorf("expected round 1 after reset, got %d", state.Round)
	}
	if state.Lives != 3 {
		t.Errorf("expected 3 lives after reset, got %d", state.Lives)
	}
	if state.ChainLength != 0 {
		t.Errorf("expected empty chain after reset, got %d", state.ChainLength)
	}
	if state.Dealt != 0 {
		t.Errorf("expected feeder reset, dealt %d", state.Dealt)
	}

	// The engine keeps simulating cleanly afterward.
	for i := 0; i < 30; i++ {
		engine.StepOnce()
	}
	if engine.GetState().Dealt == 0 {
		t.Error("feeder should deal again after reset")
	}
}

// TestFireCooldown verifies the launcher refuses fire commands until its
// cooldown elapses.
func TestFireCooldown(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 1})

	if !engine.FireAt("tester", 100, 100) {
		t.Fatal("first shot should fire")
	}
	if engine.FireAt("tester", 100, 100) {
		t.Fatal("second immediate shot should be blocked by cooldown")
	}

	for i := 0; i < DefaultLauncherConfig().CooldownTicks; i++ {
		engine.StepOnce()
	}
	if !engine.FireAt("tester", 100, 100) {
		t.Error("shot should fire again once the cooldown elapsed")
	}
}

// TestSwapMagazine verifies the current and next colors exchange.
func TestSwapMagazine(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 3})

	before := engine.GetState()
	engine.SwapMagazine("tester")
	after := engine.GetState()

	if after.Current != before.Next || after.Next != before.Current {
		t.Errorf("swap failed: (%s, %s) -> (%s, %s)",
			before.Current, before.Next, after.Current, after.Next)
	}
}

// TestTrackOutline verifies the waypoint outline is available and respects
// the configured spacing.
func TestTrackOutline(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 1})

	outline := engine.TrackOutline()
	if len(outline) < 10 {
		t.Fatalf("expected a usable outline, got %d waypoints", len(outline))
	}

	// The final waypoint is pinned to t=1.0 and may land arbitrarily close
	// to its predecessor, so it is exempt from the spacing check.
	minDist := DefaultEngineConfig().Track.MinDistance
	for i := 1; i < len(outline)-1; i++ {
		if d := outline[i].Dist(outline[i-1]); d < minDist {
			t.Fatalf("waypoints %d-%d only %.1f apart, want >= %.1f", i-1, i, d, minDist)
		}
	}
}

// TestObserverHooks verifies the telemetry hooks fire once per simulated
// tick and once per successful shot.
func TestObserverHooks(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 9})

	var ticks, shots int
	engine.SetObserver(EngineObserver{
		TickDone:  func(time.Duration) { ticks++ },
		ShotFired: func() { shots++ },
	})

	for i := 0; i < 5; i++ {
		engine.StepOnce()
	}
	if ticks != 5 {
		t.Errorf("expected 5 tick observations, got %d", ticks)
	}

	if !engine.FireAt("tester", 100, 100) {
		t.Fatal("first shot should fire")
	}
	engine.FireAt("tester", 100, 100) // blocked by cooldown, must not count
	if shots != 1 {
		t.Errorf("expected 1 shot observation, got %d", shots)
	}
}

// TestSnapshotMatchesState verifies the lock-free snapshot agrees with the
// locked state query after a step.
func TestSnapshotMatchesState(t *testing.T) {
	engine := NewEngine(EngineConfig{Seed: 11})

	for i := 0; i < 80; i++ {
		engine.StepOnce()
	}

	snap := engine.GetSnapshot()
	state := engine.GetState()

	if snap.TickNumber != uint64(state.TickCount) {
		t.Errorf("snapshot tick %d != state tick %d", snap.TickNumber, state.TickCount)
	}
	if snap.Score != state.Score {
		t.Errorf("snapshot score %d != state score %d", snap.Score, state.Score)
	}
	if snap.ActiveCount != state.ActiveCount {
		t.Errorf("snapshot active %d != state active %d", snap.ActiveCount, state.ActiveCount)
	}
	if snap.Lives != state.Lives {
		t.Errorf("snapshot lives %d != state lives %d", snap.Lives, state.Lives)
	}
}
