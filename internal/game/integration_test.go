package game

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// INTEGRATION TESTS: SIMULATE LIVE SERVING CONDITIONS
// These tests run the full tick loop under concurrent snapshot pressure
// =============================================================================

// TestIntegration_TickLoopWithRenderPressure runs the engine while a renderer
// and several state readers continuously consume, the way the websocket hub
// and preview renderer do in production.
func TestIntegration_TickLoopWithRenderPressure(t *testing.T) {
	engine := NewEngine(EngineConfig{TickRate: 20, Seed: 21})
	engine.Start()
	defer engine.Stop()

	var (
		snapshotReads int64
		stateReads    int64
	)

	testDuration := 2 * time.Second
	stopChan := make(chan struct{})
	var wg sync.WaitGroup

	// Renderer at 20 FPS via the lock-free snapshot pool
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Second / 20)
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				snap := engine.GetSnapshot()
				if snap.Sequence < lastSeq {
					t.Errorf("snapshot sequence went backward: %d -> %d", lastSeq, snap.Sequence)
					return
				}
				lastSeq = snap.Sequence
				atomic.AddInt64(&snapshotReads, 1)
			}
		}
	}()

	// Three API-style state readers hammering the locked query path
	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stopChan:
					return
				default:
					state := engine.GetState()
					if state.ActiveCount > state.ChainLength {
						t.Errorf("active count %d exceeds chain length %d",
							state.ActiveCount, state.ChainLength)
						return
					}
					atomic.AddInt64(&stateReads, 1)
					time.Sleep(5 * time.Millisecond)
				}
			}
		}()
	}

	// A commander firing and swapping throughout
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(150 * time.Millisecond)
		defer ticker.Stop()
		angle := 0.0
		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				engine.FireAngle("pressure-test", angle)
				angle += 37
				if int(angle)%3 == 0 {
					engine.SwapMagazine("pressure-test")
				}
			}
		}
	}()

	time.Sleep(testDuration)
	close(stopChan)
	wg.Wait()

	if atomic.LoadInt64(&snapshotReads) == 0 {
		t.Error("renderer consumed no snapshots")
	}
	if atomic.LoadInt64(&stateReads) == 0 {
		t.Error("state readers made no progress")
	}
	if engine.TickCount() == 0 {
		t.Error("engine made no ticks under pressure")
	}
}

// TestIntegration_RoundFailureRearmsBoard drives an unattended round into
// failure (an endless feed with one life) and verifies the next round opens
// on a clean board.
func TestIntegration_RoundFailureRearmsBoard(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Seed = 33
	cfg.Lives = 1
	cfg.Spawner.TotalMarbles = 0 // endless: the chain must eventually overrun
	engine := NewEngine(cfg)

	roundFlipped := false
	for i := 0; i < 10000; i++ {
		engine.StepOnce()
		if engine.GetState().Round > 1 {
			roundFlipped = true
			break
		}
	}

	if !roundFlipped {
		t.Fatal("round never finished within 10000 ticks")
	}

	state := engine.GetState()
	if state.ChainLength != 0 {
		t.Errorf("new round should open with an empty chain, got %d", state.ChainLength)
	}
	if state.Lives != cfg.Lives {
		t.Errorf("new round should restore lives, got %d", state.Lives)
	}
	if state.Dealt != 0 {
		t.Errorf("new round should rewind the feeder, got %d dealt", state.Dealt)
	}
}

// TestIntegration_OverrunCostsLife verifies a marble running off the track
// end decrements lives and reports through the overrun callback.
func TestIntegration_OverrunCostsLife(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Seed = 13
	cfg.Lives = 50 // plenty, so the round does not flip mid-test
	cfg.Spawner.TotalMarbles = 0
	engine := NewEngine(cfg)

	var overruns int64
	engine.SetCallbacks(nil, func(p OverrunPayload) {
		atomic.AddInt64(&overruns, 1)
	}, nil)

	start := engine.GetState().Lives
	for i := 0; i < 8000; i++ {
		engine.StepOnce()
		if engine.GetState().Lives < start {
			break
		}
	}

	if engine.GetState().Lives >= start {
		t.Fatal("no life was lost within 8000 ticks of an endless feed")
	}

	// Callback goroutines may still be in flight
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&overruns) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt64(&overruns) == 0 {
		t.Error("overrun callback never fired")
	}
}

// TestIntegration_SnapshotSlicesStayBounded verifies long runs with effects
// never grow a snapshot past its configured limits.
func TestIntegration_SnapshotSlicesStayBounded(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Seed = 8
	cfg.Limits = ResourceLimits{MaxMarbles: 16, MaxShots: 4, MaxBursts: 6, MaxPops: 4}
	engine := NewEngine(cfg)

	for i := 0; i < 1500; i++ {
		engine.StepOnce()
		if i%3 == 0 {
			engine.FireAngle("bounds", float64(i*11))
		}

		snap := engine.GetSnapshot()
		if len(snap.Marbles) > cfg.Limits.MaxMarbles {
			t.Fatalf("tick %d: %d marbles in snapshot, limit %d", i, len(snap.Marbles), cfg.Limits.MaxMarbles)
		}
		if len(snap.Shots) > cfg.Limits.MaxShots {
			t.Fatalf("tick %d: %d shots in snapshot, limit %d", i, len(snap.Shots), cfg.Limits.MaxShots)
		}
		if len(snap.Bursts) > cfg.Limits.MaxBursts {
			t.Fatalf("tick %d: %d bursts in snapshot, limit %d", i, len(snap.Bursts), cfg.Limits.MaxBursts)
		}
		if len(snap.Pops) > cfg.Limits.MaxPops {
			t.Fatalf("tick %d: %d pops in snapshot, limit %d", i, len(snap.Pops), cfg.Limits.MaxPops)
		}
	}
}
