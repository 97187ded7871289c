package game

import (
	"testing"

	"chroma-chain/internal/game/path"
)

// stubAdvisor is a minimal ChainAdvisor for driving marbles in isolation.
type stubAdvisor struct {
	index   int // slot IndexOf reports for any marble
	pos     path.Point
	t       float64
	checks  int
	lastPiv *Marble
}

func (a *stubAdvisor) IndexOf(m *Marble) int { return a.index }

func (a *stubAdvisor) SlotPosition(i int) (path.Point, bool) { return a.pos, true }

func (a *stubAdvisor) SlotParametric(i int) float64 { return a.t }

func (a *stubAdvisor) WorldAt(t float64) path.Point { return path.Point{X: t * 1000, Y: 0} }
func (a *stubAdvisor) CheckForMatch(m *Marble) int {
	a.checks++
	a.lastPiv = m
	return 0
}

// TestMarbleStateNames verifies the snapshot state strings.
func TestMarbleStateNames(t *testing.T) {
	tests := []struct {
		state MarbleState
		want  string
	}{
		{StateIdle, "idle"},
		{StateMoving, "moving"},
		{StateLaunching, "launching"},
		{StateDetached, "detached"},
		{StateRollingBack, "rollingBack"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("state %d: expected %q, got %q", tt.state, tt.want, got)
		}
	}
}

// TestForwardTransitionArrives verifies a one-slot advance takes the base
// duration and lands exactly on the goal.
func TestForwardTransitionArrives(t *testing.T) {
	adv := &stubAdvisor{index: 1, pos: path.Point{X: 34, Y: 0}, t: 0.05}
	m := NewMarble(ColorRed)
	m.PlaceAt(0, path.Point{X: 0, Y: 0}, 0)

	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 1.0)
	if m.State != StateMoving {
		t.Fatalf("expected moving state, got %s", m.State)
	}

	for i := 0; i < BaseTransitionTicks; i++ {
		m.Update(adv)
	}

	if m.State != StateIdle {
		t.Fatalf("expected idle after %d ticks, got %s", BaseTransitionTicks, m.State)
	}
	if m.X != 34 || m.Y != 0 {
		t.Errorf("expected rest at (34, 0), got (%.2f, %.2f)", m.X, m.Y)
	}
	if m.SlotIndex() != 1 {
		t.Errorf("expected slot 1, got %d", m.SlotIndex())
	}
}

// TestTransitionCompletesOnExactTick verifies a transition never runs long
// from float drift: summing 1/duration must still cross 1.0 on the final
// tick, for both forward advances and rollbacks over awkward durations.
func TestTransitionCompletesOnExactTick(t *testing.T) {
	durations := []int{3, 6, 7, 12}
	for _, d := range durations {
		adv := &stubAdvisor{index: 1, pos: path.Point{X: 34, Y: 0}, t: 0.05}
		m := NewMarble(ColorBlue)
		m.PlaceAt(5, path.Point{X: 170, Y: 0}, 0.25)

		m.PushRollback(2, 0.1, d)
		for i := 0; i < d-1; i++ {
			m.Update(adv)
			if m.State != StateRollingBack {
				t.Fatalf("duration %d: rollback ended early on tick %d", d, i+1)
			}
		}
		m.Update(adv)
		if m.State != StateIdle {
			t.Fatalf("duration %d: expected idle after %d ticks, got %s", d, d, m.State)
		}
	}

	// Forward path with a fractional speed factor: 6 * (7/6) = 7 ticks.
	adv := &stubAdvisor{index: 1, pos: path.Point{X: 34, Y: 0}, t: 0.05}
	m := NewMarble(ColorRed)
	m.PlaceAt(0, path.Point{X: 0, Y: 0}, 0)
	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 7.0/6.0)
	for i := 0; i < 7; i++ {
		m.Update(adv)
	}
	if m.State != StateIdle {
		t.Fatalf("fractional speed factor: expected idle after 7 ticks, got %s", m.State)
	}
}

// TestArrivalChecksMatchOnce verifies the one-shot arming: exactly one match
// check per completed forward transition, none while parked.
func TestArrivalChecksMatchOnce(t *testing.T) {
	adv := &stubAdvisor{index: 1, pos: path.Point{X: 34, Y: 0}, t: 0.05}
	m := NewMarble(ColorRed)
	m.PlaceAt(0, path.Point{}, 0)
	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 1.0)

	for i := 0; i < BaseTransitionTicks+5; i++ {
		m.Update(adv)
	}

	if adv.checks != 1 {
		t.Errorf("expected exactly 1 match check, got %d", adv.checks)
	}
	if adv.lastPiv != m {
		t.Error("the arriving marble should pivot its own check")
	}
}

// TestArrivalCatchUp verifies a marble keeps hopping at its in-flight speed
// when the chain reassigned its slot during the transit.
func TestArrivalCatchUp(t *testing.T) {
	adv := &stubAdvisor{index: 2, pos: path.Point{X: 68, Y: 0}, t: 0.1}
	m := NewMarble(ColorRed)
	m.PlaceAt(0, path.Point{}, 0)
	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 0.5)

	// Drive to arrival; the advisor says the marble now belongs at slot 2.
	for m.State == StateMoving && m.TargetIndex == 1 {
		m.Update(adv)
	}

	if m.State != StateMoving {
		t.Fatalf("expected an immediate catch-up transition, got %s", m.State)
	}
	if m.TargetIndex != 2 {
		t.Errorf("catch-up should target slot 2, got %d", m.TargetIndex)
	}
}

// TestPushTargetCurrentSlotIsNoOp verifies re-pushing the slot a resting
// marble already occupies changes nothing.
func TestPushTargetCurrentSlotIsNoOp(t *testing.T) {
	m := NewMarble(ColorBlue)
	m.PlaceAt(3, path.Point{X: 102, Y: 0}, 0.15)

	m.PushTarget(3, path.Point{X: 102, Y: 0}, 0.15, false, 1.0)
	if m.State != StateIdle {
		t.Errorf("expected idle, got %s", m.State)
	}
}

// TestSpeedFactorOnlyClampsDown verifies a later slow push never cancels a
// fast catch-up in flight.
func TestSpeedFactorOnlyClampsDown(t *testing.T) {
	m := NewMarble(ColorBlue)
	m.PlaceAt(0, path.Point{}, 0)

	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 0.5)
	fast := m.stepPerTick

	// Same goal at a slower factor must keep the fast step.
	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 1.0)
	if m.stepPerTick != fast {
		t.Errorf("slow re-push changed step %.4f -> %.4f", fast, m.stepPerTick)
	}

	// A faster factor does apply.
	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 0.25)
	if m.stepPerTick <= fast {
		t.Errorf("faster factor should shorten the transition, step %.4f", m.stepPerTick)
	}
}

// TestRollbackFollowsCurve verifies the backward ease interpolates in
// parametric space and projects through the curve each tick.
func TestRollbackFollowsCurve(t *testing.T) {
	adv := &stubAdvisor{}
	m := NewMarble(ColorGreen)
	m.PlaceAt(5, path.Point{X: 200, Y: 0}, 0.2)

	m.PushRollback(2, 0.1, 4)
	if m.State != StateRollingBack {
		t.Fatalf("expected rollingBack, got %s", m.State)
	}

	m.Update(adv)
	// Quarter of the way back: t = 0.2 - 0.025, projected via WorldAt.
	wantX := (0.2 - 0.025) * 1000
	if diff := m.X - wantX; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("expected curve-projected X %.1f, got %.1f", wantX, m.X)
	}

	for i := 0; i < 3; i++ {
		m.Update(adv)
	}
	if m.State != StateIdle {
		t.Fatalf("rollback should settle after 4 ticks, got %s", m.State)
	}
	if m.Parametric() != 0.1 {
		t.Errorf("expected parametric 0.1, got %.4f", m.Parametric())
	}
	if m.SlotIndex() != 2 {
		t.Errorf("expected slot 2, got %d", m.SlotIndex())
	}
}

// TestRollbackRePushIsNoOp verifies a re-sync naming the slot already being
// eased toward does not restart the ease.
func TestRollbackRePushIsNoOp(t *testing.T) {
	adv := &stubAdvisor{}
	m := NewMarble(ColorGreen)
	m.PlaceAt(5, path.Point{X: 200, Y: 0}, 0.2)
	m.PushRollback(2, 0.1, 4)

	m.Update(adv)
	progress := m.Progress

	m.PushRollback(2, 0.1, 4)
	if m.Progress != progress {
		t.Error("re-pushing the same rollback should not reset progress")
	}
	m.PushTarget(2, path.Point{}, 0.1, false, 1.0)
	if m.State != StateRollingBack || m.Progress != progress {
		t.Error("a forward re-sync to the rollback goal should be ignored")
	}
}

// TestEndOfPathDetaches verifies a transition whose target fell off the track
// ends in the detached drain state.
func TestEndOfPathDetaches(t *testing.T) {
	adv := &stubAdvisor{index: 9}
	m := NewMarble(ColorAmber)
	m.PlaceAt(8, path.Point{X: 272, Y: 0}, 0.9)

	m.PushTarget(9, path.Point{X: 306, Y: 0}, 1.0, true, 1.0)
	for i := 0; i < BaseTransitionTicks; i++ {
		m.Update(adv)
	}

	if m.State != StateDetached {
		t.Fatalf("expected detached, got %s", m.State)
	}
	if m.DetachTimer != DetachTicks {
		t.Fatalf("expected drain timer %d, got %d", DetachTicks, m.DetachTimer)
	}

	y := m.Y
	m.Update(adv)
	if m.DetachTimer != DetachTicks-1 {
		t.Errorf("drain timer should count down, got %d", m.DetachTimer)
	}
	if m.Y <= y {
		t.Error("detached marble should sink")
	}
	if adv.checks != 0 {
		t.Error("detaching must not trigger a match check")
	}
}

// TestLaunchingIgnoresChainPushes verifies the chain cannot steer a marble
// whose motion is owned by a shot.
func TestLaunchingIgnoresChainPushes(t *testing.T) {
	m := NewMarble(ColorViolet)
	m.BeginLaunch(640, 420)

	m.PushTarget(1, path.Point{X: 34, Y: 0}, 0.05, false, 1.0)
	m.PushRollback(0, 0, 4)

	if m.State != StateLaunching {
		t.Errorf("expected launching, got %s", m.State)
	}

	m.Land()
	if m.State != StateIdle {
		t.Errorf("landing should return control, got %s", m.State)
	}
}

// TestKillIsIdempotent verifies liveness flips once and stays down.
func TestKillIsIdempotent(t *testing.T) {
	m := NewMarble(ColorRed)
	if !m.Alive() {
		t.Fatal("new marble should be alive")
	}
	m.Kill()
	m.Kill()
	if m.Alive() {
		t.Error("killed marble should stay dead")
	}
}
