package game

import (
	"testing"

	"chroma-chain/internal/game/path"
)

// newTestTrack builds a long straight track so slot positions are easy to
// reason about (slot spacing = MinDistance along the X axis).
func newTestTrack() *path.Track {
	curve := path.NewPolyline([]path.Point{{X: 0, Y: 0}, {X: 4000, Y: 0}})
	return path.NewTrack(curve, path.TrackConfig{
		StepSize:      0.0005,
		MinDistance:   34,
		MaxParametric: 1.0,
	})
}

func newTestChain(policy ChainPolicy) (*ChainManager, *Scheduler) {
	sched := NewScheduler()
	cfg := DefaultChainConfig()
	cfg.Policy = policy
	return NewChainManager(cfg, newTestTrack(), sched, nil, nil), sched
}

// settle appends marbles of the given colors in slot order and parks each on
// its waypoint so tests start from a resting chain.
func settle(c *ChainManager, colors ...MarbleColor) []*Marble {
	out := make([]*Marble, 0, len(colors))
	for i, col := range colors {
		m := NewMarble(col)
		c.InsertAt(m, i, 1.0)
		pos, _ := c.track.SlotPosition(i)
		m.PlaceAt(i, pos, c.track.SlotParametric(i))
		out = append(out, m)
	}
	return out
}

// TestInsertMakesNewLead verifies that every feeder insertion becomes slot 0
// and pushes existing marbles one slot deeper.
func TestInsertMakesNewLead(t *testing.T) {
	c, _ := newTestChain(PolicyCompacting)

	first := NewMarble(ColorRed)
	second := NewMarble(ColorBlue)
	c.Insert(first)
	c.Insert(second)

	if c.Len() != 2 {
		t.Fatalf("expected chain length 2, got %d", c.Len())
	}
	if c.At(0) != second {
		t.Error("newest insertion should hold slot 0")
	}
	if c.At(1) != first {
		t.Error("previous lead should have been pushed to slot 1")
	}
}

// TestInsertAtSplices verifies mid-chain insertion shifts deeper marbles back
// and that negative indices are rejected.
func TestInsertAtSplices(t *testing.T) {
	c, _ := newTestChain(PolicyCompacting)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen)

	m := NewMarble(ColorAmber)
	if _, ok := c.InsertAt(m, 1, 1.0); !ok {
		t.Fatal("splice at slot 1 should succeed")
	}
	if c.Len() != 4 {
		t.Fatalf("expected length 4 after splice, got %d", c.Len())
	}
	if c.At(1) != m {
		t.Error("spliced marble should hold slot 1")
	}
	if c.At(2) != seq[1] {
		t.Error("former slot 1 marble should have shifted to slot 2")
	}

	bad := NewMarble(ColorRed)
	if _, ok := c.InsertAt(bad, -1, 1.0); ok {
		t.Error("negative slot must be rejected")
	}
}

// TestCompactingFlushClosesGaps verifies that under the compacting policy the
// sequence stays dense: after FlushRemovals no slot holds a dead marble and
// indices are contiguous from zero.
func TestCompactingFlushClosesGaps(t *testing.T) {
	c, _ := newTestChain(PolicyCompacting)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen, ColorAmber, ColorViolet)

	seq[1].Kill()
	seq[3].Kill()
	c.FlushRemovals()

	if c.Len() != 3 {
		t.Fatalf("expected length 3 after flush, got %d", c.Len())
	}
	for i := 0; i < c.Len(); i++ {
		m := c.At(i)
		if m == nil || !m.Alive() {
			t.Fatalf("slot %d holds a dead or nil marble after flush", i)
		}
	}
	if c.At(0) != seq[0] || c.At(1) != seq[2] || c.At(2) != seq[4] {
		t.Error("survivors should keep their relative order")
	}
}

// TestPlaceholderFlushLeavesGhosts verifies that under the placeholder policy
// cleared slots are backfilled by ghosts and the chain length never shrinks.
func TestPlaceholderFlushLeavesGhosts(t *testing.T) {
	c, _ := newTestChain(PolicyPlaceholder)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen)

	seq[1].Kill()
	c.FlushRemovals()

	if c.Len() != 3 {
		t.Fatalf("placeholder flush must keep length 3, got %d", c.Len())
	}
	g := c.At(1)
	if g == nil || !g.Color.IsPlaceholder() {
		t.Fatal("cleared slot should hold a ghost")
	}
	if !g.Alive() {
		t.Error("ghost should be a living sequence member")
	}
	if c.ActiveCount(false) != 2 {
		t.Errorf("expected 2 real marbles, got %d", c.ActiveCount(false))
	}
	if c.ActiveCount(true) != 3 {
		t.Errorf("expected 3 including ghosts, got %d", c.ActiveCount(true))
	}
}

// TestInsertAtFillsGhostInPlace verifies a shot landing on a ghost slot takes
// it over without growing the sequence.
func TestInsertAtFillsGhostInPlace(t *testing.T) {
	c, _ := newTestChain(PolicyPlaceholder)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen)
	seq[1].Kill()
	c.FlushRemovals()

	m := NewMarble(ColorAmber)
	if _, ok := c.InsertAt(m, 1, 1.0); !ok {
		t.Fatal("landing on a ghost slot should succeed")
	}
	if c.Len() != 3 {
		t.Fatalf("filling a ghost must not grow the chain, got length %d", c.Len())
	}
	if c.At(1) != m {
		t.Error("new marble should occupy the ghost's slot")
	}
}

// TestInsertEatsNearestGhost verifies a feeder insertion consumes the first
// ghost so holes never accumulate at the entry.
func TestInsertEatsNearestGhost(t *testing.T) {
	c, _ := newTestChain(PolicyPlaceholder)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen)
	seq[1].Kill()
	c.FlushRemovals()

	m := NewMarble(ColorAmber)
	c.Insert(m)

	if c.Len() != 3 {
		t.Fatalf("insert should have eaten the ghost, got length %d", c.Len())
	}
	if c.At(0) != m {
		t.Error("inserted marble should hold slot 0")
	}
	if c.NextPlaceholderFrom(0) != -1 {
		t.Error("no ghost should remain")
	}
}

// TestGhostNeverAppends verifies ghosts cannot extend the chain past its tail.
func TestGhostNeverAppends(t *testing.T) {
	c, _ := newTestChain(PolicyPlaceholder)
	settle(c, ColorRed)

	g := NewMarble(ColorGhost)
	if _, ok := c.InsertAt(g, 5, 1.0); ok {
		t.Error("ghost append past the tail should be rejected")
	}
	if g.Alive() {
		t.Error("rejected ghost should be killed")
	}
	if c.Len() != 1 {
		t.Errorf("chain length should stay 1, got %d", c.Len())
	}
}

// TestRemoveByIdentity verifies Remove finds the marble by identity even
// after slots shifted.
func TestRemoveByIdentity(t *testing.T) {
	c, _ := newTestChain(PolicyCompacting)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen)

	c.Remove(seq[1])
	if c.Len() != 2 {
		t.Fatalf("expected length 2, got %d", c.Len())
	}
	if c.IndexOf(seq[1]) != -1 {
		t.Error("removed marble should no longer be found")
	}
	if c.IndexOf(seq[2]) != 1 {
		t.Errorf("trailing marble should now sit at slot 1, got %d", c.IndexOf(seq[2]))
	}
}

// TestRemoveSplicesUnderBothPolicies verifies Remove is a bookkeeping splice
// regardless of policy: ghost slots come from match clears via FlushRemovals,
// never from departures, or a drained chain would keep its length forever.
func TestRemoveSplicesUnderBothPolicies(t *testing.T) {
	for _, policy := range []ChainPolicy{PolicyCompacting, PolicyPlaceholder} {
		c, _ := newTestChain(policy)
		seq := settle(c, ColorRed, ColorBlue, ColorGreen)

		c.Remove(seq[2])
		if c.Len() != 2 {
			t.Fatalf("policy %d: expected length 2 after Remove, got %d", policy, c.Len())
		}
		for i := 0; i < c.Len(); i++ {
			if m := c.At(i); m == nil || m.Color.IsPlaceholder() {
				t.Errorf("policy %d: slot %d holds a placeholder after Remove", policy, i)
			}
		}
	}
}

// TestEffectiveIndexSkipsPendingClears verifies slot resolution already aims
// at the post-compaction layout while kills are still pending.
func TestEffectiveIndexSkipsPendingClears(t *testing.T) {
	c, _ := newTestChain(PolicyCompacting)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen, ColorAmber)

	seq[1].Kill()

	// Slot 3 should resolve to where slot 2 will be once the gap closes.
	want := c.track.SlotParametric(2)
	got := c.SlotParametric(3)
	if got != want {
		t.Errorf("expected pending-clear adjusted parametric %.6f, got %.6f", want, got)
	}

	// Placeholder policy never shifts.
	cp, _ := newTestChain(PolicyPlaceholder)
	seqP := settle(cp, ColorRed, ColorBlue, ColorGreen, ColorAmber)
	seqP[1].Kill()
	if cp.SlotParametric(3) != cp.track.SlotParametric(3) {
		t.Error("placeholder policy must not shift slot resolution")
	}
}

// TestResyncIdempotent verifies that re-pushing targets to a settled chain
// changes nothing, and doing it twice changes nothing either.
func TestResyncIdempotent(t *testing.T) {
	c, _ := newTestChain(PolicyCompacting)
	seq := settle(c, ColorRed, ColorBlue, ColorGreen)

	c.Resync()
	c.Resync()

	for i, m := range seq {
		if m.State != StateIdle {
			t.Errorf("marble %d left idle state after resync: %s", i, m.State)
		}
		if m.SlotIndex() != i {
			t.Errorf("marble %d slot drifted to %d", i, m.SlotIndex())
		}
	}
}

// TestHasColor verifies the feeder's color probe sees only living real
// marbles.
func TestHasColor(t *testing.T) {
	c, _ := newTestChain(PolicyCompacting)
	seq := settle(c, ColorRed, ColorBlue)

	if !c.HasColor(ColorRed) || !c.HasColor(ColorBlue) {
		t.Fatal("expected both colors present")
	}
	if c.HasColor(ColorGreen) {
		t.Error("green was never dealt")
	}

	seq[0].Kill()
	if c.HasColor(ColorRed) {
		t.Error("dead marbles must not count")
	}
}

// TestClearDropsEverything verifies round teardown empties the sequence and
// resets the combo counter.
func TestClearDropsEverything(t *testing.T) {
	c, _ := newTestChain(PolicyPlaceholder)
	seq := settle(c, ColorRed, ColorRed, ColorBlue)
	c.combo = 3

	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("expected empty chain, got length %d", c.Len())
	}
	if c.Combo() != 0 {
		t.Errorf("combo should reset, got %d", c.Combo())
	}
	for i, m := range seq {
		if m.Alive() {
			t.Errorf("marble %d should be dead after clear", i)
		}
	}
}
