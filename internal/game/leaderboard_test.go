package game

import (
	"fmt"
	"sync"
	"testing"
)

// TestAddClearAccumulates verifies clears add to the score total and to the
// side stats that ride along with each entry.
func TestAddClearAccumulates(t *testing.T) {
	lb := NewLeaderboard()

	if got := lb.AddClear("ana", 3, 1, 100); got != 100 {
		t.Errorf("first clear should total 100, got %v", got)
	}
	if got := lb.AddClear("ana", 5, 3, 250); got != 350 {
		t.Errorf("second clear should total 350, got %v", got)
	}

	top := lb.GetTop(1)
	if len(top) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(top))
	}
	e := top[0]
	if e.CommanderID != "ana" || e.Score != 350 {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Clears != 2 || e.Marbles != 8 || e.BestCombo != 3 {
		t.Errorf("stats not accumulated: %+v", e)
	}
}

// TestRankingOrder verifies higher scores rank first and GetRank agrees with
// GetTop.
func TestRankingOrder(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddClear("bronze", 3, 1, 100)
	lb.AddClear("gold", 3, 1, 900)
	lb.AddClear("silver", 3, 1, 500)

	top := lb.GetTop(3)
	want := []string{"gold", "silver", "bronze"}
	for i, id := range want {
		if top[i].CommanderID != id {
			t.Errorf("rank %d: expected %s, got %s", i+1, id, top[i].CommanderID)
		}
		if top[i].Rank != i+1 {
			t.Errorf("entry %s carries rank %d, expected %d", id, top[i].Rank, i+1)
		}
		if lb.GetRank(id) != i+1 {
			t.Errorf("GetRank(%s) = %d, expected %d", id, lb.GetRank(id), i+1)
		}
	}
}

// TestGetTopClampsToLength verifies asking for more entries than exist
// returns what there is.
func TestGetTopClampsToLength(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddClear("solo", 3, 1, 100)

	if got := lb.GetTop(10); len(got) != 1 {
		t.Errorf("expected 1 entry, got %d", len(got))
	}
}

// TestRemoveCommander verifies removal drops both the ranking entry and the
// side stats.
func TestRemoveCommander(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddClear("keep", 3, 1, 100)
	lb.AddClear("drop", 3, 1, 200)

	lb.RemoveCommander("drop")

	if lb.Length() != 1 {
		t.Errorf("expected length 1, got %d", lb.Length())
	}
	if lb.GetRank("drop") != 0 {
		t.Error("removed commander still ranked")
	}
	if _, ok := lb.GetScore("drop"); ok {
		t.Error("removed commander still has a score")
	}
	if lb.GetRank("keep") != 1 {
		t.Error("surviving commander should hold rank 1")
	}
}

// TestGetAroundCommander verifies the rank window around a mid-table
// commander.
func TestGetAroundCommander(t *testing.T) {
	lb := NewLeaderboard()
	for i := 1; i <= 5; i++ {
		lb.AddClear(fmt.Sprintf("c%d", i), 3, 1, i*100)
	}

	// c3 sits at rank 3 (scores 500..100 descending)
	window := lb.GetAroundCommander("c3", 1, 1)
	if len(window) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(window))
	}
	want := []string{"c4", "c3", "c2"}
	for i, id := range want {
		if window[i].CommanderID != id {
			t.Errorf("window[%d] = %s, expected %s", i, window[i].CommanderID, id)
		}
	}
	if window[0].Rank != 2 {
		t.Errorf("window should start at rank 2, got %d", window[0].Rank)
	}

	if lb.GetAroundCommander("stranger", 1, 1) != nil {
		t.Error("unknown commander should yield nil window")
	}
}

// TestGetAtRank covers both a hit and an out-of-range rank.
func TestGetAtRank(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddClear("only", 3, 1, 100)

	e := lb.GetAtRank(1)
	if e == nil || e.CommanderID != "only" {
		t.Errorf("expected 'only' at rank 1, got %+v", e)
	}
	if lb.GetAtRank(2) != nil {
		t.Error("rank past the end should be nil")
	}
}

// TestClearWipesStandings verifies a round reset empties everything.
func TestClearWipesStandings(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddClear("a", 3, 1, 100)
	lb.AddClear("b", 3, 1, 200)

	lb.Clear()

	if lb.Length() != 0 {
		t.Errorf("expected empty leaderboard, got length %d", lb.Length())
	}
	if lb.GetRank("a") != 0 {
		t.Error("cleared commander still ranked")
	}

	// Fresh clears start from zero again
	if got := lb.AddClear("a", 3, 1, 50); got != 50 {
		t.Errorf("post-clear total should be 50, got %v", got)
	}
}

// TestBatchUpdate verifies restored standings rank correctly.
func TestBatchUpdate(t *testing.T) {
	lb := NewLeaderboard()
	lb.BatchUpdate(map[string]float64{
		"x": 300,
		"y": 700,
		"z": 100,
	})

	if lb.GetRank("y") != 1 || lb.GetRank("x") != 2 || lb.GetRank("z") != 3 {
		t.Errorf("unexpected ranks: y=%d x=%d z=%d",
			lb.GetRank("y"), lb.GetRank("x"), lb.GetRank("z"))
	}
}

// TestLeaderboardConcurrentClears hammers AddClear from many goroutines and
// checks the totals survive.
func TestLeaderboardConcurrentClears(t *testing.T) {
	lb := NewLeaderboard()

	var wg sync.WaitGroup
	const workers = 8
	const clearsEach = 50

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			commander := fmt.Sprintf("commander%d", id)
			for i := 0; i < clearsEach; i++ {
				lb.AddClear(commander, 3, 1, 10)
			}
		}(w)
	}
	wg.Wait()

	if lb.Length() != workers {
		t.Errorf("expected %d commanders, got %d", workers, lb.Length())
	}
	for w := 0; w < workers; w++ {
		score, ok := lb.GetScore(fmt.Sprintf("commander%d", w))
		if !ok || score != float64(clearsEach*10) {
			t.Errorf("commander%d score = %v (ok=%v), expected %d", w, score, ok, clearsEach*10)
		}
	}
}
