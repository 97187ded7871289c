package game

import (
	"sync"

	"chroma-chain/internal/game/spatial"
)

// Leaderboard ranks commanders by the points their shots have cleared.
// Backed by a skip list for O(log n) updates and rank queries, with a side
// table for the stats that do not participate in ordering.
//
// Operations:
//   - AddPoints: O(log n)
//   - GetRank: O(log n)
//   - GetTop: O(log n + k)
//   - GetAroundCommander: O(log n + k)
type Leaderboard struct {
	skipList *spatial.SkipList
	mu       sync.RWMutex
	stats    map[string]*commanderStats
}

type commanderStats struct {
	clears    int
	marbles   int
	bestCombo int
}

// LeaderboardEntry represents a commander in the leaderboard
type LeaderboardEntry struct {
	CommanderID string
	Score       float64
	Clears      int
	Marbles     int
	BestCombo   int
	Rank        int
}

// NewLeaderboard creates a new leaderboard
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		skipList: spatial.NewSkipList(),
		stats:    map[string]*commanderStats{},
	}
}

// AddClear credits a commander with a cleared run and returns their new
// total score. O(log n).
func (lb *Leaderboard) AddClear(commanderID string, runSize, combo, points int) float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	st := lb.stats[commanderID]
	if st == nil {
		st = &commanderStats{}
		lb.stats[commanderID] = st
	}
	st.clears++
	st.marbles += runSize
	if combo > st.bestCombo {
		st.bestCombo = combo
	}

	score, _ := lb.skipList.GetScore(commanderID)
	score += float64(points)
	lb.skipList.Insert(commanderID, score)
	return score
}

// UpdateScore sets a commander's score directly. O(log n).
func (lb *Leaderboard) UpdateScore(commanderID string, score float64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.skipList.Insert(commanderID, score)
}

// RemoveCommander removes a commander from the leaderboard. O(log n).
func (lb *Leaderboard) RemoveCommander(commanderID string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.skipList.Remove(commanderID)
	delete(lb.stats, commanderID)
}

// GetRank returns a commander's rank (1-indexed, 1 = top), 0 if absent.
// O(log n).
func (lb *Leaderboard) GetRank(commanderID string) int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.skipList.GetRank(commanderID)
}

// GetScore returns a commander's score. O(log n).
func (lb *Leaderboard) GetScore(commanderID string) (float64, bool) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.skipList.GetScore(commanderID)
}

// GetTop returns the top N commanders. O(log n + k).
func (lb *Leaderboard) GetTop(n int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.entriesFor(lb.skipList.GetRange(1, n), 1)
}

// GetAtRank returns the commander at a specific rank. O(log n).
func (lb *Leaderboard) GetAtRank(rank int) *LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	entry := lb.skipList.GetByRank(rank)
	if entry == nil {
		return nil
	}
	e := lb.entryFor(*entry, rank)
	return &e
}

// GetAroundCommander returns commanders ranked around one: `above` higher,
// the commander, and `below` lower. O(log n + k).
func (lb *Leaderboard) GetAroundCommander(commanderID string, above, below int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	rank := lb.skipList.GetRank(commanderID)
	if rank == 0 {
		return nil
	}

	start := rank - above
	if start < 1 {
		start = 1
	}
	return lb.entriesFor(lb.skipList.GetRange(start, rank+below), start)
}

// GetRange returns commanders in the rank range (1-indexed, inclusive).
// O(log n + k).
func (lb *Leaderboard) GetRange(start, end int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.entriesFor(lb.skipList.GetRange(start, end), start)
}

// Length returns the number of ranked commanders. O(1).
func (lb *Leaderboard) Length() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.skipList.Length()
}

// Clear removes all commanders, for round resets that wipe standings.
func (lb *Leaderboard) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.skipList.Clear()
	lb.stats = map[string]*commanderStats{}
}

// BatchUpdate sets multiple scores under one lock, used when restoring
// standings from a replay.
func (lb *Leaderboard) BatchUpdate(updates map[string]float64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	for commanderID, score := range updates {
		lb.skipList.Insert(commanderID, score)
	}
}

// ForEach iterates over all commanders in rank order. The callback receives
// the 1-indexed rank; return false to stop.
func (lb *Leaderboard) ForEach(fn func(rank int, entry LeaderboardEntry) bool) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	lb.skipList.ForEach(func(rank int, e spatial.SkipListEntry) bool {
		return fn(rank, lb.entryFor(e, rank))
	})
}

func (lb *Leaderboard) entriesFor(entries []spatial.SkipListEntry, startRank int) []LeaderboardEntry {
	result := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = lb.entryFor(e, startRank+i)
	}
	return result
}

func (lb *Leaderboard) entryFor(e spatial.SkipListEntry, rank int) LeaderboardEntry {
	entry := LeaderboardEntry{
		CommanderID: e.Key,
		Score:       e.Score,
		Rank:        rank,
	}
	if st := lb.stats[e.Key]; st != nil {
		entry.Clears = st.clears
		entry.Marbles = st.marbles
		entry.BestCombo = st.bestCombo
	}
	return entry
}
