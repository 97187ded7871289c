// This file implements the rank index behind the leaderboard: a skip list
// (Pugh 1990) whose links carry span counts, giving O(log n) inserts and
// O(log n) rank lookups. Ordering follows the Redis ZSET convention - score
// descending, ties broken by ascending key - with a side dict mapping
// key -> score so key lookups can navigate the score-ordered list.
package spatial

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

const (
	maxHeight = 32   // tower height cap
	promoteP  = 0.25 // chance a node grows one more level
)

// SkipListEntry is one scored row: commander ID and accumulated points.
type SkipListEntry struct {
	Key   string
	Score float64
}

// link is a forward pointer at one level. span counts how many rank
// positions the link jumps, destination included.
type link struct {
	to   *rankNode
	span int
}

type rankNode struct {
	entry SkipListEntry
	links []link
}

// SkipList is a concurrency-safe rank index. Length reads are lock-free;
// everything else takes the RWMutex.
type SkipList struct {
	head   *rankNode
	dict   map[string]float64 // key -> current score
	level  int32              // highest occupied level
	length int32              // atomic
	mu     sync.RWMutex
	rng    *rand.Rand
}

// NewSkipList creates an empty rank index.
func NewSkipList() *SkipList {
	return &SkipList{
		head:  &rankNode{links: make([]link, maxHeight)},
		dict:  map[string]float64{},
		level: 1,
		rng:   rand.New(rand.NewSource(rand.Int63())),
	}
}

// randomHeight draws a geometric tower height in [1, maxHeight].
func (sl *SkipList) randomHeight() int {
	h := 1
	for h < maxHeight && sl.rng.Float64() < promoteP {
		h++
	}
	return h
}

// precedes reports whether a stored entry sorts before the (score, key)
// target: higher scores first, ties broken by ascending key.
func precedes(e SkipListEntry, score float64, key string) bool {
	return e.Score > score || (e.Score == score && e.Key < key)
}

// Insert adds the entry, or repositions it when the key already exists with
// a different score.
func (sl *SkipList) Insert(key string, score float64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if old, ok := sl.dict[key]; ok {
		if old == score {
			return
		}
		sl.unlinkKey(key, old)
	}
	sl.linkNew(key, score)
	sl.dict[key] = score
}

// linkNew splices in a node for a key known to be absent. Caller holds the
// write lock.
func (sl *SkipList) linkNew(key string, score float64) {
	var path [maxHeight]*rankNode
	var rankAt [maxHeight]int

	// Walk down the levels recording, per level, the last node before the
	// insertion point and its rank.
	x := sl.head
	top := int(sl.level)
	for i := top - 1; i >= 0; i-- {
		if i < top-1 {
			rankAt[i] = rankAt[i+1]
		}
		for x.links[i].to != nil && precedes(x.links[i].to.entry, score, key) {
			rankAt[i] += x.links[i].span
			x = x.links[i].to
		}
		path[i] = x
	}

	h := sl.randomHeight()
	if h > top {
		for i := top; i < h; i++ {
			path[i] = sl.head
			sl.head.links[i].span = int(sl.length)
		}
		atomic.StoreInt32(&sl.level, int32(h))
	}

	n := &rankNode{
		entry: SkipListEntry{Key: key, Score: score},
		links: make([]link, h),
	}

	newRank := rankAt[0] // rank of the node preceding the insertion point
	for i := 0; i < h; i++ {
		n.links[i].to = path[i].links[i].to
		path[i].links[i].to = n

		n.links[i].span = path[i].links[i].span - (newRank - rankAt[i])
		path[i].links[i].span = newRank - rankAt[i] + 1
	}

	// Links that jump clean over the new node get one position longer
	for i := h; i < int(sl.level); i++ {
		path[i].links[i].span++
	}

	atomic.AddInt32(&sl.length, 1)
}

// Remove deletes the entry for key. Returns false when the key is absent.
func (sl *SkipList) Remove(key string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	score, ok := sl.dict[key]
	if !ok {
		return false
	}
	if !sl.unlinkKey(key, score) {
		return false
	}
	delete(sl.dict, key)
	return true
}

// unlinkKey removes the node holding (key, score). Caller holds the write
// lock.
func (sl *SkipList) unlinkKey(key string, score float64) bool {
	var path [maxHeight]*rankNode

	x := sl.head
	for i := int(sl.level) - 1; i >= 0; i-- {
		for x.links[i].to != nil && precedes(x.links[i].to.entry, score, key) {
			x = x.links[i].to
		}
		path[i] = x
	}

	target := x.links[0].to
	if target == nil || target.entry.Key != key {
		return false
	}

	for i := 0; i < int(sl.level); i++ {
		if path[i].links[i].to == target {
			path[i].links[i].span += target.links[i].span - 1
			path[i].links[i].to = target.links[i].to
		} else {
			path[i].links[i].span--
		}
	}

	for sl.level > 1 && sl.head.links[sl.level-1].to == nil {
		atomic.AddInt32(&sl.level, -1)
	}
	atomic.AddInt32(&sl.length, -1)
	return true
}

// GetRank returns the 1-indexed rank of key, 1 being the highest score.
// Returns 0 for an absent key.
func (sl *SkipList) GetRank(key string) int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	score, ok := sl.dict[key]
	if !ok {
		return 0
	}

	rank := 0
	x := sl.head
	for i := int(sl.level) - 1; i >= 0; i-- {
		for x.links[i].to != nil &&
			(precedes(x.links[i].to.entry, score, key) || x.links[i].to.entry.Key == key) {
			rank += x.links[i].span
			x = x.links[i].to
			if x.entry.Key == key {
				return rank
			}
		}
	}
	return 0
}

// GetByRank returns the entry at a 1-indexed rank, or nil past the ends.
func (sl *SkipList) GetByRank(rank int) *SkipListEntry {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if rank <= 0 || rank > int(sl.length) {
		return nil
	}

	pos := 0
	x := sl.head
	for i := int(sl.level) - 1; i >= 0; i-- {
		for x.links[i].to != nil && pos+x.links[i].span <= rank {
			pos += x.links[i].span
			x = x.links[i].to
		}
		if pos == rank {
			return &x.entry
		}
	}
	return nil
}

// GetRange returns entries with ranks in [start, end], both 1-indexed and
// inclusive. Out-of-bounds ends are clamped.
func (sl *SkipList) GetRange(start, end int) []SkipListEntry {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if start <= 0 {
		start = 1
	}
	if end > int(sl.length) {
		end = int(sl.length)
	}
	if start > end {
		return nil
	}

	// Skip to just before start, then walk the bottom level
	pos := 0
	x := sl.head
	for i := int(sl.level) - 1; i >= 0; i-- {
		for x.links[i].to != nil && pos+x.links[i].span < start {
			pos += x.links[i].span
			x = x.links[i].to
		}
	}

	result := make([]SkipListEntry, 0, end-start+1)
	for x = x.links[0].to; x != nil && pos < end; x = x.links[0].to {
		pos++
		if pos >= start {
			result = append(result, x.entry)
		}
	}
	return result
}

// GetScore returns the score for key.
func (sl *SkipList) GetScore(key string) (float64, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	score, ok := sl.dict[key]
	return score, ok
}

// Length returns the number of entries. Safe without the lock.
func (sl *SkipList) Length() int {
	return int(atomic.LoadInt32(&sl.length))
}

// Clear drops every entry, keeping the head tower.
func (sl *SkipList) Clear() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	for i := range sl.head.links {
		sl.head.links[i] = link{}
	}
	sl.dict = map[string]float64{}
	atomic.StoreInt32(&sl.level, 1)
	atomic.StoreInt32(&sl.length, 0)
}

// ForEach visits entries in rank order until fn returns false.
func (sl *SkipList) ForEach(fn func(rank int, entry SkipListEntry) bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	rank := 0
	for x := sl.head.links[0].to; x != nil; x = x.links[0].to {
		rank++
		if !fn(rank, x.entry) {
			return
		}
	}
}
