package game

import (
	"log"
	"sort"

	"chroma-chain/internal/game/path"
)

// CheckForMatch evaluates the run around the pivot marble and clears it when
// it reaches the configured minimum. Returns the candidate run size whether
// or not a clear happened; zero when the pivot is not in the sequence.
//
// The whole evaluation is fault-isolated: any panic is logged and treated as
// "no match" rather than taking the tick down.
func (c *ChainManager) CheckForMatch(pivot *Marble) (size int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Match check aborted, treating as no match: %v", r)
			size = 0
		}
	}()

	if pivot == nil || !pivot.Color.Matchable() {
		return 0
	}
	pivotIdx := c.IndexOf(pivot)
	if pivotIdx < 0 {
		return 0
	}

	toward := c.scanRun(pivotIdx, pivot.Color, -1)
	away := c.scanRun(pivotIdx, pivot.Color, +1)

	run := make([]int, 0, len(toward)+len(away)+1)
	run = append(run, toward...)
	run = append(run, pivotIdx)
	run = append(run, away...)
	sort.Ints(run)

	if len(run) < c.cfg.MatchMin {
		c.combo = 0
		c.retargetFrom(0, 1.0)
		return len(run)
	}

	c.combo++
	c.clearRun(run, pivot)

	// Idempotent re-sync: behind the cleared run this resolves to the
	// backward ease that closes the gap, everywhere else it is a no-op.
	c.retargetFrom(0, 1.0)
	return len(run)
}

// scanRun walks from the pivot in one direction collecting same-color slots.
// dir -1 scans toward the lead, +1 toward the tail. Stale slots mid-clear
// are tolerated but the resulting index gap ends the run, and ghosts never
// join or bridge a run.
func (c *ChainManager) scanRun(pivotIdx int, color MarbleColor, dir int) []int {
	var found []int
	last := pivotIdx
	for j := pivotIdx + dir; j >= 0 && j < len(c.marbles); j += dir {
		m := c.marbles[j]
		if m == nil || !m.Alive() {
			continue
		}
		if !m.Color.Matchable() || m.Color != color {
			break
		}
		gap := j - last
		if gap < 0 {
			gap = -gap
		}
		if gap > 1 {
			break
		}
		found = append(found, j)
		last = j
	}
	return found
}

// clearRun kills every marble in the run and schedules their bursts on a
// stagger that walks from the deepest slot toward the lead. The sequence
// itself is reshaped later by FlushRemovals; under the compacting policy a
// chain-reaction recheck is queued for the marble left behind the run, timed
// to fire once the gap has visually closed.
func (c *ChainManager) clearRun(run []int, pivot *Marble) {
	runSize := len(run)
	pivotPos := path.Point{X: pivot.X, Y: pivot.Y}
	pivotColor := pivot.Color
	pivotOwner := pivot.Owner

	var delay int64
	for k := len(run) - 1; k >= 0; k-- {
		m := c.marbles[run[k]]
		if m == nil {
			continue
		}
		m.Kill()
		c.vanishing = append(c.vanishing, m)
		victim := m
		c.sched.After(delay, nil, func() {
			victim.BurstInto(c.effects)
			c.dropVanishing(victim)
		})
		delay += int64(c.cfg.VanishStaggerTicks)
	}

	if c.score != nil {
		c.score.RecordMatch(runSize, c.combo, pivotPos, pivotColor, pivotOwner)
	}

	if c.cfg.Policy == PolicyCompacting {
		tail := run[len(run)-1]
		if next := c.NextRealFrom(tail + 1); next >= 0 {
			behind := c.marbles[next]
			c.sched.After(int64(c.cfg.RollbackTicks), behind.Alive, func() {
				c.CheckForMatch(behind)
			})
		}
	}
}

func (c *ChainManager) dropVanishing(m *Marble) {
	for i, v := range c.vanishing {
		if v == m {
			c.vanishing = append(c.vanishing[:i], c.vanishing[i+1:]...)
			return
		}
	}
}
