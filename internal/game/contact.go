package game

import (
	"math"

	"chroma-chain/internal/game/path"
)

// ContactRadius is the center distance at which a shot counts as striking a
// chain marble.
const ContactRadius = MarbleRadius * 2

// Landing describes where a shot enters the chain.
type Landing struct {
	StruckIndex int     // slot of the marble that was hit
	InsertIndex int     // slot the shot marble should occupy
	Distance    float64 // center distance at contact
}

// ResolveLanding finds the chain slot a shot occupies on impact. candidates
// are slice indices into marbles from the broad phase; marbles must be the
// chain sequence in slot order so a slice index is also a slot index.
// Returns false when nothing is in contact.
//
// The insert side falls out of the track tangent at the struck slot: a shot
// arriving on the far side of the marble (deeper along the track) takes the
// slot behind it, otherwise it takes the struck slot and pushes the rest
// deeper.
func ResolveLanding(track *path.Track, marbles []*Marble, candidates []uint32, x, y float64) (Landing, bool) {
	best := -1
	bestDist := ContactRadius
	for _, idx := range candidates {
		if int(idx) >= len(marbles) {
			continue
		}
		m := marbles[idx]
		if m == nil || !m.Alive() {
			continue
		}
		if m.State == StateLaunching || m.State == StateDetached {
			continue
		}
		d := math.Hypot(m.X-x, m.Y-y)
		if d < bestDist {
			bestDist = d
			best = int(idx)
		}
	}
	if best < 0 {
		return Landing{}, false
	}

	struck := marbles[best]
	insert := best
	if sideOf(track, struck, x, y) > 0 {
		insert = best + 1
	}
	return Landing{StruckIndex: best, InsertIndex: insert, Distance: bestDist}, true
}

// sideOf reports which side of a chained marble a point lies on along the
// track: positive means deeper (toward the tail), negative means toward the
// entry.
func sideOf(track *path.Track, m *Marble, x, y float64) float64 {
	const h = 0.004
	t := m.Parametric()
	a := track.WorldAt(clamp01(t - h))
	b := track.WorldAt(clamp01(t + h))
	tx := b.X - a.X
	ty := b.Y - a.Y
	return tx*(x-m.X) + ty*(y-m.Y)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AimAngle returns the firing angle from the launcher mount to a target.
func AimAngle(fromX, fromY, toX, toY float64) float64 {
	return math.Atan2(toY-fromY, toX-fromX)
}

// NormalizeAngle wraps an angle into [-Pi, Pi).
func NormalizeAngle(angle float64) float64 {
	for angle >= math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}
