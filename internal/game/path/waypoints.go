package path

import "log"

// Default spacing used when a build is requested with zeroed parameters.
const (
	DefaultStepSize    = 0.0005
	DefaultMinDistance = 34.0
)

// Waypoint pins a parametric position to its world projection.
type Waypoint struct {
	T   float64 `json:"t"`
	Pos Point   `json:"pos"`
}

// Table is the precomputed waypoint sequence for a track: parametric
// positions and their world projections, spaced at least minDistance apart
// in world units. Index n is the slot n marbles deep from the track entry.
// The table is immutable once built.
type Table struct {
	waypoints []Waypoint
}

// BuildTable walks the curve domain [0,1] in stepSize increments and emits a
// waypoint whenever the straight-line distance from the last emitted waypoint
// reaches minDistance. The final entry is always pinned to exactly t=1.0 so
// the table covers the full track regardless of stepping remainder; it is the
// only entry that may sit closer than minDistance to its predecessor.
// Parametric positions are strictly increasing apart from that forced final
// entry.
//
// A curve with fewer than 2 control points cannot be walked: the build logs
// a warning and returns an empty table. stepSize must be small relative to
// minDistance or spacing becomes irregular; the build does not police this.
func BuildTable(curve Curve, stepSize, minDistance float64) *Table {
	tbl := &Table{}
	if curve == nil || curve.ControlPointCount() < 2 {
		log.Printf("⚠️ Waypoint table build skipped: curve needs at least 2 control points")
		return tbl
	}
	if stepSize <= 0 {
		stepSize = DefaultStepSize
	}
	if minDistance <= 0 {
		minDistance = DefaultMinDistance
	}

	last := curve.WorldAt(0)
	tbl.waypoints = append(tbl.waypoints, Waypoint{T: 0, Pos: last})

	for t := stepSize; t < 1.0; t += stepSize {
		pos := curve.WorldAt(t)
		if last.Dist(pos) >= minDistance {
			tbl.waypoints = append(tbl.waypoints, Waypoint{T: t, Pos: pos})
			last = pos
		}
	}

	tbl.waypoints = append(tbl.waypoints, Waypoint{T: 1.0, Pos: curve.WorldAt(1.0)})
	return tbl
}

// Len returns the number of waypoints in the table.
func (tbl *Table) Len() int {
	return len(tbl.waypoints)
}

// WorldPosition returns the world position for a waypoint index. Out-of-range
// indices clamp to the nearest end of the table and return false; a clamped
// past-end lookup is the path-end sentinel callers use to detect that a slot
// has run off the track. An empty table clamps everything to the zero point.
func (tbl *Table) WorldPosition(index int) (Point, bool) {
	n := len(tbl.waypoints)
	if n == 0 {
		return Point{}, false
	}
	if index < 0 {
		return tbl.waypoints[0].Pos, false
	}
	if index >= n {
		return tbl.waypoints[n-1].Pos, false
	}
	return tbl.waypoints[index].Pos, true
}

// ParametricPosition returns the raw [0,1] value for a waypoint index,
// clamped to the table bounds. Rollback interpolation blends these values
// and projects through the curve so the motion follows track curvature.
func (tbl *Table) ParametricPosition(index int) float64 {
	n := len(tbl.waypoints)
	if n == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= n {
		index = n - 1
	}
	return tbl.waypoints[index].T
}

// Waypoints exposes the underlying sequence for rendering. Callers must not
// modify the returned slice.
func (tbl *Table) Waypoints() []Waypoint {
	return tbl.waypoints
}
