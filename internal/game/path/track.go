package path

// TrackConfig holds the spacing and cutoff parameters a track builds its
// waypoint table with.
type TrackConfig struct {
	StepSize      float64 // parametric walk increment for the table build
	MinDistance   float64 // minimum world distance between waypoints
	MaxParametric float64 // slots beyond this parametric position count as finished
}

// DefaultTrackConfig returns the spacing used by the stock tracks.
func DefaultTrackConfig() TrackConfig {
	return TrackConfig{
		StepSize:      DefaultStepSize,
		MinDistance:   DefaultMinDistance,
		MaxParametric: 1.0,
	}
}

// Track couples a curve with its lazily built waypoint table. The table is
// built once on first use and survives until Reset; resetting before first
// use is a no-op, resetting after forces a rebuild on next access.
type Track struct {
	curve Curve
	cfg   TrackConfig

	table *Table
}

// NewTrack wraps a curve with the given build configuration. Zeroed config
// fields fall back to defaults.
func NewTrack(curve Curve, cfg TrackConfig) *Track {
	if cfg.StepSize <= 0 {
		cfg.StepSize = DefaultStepSize
	}
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = DefaultMinDistance
	}
	if cfg.MaxParametric <= 0 || cfg.MaxParametric > 1.0 {
		cfg.MaxParametric = 1.0
	}
	return &Track{curve: curve, cfg: cfg}
}

// Table returns the waypoint table, building it on first use.
func (tr *Track) Table() *Table {
	if tr.table == nil {
		tr.table = BuildTable(tr.curve, tr.cfg.StepSize, tr.cfg.MinDistance)
	}
	return tr.table
}

// Reset drops the built table so the next access rebuilds it. Used when the
// session restarts and the track is re-triggered.
func (tr *Track) Reset() {
	tr.table = nil
}

// SlotPosition resolves the world position for a chain slot. ok is false when
// the slot lies past the track end (clamped table lookup) or beyond the
// configured maximum parametric position; callers treat !ok as "this slot has
// left the track".
func (tr *Track) SlotPosition(index int) (Point, bool) {
	tbl := tr.Table()
	pos, exact := tbl.WorldPosition(index)
	if !exact {
		return pos, false
	}
	if tbl.ParametricPosition(index) > tr.cfg.MaxParametric {
		return pos, false
	}
	return pos, true
}

// SlotParametric returns the parametric position of a chain slot, clamped to
// the table bounds.
func (tr *Track) SlotParametric(index int) float64 {
	return tr.Table().ParametricPosition(index)
}

// WorldAt projects a parametric position through the underlying curve.
// Rollback interpolation uses this to follow track curvature between slots.
func (tr *Track) WorldAt(t float64) Point {
	if tr.curve == nil {
		return Point{}
	}
	return tr.curve.WorldAt(t)
}

// Config returns the build configuration the track was created with.
func (tr *Track) Config() TrackConfig {
	return tr.cfg
}
