// Package path provides the track geometry for the chain game: a parametric
// curve abstraction and the waypoint table that pins chain slots to world
// positions.
//
// The curve is consumed strictly as "evaluate world position at t in [0,1]".
// Track authoring/editor tooling lives outside this module.
package path

import "math"

// Point is a world-space position on the playfield.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the straight-line distance to q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Curve evaluates world positions along a parametric track.
type Curve interface {
	// WorldAt evaluates the curve at t. Values outside [0,1] are clamped.
	WorldAt(t float64) Point

	// ControlPointCount reports how many control points define the curve.
	// Fewer than 2 means the curve cannot be walked.
	ControlPointCount() int
}

// Polyline is a curve of straight segments between control points,
// parameterized by arc length so equal t steps cover equal distance.
type Polyline struct {
	points []Point
	cumLen []float64 // cumLen[i] = arc length from points[0] to points[i]
	total  float64
}

// NewPolyline builds an arc-length parameterized polyline. The points slice
// is copied.
func NewPolyline(points []Point) *Polyline {
	c := &Polyline{
		points: make([]Point, len(points)),
		cumLen: make([]float64, len(points)),
	}
	copy(c.points, points)
	for i := 1; i < len(c.points); i++ {
		c.cumLen[i] = c.cumLen[i-1] + c.points[i-1].Dist(c.points[i])
	}
	if n := len(c.points); n > 0 {
		c.total = c.cumLen[n-1]
	}
	return c
}

// WorldAt maps t to the point at arc length t*total along the polyline.
func (c *Polyline) WorldAt(t float64) Point {
	n := len(c.points)
	if n == 0 {
		return Point{}
	}
	if n == 1 || c.total == 0 {
		return c.points[0]
	}
	if t <= 0 {
		return c.points[0]
	}
	if t >= 1 {
		return c.points[n-1]
	}

	target := t * c.total
	// Find the segment containing the target length.
	lo, hi := 0, n-1
	for lo < hi-1 {
		mid := (lo + hi) / 2
		if c.cumLen[mid] <= target {
			lo = mid
		} else {
			hi = mid
		}
	}

	segLen := c.cumLen[hi] - c.cumLen[lo]
	if segLen == 0 {
		return c.points[lo]
	}
	frac := (target - c.cumLen[lo]) / segLen
	a, b := c.points[lo], c.points[hi]
	return Point{
		X: a.X + (b.X-a.X)*frac,
		Y: a.Y + (b.Y-a.Y)*frac,
	}
}

// ControlPointCount returns the number of polyline vertices.
func (c *Polyline) ControlPointCount() int {
	return len(c.points)
}

// CatmullRom is a uniform Catmull-Rom spline through its control points.
// Endpoints are virtually duplicated so the curve passes through them.
// This is the default track shape for the server; tracks authored as plain
// point lists use Polyline instead.
type CatmullRom struct {
	points []Point
}

// NewCatmullRom builds a spline through the given control points.
func NewCatmullRom(points []Point) *CatmullRom {
	c := &CatmullRom{points: make([]Point, len(points))}
	copy(c.points, points)
	return c
}

// WorldAt evaluates the spline at t using the uniform Catmull-Rom basis.
func (c *CatmullRom) WorldAt(t float64) Point {
	n := len(c.points)
	if n == 0 {
		return Point{}
	}
	if n == 1 {
		return c.points[0]
	}
	if t <= 0 {
		return c.points[0]
	}
	if t >= 1 {
		return c.points[n-1]
	}

	// Map t onto the n-1 spans between control points.
	spans := float64(n - 1)
	scaled := t * spans
	seg := int(scaled)
	if seg >= n-1 {
		seg = n - 2
	}
	u := scaled - float64(seg)

	p1 := c.points[seg]
	p2 := c.points[seg+1]
	p0 := p1
	if seg > 0 {
		p0 = c.points[seg-1]
	}
	p3 := p2
	if seg+2 < n {
		p3 = c.points[seg+2]
	}

	u2 := u * u
	u3 := u2 * u
	return Point{
		X: 0.5 * ((2 * p1.X) + (-p0.X+p2.X)*u + (2*p0.X-5*p1.X+4*p2.X-p3.X)*u2 + (-p0.X+3*p1.X-3*p2.X+p3.X)*u3),
		Y: 0.5 * ((2 * p1.Y) + (-p0.Y+p2.Y)*u + (2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*u2 + (-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*u3),
	}
}

// ControlPointCount returns the number of spline control points.
func (c *CatmullRom) ControlPointCount() int {
	return len(c.points)
}
