// Package spatial provides cache-efficient data structures for broad-phase
// contact queries and rank-ordered lookups.
//
// All structures use preallocated slices with integer indices (not pointers)
// to minimize GC pressure and maximize cache locality.
package spatial

import (
	"math"
)

// SpatialGrid buckets chain marbles into fixed-size cells for O(1) average
// landing-candidate queries. The engine throws it away and rebuilds it from
// the chain sequence every tick, so Insert and Clear are the hot paths.
//
// Cells hold marble slot indices (uint32), never pointers. Row-major layout:
// cells[row*cols+col].
type SpatialGrid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32 // reused by QueryRadius
	maxEntities int
}

// GridStats reports cell occupancy for the /api/stats endpoint.
type GridStats struct {
	TotalCells     int
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// NewSpatialGrid creates a grid covering the world bounds. Pick cellSize to
// match the contact query radius: one radius per cell keeps QueryRadius at a
// 2x2 or 3x3 cell scan. maxEntities sizes the per-cell capacity up front.
func NewSpatialGrid(worldWidth, worldHeight, cellSize float64, maxEntities int) *SpatialGrid {
	cols := max(int(math.Ceil(worldWidth/cellSize)), 1)
	rows := max(int(math.Ceil(worldHeight/cellSize)), 1)

	cells := make([][]uint32, cols*rows)
	perCell := max(maxEntities/len(cells), 4)
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
		maxEntities: maxEntities,
	}
}

// cellCoords maps a world position to clamped grid coordinates. Off-world
// positions land in the nearest edge cell rather than being rejected, since
// the chain head can briefly sit outside the visible board.
func (g *SpatialGrid) cellCoords(x, y float64) (col, row int) {
	col = clampInt(int(x*g.invCellSize), 0, g.cols-1)
	row = clampInt(int(y*g.invCellSize), 0, g.rows-1)
	return col, row
}

// Clear empties every cell, keeping the backing arrays. O(cells), not
// O(entities).
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert buckets the entity at (x, y). entityID is the caller's slot index.
func (g *SpatialGrid) Insert(entityID uint32, x, y float64) {
	col, row := g.cellCoords(x, y)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], entityID)
}

// QueryRadius returns every entity bucketed in a cell overlapping the circle
// at (cx, cy). This is the broad phase only: candidates may lie outside the
// radius, and the caller owns the precise distance check.
//
// The returned slice aliases an internal scratch buffer and is overwritten
// by the next call.
func (g *SpatialGrid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, minRow := g.cellCoords(cx-radius, cy-radius)
	maxCol, maxRow := g.cellCoords(cx+radius, cy+radius)

	for row := minRow; row <= maxRow; row++ {
		rowStart := row * g.cols
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[rowStart+col]...)
		}
	}

	return g.scratch
}

// QueryCell returns the entities bucketed in the single cell containing
// (x, y).
func (g *SpatialGrid) QueryCell(x, y float64) []uint32 {
	col, row := g.cellCoords(x, y)
	return g.cells[row*g.cols+col]
}

// Stats walks the cells and tallies occupancy.
func (g *SpatialGrid) Stats() GridStats {
	s := GridStats{TotalCells: len(g.cells)}
	for _, cell := range g.cells {
		n := len(cell)
		s.TotalEntities += n
		if n > s.MaxInCell {
			s.MaxInCell = n
		}
		if n > 0 {
			s.NonEmptyCells++
		}
	}
	if s.NonEmptyCells > 0 {
		s.AvgPerNonEmpty = float64(s.TotalEntities) / float64(s.NonEmptyCells)
	}
	return s
}

// Dimensions returns the grid shape.
func (g *SpatialGrid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
