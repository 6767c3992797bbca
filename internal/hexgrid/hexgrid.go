// Package hexgrid abstracts the hexagonal grid system behind a small
// capability interface so the indexer and distance engine do not depend on a
// specific grid library.
package hexgrid

import (
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Cell is an opaque 64-bit grid cell identifier. Identifiers are stable and
// comparable for equality; two equal cells denote the same hexagon at the
// same resolution.
type Cell uint64

// String renders the identifier in the conventional lowercase hex form.
func (c Cell) String() string {
	return strconv.FormatUint(uint64(c), 16)
}

// ParseCell parses the hex form produced by Cell.String.
func ParseCell(s string) (Cell, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "hexgrid: parse cell %q", s)
	}
	return Cell(v), nil
}

// Grid is the capability surface the engine needs from a hexagonal grid
// system. Every point in the study area maps to exactly one cell at the
// grid's resolution; cells do not overlap.
type Grid interface {
	// Resolution returns the configured grid resolution.
	Resolution() int
	// CellFromPoint returns the cell containing the given geographic point.
	CellFromPoint(lat, lng float64) (Cell, error)
	// Neighbors returns the cells sharing an edge with c (six for a regular
	// hexagon, fewer on pentagon-adjacent cells).
	Neighbors(c Cell) ([]Cell, error)
	// PolygonToCells enumerates the cells whose area intersects the polygon.
	PolygonToCells(p *geom.Polygon) ([]Cell, error)
	// CellBoundary returns the closed boundary ring of c as lng/lat coords.
	CellBoundary(c Cell) ([]geom.Coord, error)
	// EdgeKm returns the average hexagon edge length at this resolution.
	EdgeKm() float64
}

// StepKm returns the center-to-center distance of one adjacency hop.
func StepKm(g Grid) float64 {
	return g.EdgeKm() * math.Sqrt(3)
}

// HopsForKm converts a kilometer radius to a hop bound at the grid's
// resolution, rounding up so the bound never undershoots the radius.
func HopsForKm(g Grid, km float64) int {
	if km <= 0 {
		return 0
	}
	return int(math.Ceil(km / StepKm(g)))
}

// SortCells orders cells by identifier. Used wherever map iteration order
// would otherwise leak into output.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
}
