// Package hexgridtest provides an in-memory axial-coordinate hex grid used to
// exercise the indexer and distance engine without a real grid library.
package hexgridtest

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/orogen/prospector/internal/hexgrid"
)

// axial neighbor offsets for a pointy-top hex lattice.
var directions = [6][2]int32{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, -1}, {-1, 1},
}

// Fake is a hexgrid.Grid over axial (q, r) coordinates. Each cell nominally
// covers the unit square [q, q+1) x [r, r+1) in lng/lat space, which is crude
// but sufficient for polygon indexing tests. One hop is exactly 1 km.
type Fake struct {
	Res int
	// Broken marks cells whose adjacency lookup fails, to simulate a
	// malformed identifier reaching the distance engine.
	Broken map[hexgrid.Cell]bool
}

// NewFake returns a fake grid at the given nominal resolution.
func NewFake(res int) *Fake {
	return &Fake{Res: res}
}

// CellAt packs axial coordinates into a cell identifier.
func CellAt(q, r int32) hexgrid.Cell {
	return hexgrid.Cell(uint64(uint32(q))<<32 | uint64(uint32(r)))
}

// Coords unpacks a cell identifier into axial coordinates.
func Coords(c hexgrid.Cell) (q, r int32) {
	return int32(uint32(uint64(c) >> 32)), int32(uint32(uint64(c)))
}

// HexDistance returns the axial hop distance between two cells.
func HexDistance(a, b hexgrid.Cell) int {
	aq, ar := Coords(a)
	bq, br := Coords(b)
	dq, dr := aq-bq, ar-br
	return int((abs32(dq) + abs32(dr) + abs32(dq+dr)) / 2)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (f *Fake) Resolution() int { return f.Res }

// EdgeKm is chosen so the center-to-center hop distance is exactly 1 km.
func (f *Fake) EdgeKm() float64 { return 1 / math.Sqrt(3) }

func (f *Fake) CellFromPoint(lat, lng float64) (hexgrid.Cell, error) {
	return CellAt(int32(math.Floor(lng)), int32(math.Floor(lat))), nil
}

func (f *Fake) Neighbors(c hexgrid.Cell) ([]hexgrid.Cell, error) {
	if f.Broken[c] {
		return nil, eris.Errorf("hexgridtest: adjacency unavailable for %s", c)
	}
	q, r := Coords(c)
	out := make([]hexgrid.Cell, 0, 6)
	for _, d := range directions {
		out = append(out, CellAt(q+d[0], r+d[1]))
	}
	return out, nil
}

// PolygonToCells returns every cell whose unit square intersects the
// polygon's bounding box.
func (f *Fake) PolygonToCells(p *geom.Polygon) ([]hexgrid.Cell, error) {
	if p == nil || p.NumLinearRings() == 0 {
		return nil, nil
	}
	b := p.Bounds()
	minQ, maxQ := int32(math.Floor(b.Min(0))), int32(math.Ceil(b.Max(0))-1)
	minR, maxR := int32(math.Floor(b.Min(1))), int32(math.Ceil(b.Max(1))-1)
	var cells []hexgrid.Cell
	for q := minQ; q <= maxQ; q++ {
		for r := minR; r <= maxR; r++ {
			cells = append(cells, CellAt(q, r))
		}
	}
	return cells, nil
}

func (f *Fake) CellBoundary(c hexgrid.Cell) ([]geom.Coord, error) {
	q, r := Coords(c)
	x, y := float64(q), float64(r)
	return []geom.Coord{
		{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y},
	}, nil
}
