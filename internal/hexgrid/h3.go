package hexgrid

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	h3 "github.com/uber/h3-go/v4"
)

// H3 resolution bounds (coarsest to finest).
const (
	MinResolution = 0
	MaxResolution = 15
)

// ErrInvalidResolution is returned when the requested resolution is outside
// the grid system's supported range.
var ErrInvalidResolution = eris.New("hexgrid: resolution outside supported range")

// ErrMalformedCell is returned when a cell identifier is not a valid index
// for this grid system.
var ErrMalformedCell = eris.New("hexgrid: malformed cell identifier")

// H3Grid implements Grid on top of Uber's H3 indexing system.
type H3Grid struct {
	res    int
	edgeKm float64
}

// NewH3 returns an H3-backed grid at the given resolution.
func NewH3(resolution int) (*H3Grid, error) {
	if resolution < MinResolution || resolution > MaxResolution {
		return nil, eris.Wrapf(ErrInvalidResolution, "got %d, want %d..%d", resolution, MinResolution, MaxResolution)
	}
	edgeKm, err := h3.HexagonEdgeLengthAvgKm(resolution)
	if err != nil {
		return nil, eris.Wrapf(err, "hexgrid: edge length at resolution %d", resolution)
	}
	return &H3Grid{res: resolution, edgeKm: edgeKm}, nil
}

// Resolution returns the configured H3 resolution.
func (g *H3Grid) Resolution() int { return g.res }

// EdgeKm returns the average hexagon edge length in kilometers.
func (g *H3Grid) EdgeKm() float64 { return g.edgeKm }

// CellFromPoint returns the H3 cell containing the given lat/lng.
func (g *H3Grid) CellFromPoint(lat, lng float64) (Cell, error) {
	c, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), g.res)
	if err != nil {
		return 0, eris.Wrapf(err, "hexgrid: cell from point (%f, %f)", lat, lng)
	}
	return Cell(c), nil
}

// Neighbors returns the edge-adjacent cells of c.
func (g *H3Grid) Neighbors(c Cell) ([]Cell, error) {
	cell := h3.Cell(c)
	if !cell.IsValid() {
		return nil, eris.Wrapf(ErrMalformedCell, "index %s", c)
	}
	disk, err := h3.GridDisk(cell, 1)
	if err != nil {
		return nil, eris.Wrapf(err, "hexgrid: grid disk for %s", c)
	}
	out := make([]Cell, 0, len(disk)-1)
	for _, nb := range disk {
		if nb == cell {
			continue
		}
		out = append(out, Cell(nb))
	}
	return out, nil
}

// PolygonToCells enumerates the cells intersecting the polygon. Coordinates
// are expected as lng/lat (geographic) pairs.
func (g *H3Grid) PolygonToCells(p *geom.Polygon) ([]Cell, error) {
	if p == nil || p.NumLinearRings() == 0 {
		return nil, nil
	}
	gp := h3.GeoPolygon{GeoLoop: ringToLoop(p.LinearRing(0))}
	for i := 1; i < p.NumLinearRings(); i++ {
		gp.Holes = append(gp.Holes, ringToLoop(p.LinearRing(i)))
	}
	cells, err := h3.PolygonToCells(gp, g.res)
	if err != nil {
		return nil, eris.Wrap(err, "hexgrid: polygon to cells")
	}
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = Cell(c)
	}
	return out, nil
}

// CellBoundary returns the closed boundary ring of c as lng/lat coords.
func (g *H3Grid) CellBoundary(c Cell) ([]geom.Coord, error) {
	cell := h3.Cell(c)
	if !cell.IsValid() {
		return nil, eris.Wrapf(ErrMalformedCell, "index %s", c)
	}
	boundary, err := h3.CellToBoundary(cell)
	if err != nil {
		return nil, eris.Wrapf(err, "hexgrid: boundary of %s", c)
	}
	ring := make([]geom.Coord, 0, len(boundary)+1)
	for _, ll := range boundary {
		ring = append(ring, geom.Coord{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

func ringToLoop(r *geom.LinearRing) h3.GeoLoop {
	coords := r.Coords()
	loop := make(h3.GeoLoop, 0, len(coords))
	for _, c := range coords {
		loop = append(loop, h3.NewLatLng(c.Y(), c.X()))
	}
	return loop
}
