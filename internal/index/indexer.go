// Package index assigns classified polygons to grid cells and builds the
// study-area cell classification used by the distance engine.
package index

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/orogen/prospector/internal/hexgrid"
	"github.com/orogen/prospector/internal/model"
)

// ErrEmptyInput is returned when no input polygon carries any of the target
// labels, so no cells can be produced.
var ErrEmptyInput = eris.New("index: no classified polygons to index")

// OverlapPolicy decides how a cell touched by differently-labeled polygons is
// classified.
type OverlapPolicy string

const (
	// OverlapBoth keeps every label that touches the cell. Ambiguous
	// boundary cells carry all flags; this is the default.
	OverlapBoth OverlapPolicy = "both"
	// OverlapMajority keeps only the label(s) contributed by the largest
	// number of polygons on that cell. Ties keep all tied labels.
	OverlapMajority OverlapPolicy = "majority"
)

// ParseOverlapPolicy validates a policy name from configuration.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(s) {
	case OverlapBoth, OverlapMajority:
		return OverlapPolicy(s), nil
	case "":
		return OverlapBoth, nil
	}
	return "", eris.Errorf("index: unknown overlap policy %q", s)
}

// Classification maps every study-area cell to its per-label membership
// flags. Immutable once built.
type Classification struct {
	labels []string
	cells  []hexgrid.Cell
	member map[hexgrid.Cell]uint64
}

// Labels returns the ordered label list the classification was built with.
func (c *Classification) Labels() []string { return c.labels }

// Cells returns all study-area cells in ascending identifier order.
func (c *Classification) Cells() []hexgrid.Cell { return c.cells }

// Len returns the number of study-area cells.
func (c *Classification) Len() int { return len(c.cells) }

// Contains reports whether the cell is part of the study area.
func (c *Classification) Contains(cell hexgrid.Cell) bool {
	_, ok := c.member[cell]
	return ok
}

// IsMember reports whether the cell is classified as the given label.
func (c *Classification) IsMember(cell hexgrid.Cell, label string) bool {
	bits, ok := c.member[cell]
	if !ok {
		return false
	}
	for i, l := range c.labels {
		if l == label {
			return bits&(1<<uint(i)) != 0
		}
	}
	return false
}

// Members returns the cells classified as the given label, sorted.
func (c *Classification) Members(label string) []hexgrid.Cell {
	idx := -1
	for i, l := range c.labels {
		if l == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var out []hexgrid.Cell
	for _, cell := range c.cells {
		if c.member[cell]&(1<<uint(idx)) != 0 {
			out = append(out, cell)
		}
	}
	return out
}

// FromMembership builds a classification directly from per-cell label sets.
// Cells mapped to an empty set are study-area cells with no flags. Intended
// for callers that already hold a classified grid (and for test fixtures).
func FromMembership(labels []string, cells map[hexgrid.Cell][]string) *Classification {
	member := make(map[hexgrid.Cell]uint64, len(cells))
	sorted := make([]hexgrid.Cell, 0, len(cells))
	for cell, cellLabels := range cells {
		var bits uint64
		for _, l := range cellLabels {
			if i := labelIndex(labels, l); i >= 0 {
				bits |= 1 << uint(i)
			}
		}
		member[cell] = bits
		sorted = append(sorted, cell)
	}
	hexgrid.SortCells(sorted)
	return &Classification{labels: labels, cells: sorted, member: member}
}

// Build indexes the classified units onto the grid. The study area is the
// polyfill of the combined bounding box of all classified units, so cells
// between the labeled regions are present with no flags set.
func Build(g hexgrid.Grid, units []model.Unit, labels []string, policy OverlapPolicy) (*Classification, error) {
	log := zap.L().With(zap.String("component", "index"), zap.Int("resolution", g.Resolution()))

	// Per-cell, per-label polygon touch counts.
	counts := make(map[hexgrid.Cell][]int)
	bounds := geom.NewBounds(geom.XY)
	classified := 0

	for _, u := range units {
		li := labelIndex(labels, u.Label)
		if li < 0 || u.Geometry == nil {
			continue
		}
		classified++
		bounds.Extend(u.Geometry)
		for p := 0; p < u.Geometry.NumPolygons(); p++ {
			cells, err := g.PolygonToCells(u.Geometry.Polygon(p))
			if err != nil {
				return nil, eris.Wrapf(err, "index: polyfill unit labeled %q", u.Label)
			}
			for _, cell := range cells {
				row, ok := counts[cell]
				if !ok {
					row = make([]int, len(labels))
					counts[cell] = row
				}
				row[li]++
			}
		}
	}

	if classified == 0 {
		return nil, eris.Wrapf(ErrEmptyInput, "%d units, labels %v", len(units), labels)
	}

	// Study-area cells from the combined bounding box.
	area, err := g.PolygonToCells(boundsPolygon(bounds))
	if err != nil {
		return nil, eris.Wrap(err, "index: polyfill study-area bounds")
	}

	member := make(map[hexgrid.Cell]uint64, len(area))
	for _, cell := range area {
		member[cell] = 0
	}
	for cell, row := range counts {
		member[cell] = flagsFor(row, policy)
	}

	cells := make([]hexgrid.Cell, 0, len(member))
	for cell := range member {
		cells = append(cells, cell)
	}
	hexgrid.SortCells(cells)

	log.Info("indexed study area",
		zap.Int("units", classified),
		zap.Int("cells", len(cells)),
		zap.String("overlap_policy", string(policy)),
	)

	return &Classification{labels: labels, cells: cells, member: member}, nil
}

// flagsFor resolves per-label polygon counts into membership flags.
func flagsFor(row []int, policy OverlapPolicy) uint64 {
	var bits uint64
	switch policy {
	case OverlapMajority:
		max := 0
		for _, n := range row {
			if n > max {
				max = n
			}
		}
		if max == 0 {
			return 0
		}
		for i, n := range row {
			if n == max {
				bits |= 1 << uint(i)
			}
		}
	default:
		for i, n := range row {
			if n > 0 {
				bits |= 1 << uint(i)
			}
		}
	}
	return bits
}

func labelIndex(labels []string, label string) int {
	if label == "" {
		return -1
	}
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}

func boundsPolygon(b *geom.Bounds) *geom.Polygon {
	ring := []geom.Coord{
		{b.Min(0), b.Min(1)},
		{b.Min(0), b.Max(1)},
		{b.Max(0), b.Max(1)},
		{b.Max(0), b.Min(1)},
		{b.Min(0), b.Min(1)},
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}
