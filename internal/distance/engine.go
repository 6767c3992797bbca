// Package distance computes per-cell hop distances to the nearest cell of a
// classified region via multi-source breadth-first search on the grid.
package distance

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/orogen/prospector/internal/hexgrid"
	"github.com/orogen/prospector/internal/index"
)

// Unreached marks cells beyond the hop bound (or unreachable entirely).
// Scoring treats it as infinitely far: membership exactly 0.
const Unreached = -1

// ErrEmptyRockClass is returned when the target label has no classified
// cells, so no seeds exist. The caller decides whether this aborts the run.
var ErrEmptyRockClass = eris.New("distance: no seed cells for label")

// ErrDisconnectedGrid is returned when adjacency cannot be produced for a
// cell. This indicates an upstream indexing defect and is fatal.
var ErrDisconnectedGrid = eris.New("distance: adjacency unavailable")

// Field holds the hop distance from every study-area cell to the nearest
// cell classified as one label. Read-only after Compute.
type Field struct {
	label string
	hops  map[hexgrid.Cell]int
}

// Label returns the label this field was computed for.
func (f *Field) Label() string { return f.label }

// Hops returns the hop distance for a cell, or Unreached when the cell was
// not reached within the bound (or is not in the study area).
func (f *Field) Hops(c hexgrid.Cell) int {
	if d, ok := f.hops[c]; ok {
		return d
	}
	return Unreached
}

// Empty returns a Field in which every cell is Unreached, used when an empty
// rock class is configured to degrade instead of abort.
func Empty(label string) *Field {
	return &Field{label: label, hops: map[hexgrid.Cell]int{}}
}

// Compute runs a multi-source BFS seeded at every cell classified as label
// (distance 0), expanding over grid adjacency within the study area until
// maxHops. Cells not reached within the bound stay Unreached.
func Compute(g hexgrid.Grid, cls *index.Classification, label string, maxHops int) (*Field, error) {
	seeds := cls.Members(label)
	if len(seeds) == 0 {
		return nil, eris.Wrapf(ErrEmptyRockClass, "label %q", label)
	}

	hops := make(map[hexgrid.Cell]int, cls.Len())
	queue := make([]hexgrid.Cell, 0, cls.Len())
	for _, s := range seeds {
		hops[s] = 0
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		cell := queue[0]
		queue = queue[1:]
		d := hops[cell]
		if d >= maxHops {
			continue
		}
		neighbors, err := g.Neighbors(cell)
		if err != nil {
			return nil, eris.Wrapf(ErrDisconnectedGrid, "cell %s: %v", cell, err)
		}
		for _, nb := range neighbors {
			if !cls.Contains(nb) {
				continue
			}
			if _, seen := hops[nb]; seen {
				continue
			}
			hops[nb] = d + 1
			queue = append(queue, nb)
		}
	}

	zap.L().Debug("distance field computed",
		zap.String("component", "distance"),
		zap.String("label", label),
		zap.Int("seeds", len(seeds)),
		zap.Int("reached", len(hops)),
		zap.Int("max_hops", maxHops),
	)

	return &Field{label: label, hops: hops}, nil
}
