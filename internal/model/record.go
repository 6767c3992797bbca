// Package model holds the shared data types passed between pipeline stages.
package model

import (
	"github.com/twpayne/go-geom"
)

// Unit is one geologic unit from the input polygon layer: its footprint plus
// the attribute row it was read with. Label is empty until classification
// assigns a rock type.
type Unit struct {
	Geometry *geom.MultiPolygon
	Attrs    map[string]string
	Label    string
}

// LabelScore carries the per-label intermediates for one cell.
type LabelScore struct {
	Label      string  `json:"label"`
	Hops       int     `json:"hops"`
	DistanceKm float64 `json:"distance_km"`
	Membership float64 `json:"membership"`
}

// ScoreRecord is the terminal per-cell output of the scoring pipeline.
type ScoreRecord struct {
	Cell   string       `json:"cell"`
	Labels []LabelScore `json:"labels"`
	Score  float64      `json:"score"`
}

// LabelScoreFor returns the intermediates recorded for the given label.
func (r ScoreRecord) LabelScoreFor(label string) (LabelScore, bool) {
	for _, ls := range r.Labels {
		if ls.Label == label {
			return ls, true
		}
	}
	return LabelScore{}, false
}
