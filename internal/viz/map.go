// Package viz renders the scored grid as GeoJSON and a self-contained HTML
// map. Strictly downstream of the pipeline and optional.
package viz

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/orogen/prospector/internal/hexgrid"
	"github.com/orogen/prospector/internal/model"
)

// BuildFeatureCollection converts scored cells into GeoJSON features shaded
// by score, normalized over the observed score range.
func BuildFeatureCollection(grid hexgrid.Grid, records []model.ScoreRecord) (*geojson.FeatureCollection, error) {
	minScore, maxScore := scoreRange(records)

	fc := &geojson.FeatureCollection{}
	for _, rec := range records {
		cell, err := hexgrid.ParseCell(rec.Cell)
		if err != nil {
			return nil, err
		}
		ring, err := grid.CellBoundary(cell)
		if err != nil {
			return nil, eris.Wrapf(err, "viz: boundary of %s", rec.Cell)
		}
		poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})

		norm := 0.5
		if maxScore > minScore {
			norm = (rec.Score - minScore) / (maxScore - minScore)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       rec.Cell,
			Geometry: poly,
			Properties: map[string]interface{}{
				"cell":      rec.Cell,
				"score":     rec.Score,
				"fillColor": rampColor(norm),
			},
		})
	}
	return fc, nil
}

// WriteGeoJSON writes the feature collection to path.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "viz: marshal geojson")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "viz: create output dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "viz: write %s", path)
	}
	zap.L().Info("wrote geojson",
		zap.String("component", "viz"),
		zap.String("path", path),
		zap.Int("features", len(fc.Features)),
	)
	return nil
}

// WriteStaticMap renders a self-contained Leaflet map with the features
// embedded inline.
func WriteStaticMap(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "viz: marshal geojson for map")
	}

	lat, lng := centerOf(fc)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "viz: create output dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "viz: create %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := mapTemplate.Execute(f, map[string]interface{}{
		"Lat":      lat,
		"Lng":      lng,
		"GeoJSON":  template.JS(data),
		"Features": len(fc.Features),
	}); err != nil {
		return eris.Wrap(err, "viz: render map template")
	}

	zap.L().Info("wrote static map",
		zap.String("component", "viz"),
		zap.String("path", path),
	)
	return nil
}

func scoreRange(records []model.ScoreRecord) (min, max float64) {
	if len(records) == 0 {
		return 0, 0
	}
	min, max = records[0].Score, records[0].Score
	for _, rec := range records[1:] {
		if rec.Score < min {
			min = rec.Score
		}
		if rec.Score > max {
			max = rec.Score
		}
	}
	return min, max
}

// rampColor maps a normalized score to a cold-to-hot hex color
// (blue through green to red).
func rampColor(norm float64) string {
	if norm < 0 {
		norm = 0
	} else if norm > 1 {
		norm = 1
	}
	mid := norm - 0.5
	if mid < 0 {
		mid = -mid
	}
	r := int(255 * norm)
	g := int(255 * (1 - mid*2))
	b := int(255 * (1 - norm))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func centerOf(fc *geojson.FeatureCollection) (lat, lng float64) {
	if len(fc.Features) == 0 {
		return 0, 0
	}
	bounds := geom.NewBounds(geom.XY)
	for _, f := range fc.Features {
		bounds.Extend(f.Geometry)
	}
	return (bounds.Min(1) + bounds.Max(1)) / 2, (bounds.Min(0) + bounds.Max(0)) / 2
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>Prospectivity map</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Lat}}, {{.Lng}}], 7);
L.tileLayer('https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png', {
	attribution: '&copy; OpenStreetMap, &copy; CARTO'
}).addTo(map);
var data = {{.GeoJSON}};
L.geoJSON(data, {
	style: function (feat) {
		return {
			fillColor: feat.properties.fillColor,
			color: '#444',
			weight: 0.3,
			fillOpacity: 0.6
		};
	},
	onEachFeature: function (feat, layer) {
		layer.bindTooltip('score: ' + feat.properties.score.toFixed(3));
	}
}).addTo(map);
</script>
</body>
</html>
`))
