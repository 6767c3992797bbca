// Package ingest reads the input polygon layer and resolves rock-type labels
// from descriptive attributes. It is the collaborator in front of the core
// engine: the core only sees geometries and labels.
package ingest

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/orogen/prospector/internal/model"
)

// ErrNoPolygons is returned when the dataset contains no polygon records.
var ErrNoPolygons = eris.New("ingest: dataset contains no polygons")

// ReadShapefile loads all polygon records with their attribute rows.
// Geometries are kept in the file's declared coordinate system; the grid
// expects geographic WGS84 coordinates, reprojection happens upstream.
func ReadShapefile(path string) ([]model.Unit, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var units []model.Unit
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				attrs[name] = val
			}
		}
		units = append(units, model.Unit{Geometry: mp, Attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Debug("ingest: skipped non-polygon records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(units) == 0 {
		return nil, eris.Wrapf(ErrNoPolygons, "path %s", path)
	}

	zap.L().Info("ingest: loaded polygons",
		zap.String("path", path),
		zap.Int("count", len(units)),
	)
	return units, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// one single-ring polygon per part.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(ring); err != nil {
			zap.L().Debug("ingest: skipping malformed polygon part",
				zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
