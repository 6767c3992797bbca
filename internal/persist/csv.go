package persist

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/orogen/prospector/internal/model"
)

// WriteCSV writes the score table as a flat CSV with the documented columns.
func WriteCSV(path string, records []model.ScoreRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "persist: create output dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "persist: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	header := []string{"cell", "distance_a", "distance_b", "membership_a", "membership_b", "score"}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "persist: write csv header")
	}

	for _, rec := range records {
		row := []string{rec.Cell}
		for i := 0; i < 2; i++ {
			if i < len(rec.Labels) && rec.Labels[i].DistanceKm >= 0 {
				row = append(row, formatFloat(rec.Labels[i].DistanceKm))
			} else {
				row = append(row, "")
			}
		}
		for i := 0; i < 2; i++ {
			mu := 0.0
			if i < len(rec.Labels) {
				mu = rec.Labels[i].Membership
			}
			row = append(row, formatFloat(mu))
		}
		row = append(row, formatFloat(rec.Score))
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "persist: write csv row for %s", rec.Cell)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "persist: flush csv")
	}

	zap.L().Info("wrote csv",
		zap.String("component", "persist"),
		zap.String("path", path),
		zap.Int("rows", len(records)),
	)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
