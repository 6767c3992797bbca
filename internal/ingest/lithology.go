package ingest

import (
	"strings"

	"go.uber.org/zap"

	"github.com/orogen/prospector/internal/config"
	"github.com/orogen/prospector/internal/model"
)

// ClassifyLithology assigns rock-type labels to units by case-insensitive
// keyword search over the configured descriptive columns. Labels are tried in
// the given order and the first match wins, so a unit carries at most one
// label. Units matching nothing stay unlabeled and contribute no flags.
func ClassifyLithology(units []model.Unit, labels []string, cfg config.LithologyConfig) []model.Unit {
	out := make([]model.Unit, len(units))
	perLabel := make(map[string]int, len(labels))

	for i, u := range units {
		u.Label = matchLabel(u.Attrs, labels, cfg)
		if u.Label != "" {
			perLabel[u.Label]++
		}
		out[i] = u
	}

	fields := []zap.Field{zap.String("component", "ingest"), zap.Int("units", len(units))}
	for _, label := range labels {
		fields = append(fields, zap.Int(label, perLabel[label]))
	}
	zap.L().Info("classified lithology", fields...)

	return out
}

func matchLabel(attrs map[string]string, labels []string, cfg config.LithologyConfig) string {
	for _, label := range labels {
		keywords := cfg.Keywords[label]
		if len(keywords) == 0 {
			// No keyword list: fall back to matching the label itself.
			keywords = []string{label}
		}
		for _, col := range searchColumns(cfg, attrs) {
			val := strings.ToLower(attrs[col])
			if val == "" {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(val, strings.ToLower(kw)) {
					return label
				}
			}
		}
	}
	return ""
}

// searchColumns returns the configured columns, or every attribute column
// (sorted order is irrelevant here, matching is per-label deterministic).
func searchColumns(cfg config.LithologyConfig, attrs map[string]string) []string {
	if len(cfg.SearchColumns) > 0 {
		return cfg.SearchColumns
	}
	cols := make([]string, 0, len(attrs))
	for col := range attrs {
		cols = append(cols, col)
	}
	return cols
}
