// Package pipeline sequences ingestion, indexing, distance computation, and
// scoring into the final per-cell score table.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orogen/prospector/internal/config"
	"github.com/orogen/prospector/internal/distance"
	"github.com/orogen/prospector/internal/hexgrid"
	"github.com/orogen/prospector/internal/index"
	"github.com/orogen/prospector/internal/ingest"
	"github.com/orogen/prospector/internal/model"
	"github.com/orogen/prospector/internal/score"
)

// Result is the assembled output of one pipeline run.
type Result struct {
	RunID    string
	Records  []model.ScoreRecord
	Labels   []string
	CellKm   float64 // center-to-center hop length at the run's resolution
	MaxHops  int
	Units    int
	Duration time.Duration
}

// Pipeline runs the full scoring computation for one configuration.
type Pipeline struct {
	cfg     *config.Config
	grid    hexgrid.Grid
	policy  index.OverlapPolicy
	kparams score.Params
}

// New builds a pipeline on the production H3 grid.
func New(cfg *config.Config) (*Pipeline, error) {
	grid, err := hexgrid.NewH3(cfg.Grid.Resolution)
	if err != nil {
		return nil, err
	}
	return NewWithGrid(cfg, grid)
}

// NewWithGrid builds a pipeline on a caller-supplied grid implementation.
func NewWithGrid(cfg *config.Config, grid hexgrid.Grid) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := index.ParseOverlapPolicy(cfg.Index.OverlapPolicy)
	if err != nil {
		return nil, err
	}
	params := score.Params{
		FalloffKm: cfg.FalloffKm,
		Alpha:     cfg.Alpha,
		WeightA:   cfg.WeightA,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, grid: grid, policy: policy, kparams: params}, nil
}

// Run ingests the configured shapefile and scores the study area.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	units, err := ingest.ReadShapefile(p.cfg.Paths.InputShapefile)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, units)
}

// Process scores a study area from already-loaded polygon records. Any core
// failure aborts the run; partial output is never produced.
func (p *Pipeline) Process(ctx context.Context, units []model.Unit) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	labels := []string{p.cfg.RockA, p.cfg.RockB}
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", runID),
		zap.Strings("labels", labels),
	)
	log.Info("starting prospectivity run",
		zap.String("crs", p.cfg.CRS),
		zap.Int("resolution", p.grid.Resolution()),
		zap.Float64("falloff_km", p.cfg.FalloffKm),
		zap.Float64("alpha", p.cfg.Alpha),
		zap.Float64("weight_a", p.cfg.WeightA),
	)

	units = ingest.ClassifyLithology(units, labels, p.cfg.Lithology)

	cls, err := index.Build(p.grid, units, labels, p.policy)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: index")
	}

	maxHops := hexgrid.HopsForKm(p.grid, p.cfg.FalloffKm)

	// The per-label distance fields are independent; computing them in
	// parallel changes no output value.
	fields := make([]*distance.Field, len(labels))
	g, gCtx := errgroup.WithContext(ctx)
	for i, label := range labels {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			field, err := distance.Compute(p.grid, cls, label, maxHops)
			if err != nil {
				if eris.Is(err, distance.ErrEmptyRockClass) && p.cfg.Score.AllowEmptyClass {
					log.Warn("no classified cells for label, degrading to zero membership",
						zap.String("label", label))
					fields[i] = distance.Empty(label)
					return nil
				}
				return eris.Wrapf(err, "pipeline: distance field for %q", label)
			}
			fields[i] = field
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stepKm := hexgrid.StepKm(p.grid)
	records := p.assemble(cls, fields, stepKm)

	log.Info("prospectivity run complete",
		zap.Int("cells", len(records)),
		zap.Int("max_hops", maxHops),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		RunID:    runID,
		Records:  records,
		Labels:   labels,
		CellKm:   stepKm,
		MaxHops:  maxHops,
		Units:    len(units),
		Duration: time.Since(start),
	}, nil
}

// assemble scores every study-area cell. Cells arrive sorted from the
// classification, so the output table order is deterministic.
func (p *Pipeline) assemble(cls *index.Classification, fields []*distance.Field, stepKm float64) []model.ScoreRecord {
	weights := p.kparams.Weights()
	records := make([]model.ScoreRecord, 0, cls.Len())

	for _, cell := range cls.Cells() {
		labelScores := make([]model.LabelScore, len(fields))
		memberships := make([]float64, len(fields))
		for i, field := range fields {
			hops := field.Hops(cell)
			km := float64(hops) * stepKm
			if hops == distance.Unreached {
				km = -1
			}
			mu := score.Membership(km, p.kparams)
			labelScores[i] = model.LabelScore{
				Label:      field.Label(),
				Hops:       hops,
				DistanceKm: km,
				Membership: mu,
			}
			memberships[i] = mu
		}
		records = append(records, model.ScoreRecord{
			Cell:   cell.String(),
			Labels: labelScores,
			Score:  score.Combine(memberships, weights),
		})
	}
	return records
}

// Grid exposes the grid the pipeline runs on, for collaborators that need
// cell geometry (persistence, visualization).
func (p *Pipeline) Grid() hexgrid.Grid { return p.grid }
