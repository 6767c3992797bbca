package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orogen/prospector/internal/persist"
	"github.com/orogen/prospector/internal/pipeline"
	"github.com/orogen/prospector/internal/viz"
)

var generateMap bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full prospectivity pipeline",
	Long:  "Reads the configured polygon layer, scores every grid cell, and writes the GeoPackage, CSV, manifest, and (optionally) map outputs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		res, err := p.Run(ctx)
		if err != nil {
			return err
		}

		if err := persist.WriteGeoPackage(ctx, cfg.Paths.OutputGpkg, p.Grid(), res.Records); err != nil {
			return err
		}
		if err := persist.WriteCSV(cfg.Paths.OutputCSV, res.Records); err != nil {
			return err
		}
		if err := persist.WriteManifest(cfg.Paths.Manifest, cfg, res); err != nil {
			return err
		}

		if generateMap && cfg.Viz.Enabled {
			fc, err := viz.BuildFeatureCollection(p.Grid(), res.Records)
			if err != nil {
				return eris.Wrap(err, "run: build features")
			}
			if err := viz.WriteGeoJSON(cfg.Paths.GeoJSON, fc); err != nil {
				return err
			}
			if err := viz.WriteStaticMap(cfg.Paths.StaticMap, fc); err != nil {
				return err
			}
		}

		zap.L().Info("run complete",
			zap.String("run_id", res.RunID),
			zap.Int("cells", len(res.Records)),
			zap.String("gpkg", cfg.Paths.OutputGpkg),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&generateMap, "map", true, "generate GeoJSON and static map outputs")
	rootCmd.AddCommand(runCmd)
}
