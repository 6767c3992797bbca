package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orogen/prospector/internal/hexgrid"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Grid inspection helpers",
}

var gridInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print hop geometry for the configured resolution and fall-off",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := hexgrid.NewH3(cfg.Grid.Resolution)
		if err != nil {
			return err
		}
		fmt.Printf("resolution:   %d\n", g.Resolution())
		fmt.Printf("edge length:  %.4f km\n", g.EdgeKm())
		fmt.Printf("hop length:   %.4f km\n", hexgrid.StepKm(g))
		fmt.Printf("falloff:      %.2f km = %d hops\n", cfg.FalloffKm, hexgrid.HopsForKm(g, cfg.FalloffKm))
		return nil
	},
}

func init() {
	gridCmd.AddCommand(gridInfoCmd)
	rootCmd.AddCommand(gridCmd)
}
