package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"annotator/internal/calibration"
	"annotator/internal/domain"

	"github.com/spf13/cobra"
)

var knownArea float64

var areaCmd = &cobra.Command{
	Use:   "area <polygons.json>",
	Short: "Compute polygon areas and their average",
	Long: `Read a JSON array of polygons, each an array of {"x":..,"y":..} image
points, and print every polygon's area in square pixels plus the average.
A closing vertex equal to the first is allowed and not counted twice.

Examples:
  annotator area polygons.json
  annotator area polygons.json --known 0.25   # also print px² per unit²`,
	Args: cobra.ExactArgs(1),
	RunE: runArea,
}

func init() {
	rootCmd.AddCommand(areaCmd)
	areaCmd.Flags().Float64Var(&knownArea, "known", 0, "physical area of the calibration target")
}

func runArea(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var polygons []domain.Polygon
	if err := json.Unmarshal(data, &polygons); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	avg, err := calibration.AverageArea(polygons)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, p := range polygons {
		fmt.Fprintf(out, "polygon %d: %.1f px²\n", i+1, calibration.PolygonArea(p))
	}
	fmt.Fprintf(out, "average: %.2f px²\n", avg)
	if len(polygons) < calibration.MinPolygons {
		fmt.Fprintf(out, "warning: calibration needs at least %d polygons\n", calibration.MinPolygons)
	}

	if cmd.Flags().Changed("known") {
		ppu, err := calibration.PixelsPerUnit(avg, knownArea)
		if err != nil {
			return fmt.Errorf("--known must be positive: %w", err)
		}
		fmt.Fprintf(out, "pixels per unit²: %.4f\n", ppu)
	}
	return nil
}
