// Package cli implements the annotator command line.
package cli

import (
	"fmt"
	"os"

	"annotator/internal/config"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	imageID int
)

var rootCmd = &cobra.Command{
	Use:   "annotator",
	Short: "Specimen annotation and calibration engine",
	Long: `Annotate specimens on microscope images as points and rectangles,
calibrate specimen size from hand-drawn polygons, and keep every edit in
sync with the annotation server, retrying from a local queue when it is
unreachable.

Examples:
  annotator mcp --image 12                 # Serve the editor over MCP on stdio
  annotator pending                        # List edits waiting for the server
  annotator sync                           # Retry pending edits now
  annotator area polygons.json --known 4   # Average area of calibration polygons`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().IntVar(&imageID, "image", 0, "image id (overrides the config file)")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, string, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load config %s: %w", path, err)
	}
	if imageID != 0 {
		cfg.ImageID = imageID
	}
	if verbose {
		cfg.Debug = true
	}
	return cfg, path, nil
}
