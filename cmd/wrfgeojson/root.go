package main

import (
	"github.com/couchcryptid/wrf-geojson/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wrfgeojson",
		Short: "Filled contours of WRF output as GeoJSON",
		Long: `wrfgeojson reads one horizontal slice of a WRF variable, splits its value
range into bands and writes every band as MultiPolygon features whose fill
follows a perceptual color ramp.

Settings not given as flags come from the environment (CONTOUR_BANDS,
COLORMAP, LAT_VARIABLE, LON_VARIABLE, TIME_INDEX, KAFKA_TOPIC, ...).`,
		SilenceUsage: true,
	}
	root.AddCommand(newConvertCmd(), newServeCmd())
	return root
}

// loadConfig reads the environment and applies flag overrides before
// validating.
func loadConfig(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	override(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
