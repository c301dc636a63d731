package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/couchcryptid/wrf-geojson/internal/adapter/geojsonfile"
	kafkaadapter "github.com/couchcryptid/wrf-geojson/internal/adapter/kafka"
	"github.com/couchcryptid/wrf-geojson/internal/adapter/netcdf"
	"github.com/couchcryptid/wrf-geojson/internal/config"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/couchcryptid/wrf-geojson/internal/observability"
	"github.com/couchcryptid/wrf-geojson/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	inFile    string
	variable  string
	outFile   string
	zLevel    int
	bands     int
	edges     []float64
	timeIndex int
	colormap  string
	publish   bool
}

func newConvertCmd() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one slice of a variable to GeoJSON",
		Example: `  wrfgeojson convert --in-file wrfout_d01.nc --variable T2 --out-file t2.geojson
  wrfgeojson convert --in-file wrfout_d01.nc --variable QVAPOR --z-level 5 --bands 8
  wrfgeojson convert --in-file wrfout_d01.nc --variable RAINNC --edges 0,1,5,10,25,50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			cfg, err := loadConfig(func(cfg *config.Config) {
				if flags.Changed("bands") {
					cfg.BandCount = opts.bands
				}
				if flags.Changed("time-index") {
					cfg.TimeIndex = opts.timeIndex
				}
				if flags.Changed("colormap") {
					cfg.Colormap = opts.colormap
				}
			})
			if err != nil {
				return err
			}
			if opts.publish && !cfg.PublishEnabled {
				return errors.New("--publish requires KAFKA_TOPIC to be set")
			}
			logger := observability.NewLogger(cfg)
			_, err = runConvert(cmd.Context(), cfg, opts, cmd.OutOrStdout(), logger)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.inFile, "in-file", "", "WRF NetCDF file to read")
	f.StringVar(&opts.variable, "variable", "", "variable to contour, e.g. T2 or QVAPOR")
	f.StringVar(&opts.outFile, "out-file", "", "write GeoJSON here instead of stdout")
	f.IntVar(&opts.zLevel, "z-level", 0, "vertical level for 3D variables")
	f.IntVar(&opts.bands, "bands", domain.DefaultBandCount, "number of equal-width bands")
	f.Float64SliceVar(&opts.edges, "edges", nil, "explicit ascending band edges; overrides --bands")
	f.IntVar(&opts.timeIndex, "time-index", 0, "record along the Time dimension")
	f.StringVar(&opts.colormap, "colormap", "viridis", "color ramp: viridis or greys")
	f.BoolVar(&opts.publish, "publish", false, "also publish the collection to KAFKA_TOPIC")
	_ = cmd.MarkFlagRequired("in-file")
	_ = cmd.MarkFlagRequired("variable")

	return cmd
}

func runConvert(ctx context.Context, cfg *config.Config, opts convertOptions, stdout io.Writer, logger *slog.Logger) (domain.Document, error) {
	source := netcdf.NewSource(cfg.LatVariable, cfg.LonVariable, logger)
	defaults := domain.BandOptions{Count: cfg.BandCount, Colormap: domain.Colormaps[cfg.Colormap]}
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	conv := pipeline.New(source, logger, metrics, clockwork.NewRealClock(), defaults, cfg.Workers)

	var sinks []pipeline.Sink
	if opts.outFile == "" {
		sinks = append(sinks, geojsonfile.NewStreamSink(stdout))
	} else {
		sinks = append(sinks, geojsonfile.NewFileSink(opts.outFile, logger))
	}
	if opts.publish {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, writer)
	}

	req := domain.SliceRequest{
		Path:      opts.inFile,
		Variable:  opts.variable,
		ZLevel:    opts.zLevel,
		TimeIndex: cfg.TimeIndex,
	}
	return conv.Run(ctx, req, domain.BandOptions{Edges: opts.edges}, sinks...)
}
