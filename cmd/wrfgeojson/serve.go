package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	httpadapter "github.com/couchcryptid/wrf-geojson/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wrf-geojson/internal/adapter/kafka"
	"github.com/couchcryptid/wrf-geojson/internal/adapter/netcdf"
	"github.com/couchcryptid/wrf-geojson/internal/config"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/couchcryptid/wrf-geojson/internal/observability"
	"github.com/couchcryptid/wrf-geojson/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr, dataDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /convert over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			cfg, err := loadConfig(func(cfg *config.Config) {
				if flags.Changed("addr") {
					cfg.HTTPAddr = addr
				}
				if flags.Changed("data-dir") {
					cfg.DataDir = dataDir
				}
			})
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (HTTP_ADDR)")
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory in_file paths are resolved against (DATA_DIR)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var source pipeline.GridSource = netcdf.NewSource(cfg.LatVariable, cfg.LonVariable, logger)
	if cfg.GridCacheSize > 0 {
		source = netcdf.NewCachedSource(source, cfg.GridCacheSize)
	}
	defaults := domain.BandOptions{Count: cfg.BandCount, Colormap: domain.Colormaps[cfg.Colormap]}
	conv := pipeline.New(source, logger, metrics, clockwork.NewRealClock(), defaults, cfg.Workers)

	var handler httpadapter.Converter = conv
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		handler = conv.WithSinks(writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.DataDir, cfg.TimeIndex, handler, conv, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		serveErr = fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := conv.Drain(shutdownCtx); err != nil {
		logger.Error("drain error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}
