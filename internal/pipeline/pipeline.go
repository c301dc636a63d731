package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/couchcryptid/wrf-geojson/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// GridSource loads one horizontal slice of a gridded variable.
type GridSource interface {
	LoadGrid(ctx context.Context, req domain.SliceRequest) (*domain.Grid, error)
}

// Sink receives finished documents.
type Sink interface {
	Name() string
	Publish(ctx context.Context, doc domain.Document) error
}

// Converter orchestrates load, trace, classify, assemble and publish.
type Converter struct {
	source   GridSource
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	defaults domain.BandOptions
	workers  int

	// mu orders the draining flag against inFlight.Add so Drain never
	// waits while a conversion is about to register.
	mu       sync.Mutex
	draining atomic.Bool
	inFlight sync.WaitGroup
}

// New creates a Converter. workers bounds how many bands are traced at once;
// values below 1 trace serially.
func New(source GridSource, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, defaults domain.BandOptions, workers int) *Converter {
	if workers < 1 {
		workers = 1
	}
	return &Converter{
		source:   source,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
		defaults: defaults,
		workers:  workers,
	}
}

// CheckReadiness returns nil while the converter accepts work.
func (c *Converter) CheckReadiness(_ context.Context) error {
	if c.draining.Load() {
		return errors.New("converter is draining")
	}
	return nil
}

// Drain stops new conversions and waits for running ones to finish or for
// ctx to expire.
func (c *Converter) Drain(ctx context.Context) error {
	c.mu.Lock()
	c.draining.Store(true)
	c.mu.Unlock()
	done := make(chan struct{})
	go func() {
		c.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin registers a conversion unless the converter is draining.
func (c *Converter) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draining.Load() {
		return false
	}
	c.inFlight.Add(1)
	return true
}

// Run converts req and hands the document to every sink in order. A sink
// failure stops the run and is returned.
func (c *Converter) Run(ctx context.Context, req domain.SliceRequest, bands domain.BandOptions, sinks ...Sink) (domain.Document, error) {
	doc, err := c.Convert(ctx, req, bands)
	if err != nil {
		return doc, err
	}
	for _, s := range sinks {
		start := c.clock.Now()
		if err := s.Publish(ctx, doc); err != nil {
			c.logger.Error("publish failed", "sink", s.Name(), "variable", req.Variable, "error", err)
			return doc, fmt.Errorf("publish to %s: %w", s.Name(), err)
		}
		c.metrics.PublishDuration.WithLabelValues(s.Name()).Observe(c.clock.Since(start).Seconds())
	}
	return doc, nil
}

// Publisher converts and then publishes to a fixed set of sinks.
type Publisher struct {
	converter *Converter
	sinks     []Sink
}

// WithSinks returns a Publisher whose Convert also publishes every document
// to sinks.
func (c *Converter) WithSinks(sinks ...Sink) *Publisher {
	return &Publisher{converter: c, sinks: sinks}
}

// Convert runs the conversion and publishes the result.
func (p *Publisher) Convert(ctx context.Context, req domain.SliceRequest, bands domain.BandOptions) (domain.Document, error) {
	return p.converter.Run(ctx, req, bands, p.sinks...)
}

// Convert produces the FeatureCollection for one slice. A field without a
// value range is not an error: the document is empty and flagged
// Degenerate.
func (c *Converter) Convert(ctx context.Context, req domain.SliceRequest, bands domain.BandOptions) (domain.Document, error) {
	if !c.begin() {
		return domain.Document{}, errors.New("converter is draining")
	}
	defer c.inFlight.Done()
	c.metrics.InFlight.Inc()
	defer c.metrics.InFlight.Dec()

	start := c.clock.Now()
	doc, err := c.convert(ctx, req, c.resolve(bands))
	if err != nil {
		c.metrics.Conversions.WithLabelValues(observability.OutcomeError).Inc()
		c.logger.Error("conversion failed",
			"path", req.Path,
			"variable", req.Variable,
			"z_level", req.ZLevel,
			"error", err,
		)
		return domain.Document{}, err
	}

	elapsed := c.clock.Since(start)
	c.metrics.ConversionDuration.Observe(elapsed.Seconds())
	c.metrics.FeaturesProduced.Add(float64(len(doc.Collection.Features)))

	if doc.Degenerate {
		c.metrics.Conversions.WithLabelValues(observability.OutcomeDegenerate).Inc()
		c.logger.Warn("field has no value range, emitting empty collection",
			"path", req.Path,
			"variable", req.Variable,
			"z_level", req.ZLevel,
		)
		return doc, nil
	}

	c.metrics.Conversions.WithLabelValues(observability.OutcomeSuccess).Inc()
	c.logger.Info("conversion complete",
		"variable", req.Variable,
		"z_level", req.ZLevel,
		"bands", len(doc.Bands),
		"features", len(doc.Collection.Features),
		"duration", elapsed.Round(time.Millisecond),
	)
	return doc, nil
}

func (c *Converter) convert(ctx context.Context, req domain.SliceRequest, opts domain.BandOptions) (domain.Document, error) {
	doc := domain.Document{Request: req}

	grid, err := c.source.LoadGrid(ctx, req)
	if err != nil {
		return doc, fmt.Errorf("load %s: %w", req.Variable, err)
	}
	c.metrics.GridCells.Observe(float64(grid.Rows() * grid.Cols()))

	bands, err := domain.BuildBands(grid, opts)
	if errors.Is(err, domain.ErrDegenerateInput) {
		doc.Collection = domain.NewFeatureCollection()
		doc.Degenerate = true
		doc.GeneratedAt = c.clock.Now().UTC()
		return doc, nil
	}
	if err != nil {
		return doc, err
	}

	layers, err := c.traceBands(ctx, grid, bands)
	if err != nil {
		return doc, err
	}

	fc, err := domain.Assemble(grid, layers)
	if err != nil {
		return doc, fmt.Errorf("assemble %s: %w", req.Variable, err)
	}

	doc.Collection = fc
	doc.Bands = bands
	doc.GeneratedAt = c.clock.Now().UTC()
	return doc, nil
}

// traceBands traces and classifies each band on up to c.workers goroutines.
// Results are stored by band index so output order never depends on
// scheduling.
func (c *Converter) traceBands(ctx context.Context, grid *domain.Grid, bands []domain.Band) ([]domain.BandPolygons, error) {
	layers := make([]domain.BandPolygons, len(bands))
	discarded := make([]int, len(bands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, b := range bands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			paths := domain.TraceBand(grid, b)
			polys := domain.Classify(paths)
			layers[i] = domain.BandPolygons{Band: b, Polygons: polys}
			discarded[i] = len(paths) - ringCount(polys)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.metrics.BandsTraced.Add(float64(len(bands)))
	for _, n := range discarded {
		c.metrics.PathsDiscarded.Add(float64(n))
	}
	return layers, nil
}

// resolve fills unset band options from the converter defaults.
func (c *Converter) resolve(opts domain.BandOptions) domain.BandOptions {
	if opts.Count == 0 && len(opts.Edges) == 0 {
		opts.Count = c.defaults.Count
		opts.Edges = c.defaults.Edges
	}
	if opts.Colormap.Name == "" {
		opts.Colormap = c.defaults.Colormap
	}
	return opts
}

func ringCount(polys []domain.Polygon) int {
	n := 0
	for _, p := range polys {
		n += 1 + len(p.Holes)
	}
	return n
}
