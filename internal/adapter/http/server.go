package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBytes = 1 << 20

// Converter turns a slice request into a finished document.
type Converter interface {
	Convert(ctx context.Context, req domain.SliceRequest, bands domain.BandOptions) (domain.Document, error)
}

// ConvertRequest is the body of POST /convert.
type ConvertRequest struct {
	InFile    string    `json:"in_file"`
	Variable  string    `json:"variable"`
	ZLevel    int       `json:"z_level"`
	TimeIndex *int      `json:"time_index,omitempty"`
	Bands     int       `json:"bands,omitempty"`
	Edges     []float64 `json:"edges,omitempty"`
	Colormap  string    `json:"colormap,omitempty"`
}

// Server exposes the conversion endpoint plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	converter  Converter
	dataDir    string
	timeIndex  int
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /convert, /healthz, /readyz, and
// /metrics routes. in_file paths are resolved inside dataDir.
func NewServer(addr, dataDir string, timeIndex int, converter Converter, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		converter: converter,
		dataDir:   dataDir,
		timeIndex: timeIndex,
		logger:    logger,
	}

	mux.HandleFunc("POST /convert", s.handleConvert(ready))
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr, "data_dir", s.dataDir)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleConvert(ready sharedobs.ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ready.CheckReadiness(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}

		var body ConvertRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
		req, bands, err := s.toSliceRequest(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		doc, err := s.converter.Convert(r.Context(), req, bands)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				s.logger.Error("convert request failed", "variable", req.Variable, "error", err)
			}
			writeError(w, status, err)
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("X-Feature-Count", strconv.Itoa(len(doc.Collection.Features)))
		if doc.Degenerate {
			w.Header().Set("X-Degenerate-Input", "true")
		}
		w.WriteHeader(http.StatusOK)
		if err := domain.Encode(w, doc.Collection, false); err != nil {
			s.logger.Warn("write convert response", "error", err)
		}
	}
}

func (s *Server) toSliceRequest(body ConvertRequest) (domain.SliceRequest, domain.BandOptions, error) {
	if body.InFile == "" || body.Variable == "" {
		return domain.SliceRequest{}, domain.BandOptions{}, errors.New("in_file and variable are required")
	}
	if !filepath.IsLocal(body.InFile) {
		return domain.SliceRequest{}, domain.BandOptions{}, fmt.Errorf("in_file %q must be a relative path inside the data directory", body.InFile)
	}
	if body.Bands < 0 {
		return domain.SliceRequest{}, domain.BandOptions{}, errors.New("bands must not be negative")
	}

	req := domain.SliceRequest{
		Path:      filepath.Join(s.dataDir, body.InFile),
		Variable:  body.Variable,
		ZLevel:    body.ZLevel,
		TimeIndex: s.timeIndex,
	}
	if body.TimeIndex != nil {
		req.TimeIndex = *body.TimeIndex
	}

	bands := domain.BandOptions{Count: body.Bands, Edges: body.Edges}
	if body.Colormap != "" {
		cmap, ok := domain.Colormaps[body.Colormap]
		if !ok {
			return domain.SliceRequest{}, domain.BandOptions{}, fmt.Errorf("unknown colormap %q", body.Colormap)
		}
		bands.Colormap = cmap
	}
	return req, bands, nil
}

// statusFor maps conversion errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		missing *domain.MissingVariableError
		index   *domain.IndexOutOfRangeError
		shape   *domain.ShapeMismatchError
		bands   *domain.InvalidBandsError
	)
	switch {
	case errors.As(err, &missing), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &index), errors.As(err, &shape), errors.As(err, &bands):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
