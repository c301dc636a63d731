// Package geojsonfile writes converted documents to files or a stream.
package geojsonfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wrf-geojson/internal/domain"
)

// FileSink writes compact GeoJSON to a file. The document is written to a
// temporary file in the same directory and renamed into place, so a failed
// write never leaves partial output behind.
type FileSink struct {
	path   string
	logger *slog.Logger
}

// NewFileSink creates a sink that writes to path.
func NewFileSink(path string, logger *slog.Logger) *FileSink {
	return &FileSink{path: path, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *FileSink) Name() string { return "file" }

// Publish implements pipeline.Sink.
func (s *FileSink) Publish(ctx context.Context, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := domain.Encode(tmp, doc.Collection, false); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename into %s: %w", s.path, err)
	}

	s.logger.Info("geojson written",
		"path", s.path,
		"variable", doc.Request.Variable,
		"features", len(doc.Collection.Features),
	)
	return nil
}

// StreamSink writes indented GeoJSON to a stream such as stdout.
type StreamSink struct {
	w io.Writer
}

// NewStreamSink creates a sink that writes to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Name() string { return "stream" }

// Publish implements pipeline.Sink. The document is followed by a newline.
func (s *StreamSink) Publish(ctx context.Context, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.Encode(s.w, doc.Collection, true); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}
