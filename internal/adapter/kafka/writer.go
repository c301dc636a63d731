package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/wrf-geojson/internal/config"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes finished FeatureCollections to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Compression:  kafkago.Snappy,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Publish sends one document as a single message keyed by variable and
// level, so every slice of the same field lands on the same partition.
func (w *Writer) Publish(ctx context.Context, doc domain.Document) error {
	msg, err := serializeToMessage(doc)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	w.logger.Debug("geojson published",
		"topic", w.writer.Topic,
		"key", string(msg.Key),
		"bytes", len(msg.Value),
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a document's FeatureCollection into a Kafka
// message. Slice metadata travels in headers so consumers can route without
// parsing the body.
func serializeToMessage(doc domain.Document) (kafkago.Message, error) {
	if doc.Collection == nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s: document has no collection", doc.Request.Variable)
	}
	data, err := json.Marshal(doc.Collection)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature collection: %w", err)
	}
	req := doc.Request
	return kafkago.Message{
		Key:   []byte(req.Variable + ":" + strconv.Itoa(req.ZLevel)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "variable", Value: []byte(req.Variable)},
			{Key: "z_level", Value: []byte(strconv.Itoa(req.ZLevel))},
			{Key: "time_index", Value: []byte(strconv.Itoa(req.TimeIndex))},
			{Key: "feature_count", Value: []byte(strconv.Itoa(len(doc.Collection.Features)))},
			{Key: "degenerate", Value: []byte(strconv.FormatBool(doc.Degenerate))},
			{Key: "generated_at", Value: []byte(doc.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
