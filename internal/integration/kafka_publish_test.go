//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/wrf-geojson/internal/adapter/geojsonfile"
	"github.com/couchcryptid/wrf-geojson/internal/adapter/kafka"
	"github.com/couchcryptid/wrf-geojson/internal/adapter/netcdf"
	"github.com/couchcryptid/wrf-geojson/internal/config"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
	"github.com/couchcryptid/wrf-geojson/internal/observability"
	"github.com/couchcryptid/wrf-geojson/internal/pipeline"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "wrf-geojson-test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("wrf-geojson"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func writeFixture(t *testing.T) string {
	t.Helper()
	const rows, cols = 10, 12
	var lat, lon, t2 []float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			lat = append(lat, 36+0.1*float64(r))
			lon = append(lon, -99+0.1*float64(c))
			t2 = append(t2, 285+8*math.Sin(0.6*float64(c))*math.Cos(0.4*float64(r)))
		}
	}
	path := filepath.Join(t.TempDir(), "wrfout_d01.nc")
	require.NoError(t, netcdf.Write(path, netcdf.Dataset{
		Dimensions: []netcdf.Dimension{
			{Name: "Time", Length: 1},
			{Name: "south_north", Length: rows},
			{Name: "west_east", Length: cols},
		},
		Variables: []netcdf.Variable{
			{Name: "XLAT", Dims: []string{"Time", "south_north", "west_east"}, Data: lat},
			{Name: "XLONG", Dims: []string{"Time", "south_north", "west_east"}, Data: lon},
			{Name: "T2", Dims: []string{"Time", "south_north", "west_east"}, Data: t2},
		},
	}))
	return path
}

// TestConvertPublishesToKafka runs a conversion from a real NetCDF file into
// both a file sink and the Kafka writer, then reads the message back.
func TestConvertPublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	outFile := filepath.Join(t.TempDir(), "t2.geojson")
	conv := pipeline.New(
		netcdf.NewSource(netcdf.DefaultLatVariable, netcdf.DefaultLonVariable, discardLogger()),
		discardLogger(),
		observability.NewMetricsForTesting(),
		clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)),
		domain.BandOptions{Count: 5, Colormap: domain.Viridis},
		2,
	)

	req := domain.SliceRequest{Path: writeFixture(t), Variable: "T2"}
	doc, err := conv.Run(ctx, req, domain.BandOptions{}, geojsonfile.NewFileSink(outFile, discardLogger()), writer)
	require.NoError(t, err)
	require.NotEmpty(t, doc.Collection.Features)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	assert.Equal(t, "T2:0", string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "T2", headers["variable"])
	assert.Equal(t, strconv.Itoa(len(doc.Collection.Features)), headers["feature_count"])
	assert.Equal(t, "2024-04-27T06:00:00Z", headers["generated_at"])

	fileBytes, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.JSONEq(t, string(fileBytes), string(msg.Value), "kafka payload matches file output")

	var fc domain.FeatureCollection
	require.NoError(t, json.Unmarshal(msg.Value, &fc))
	assert.Len(t, fc.Features, len(doc.Collection.Features))
}
