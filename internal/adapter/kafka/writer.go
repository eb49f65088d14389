package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/irve-station-etl/internal/config"
	"github.com/couchcryptid/irve-station-etl/internal/domain"
	"github.com/couchcryptid/irve-station-etl/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// Record types carried in the record_type header.
const (
	RecordRegion  = "region"
	RecordYear    = "year"
	RecordSummary = "summary"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes dashboard reports to a Kafka topic, one message per
// region aggregate, one per growth year and one for the fleet summary.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// LoadDashboard serializes d and publishes it in a single WriteMessages call.
// Keys are stable across snapshots so a compacted topic keeps the latest
// value per region and year.
func (w *Writer) LoadDashboard(ctx context.Context, d domain.Dashboard) error {
	msgs, err := dashboardMessages(d)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish dashboard: %w", err)
	}
	w.metrics.MessagesProduced.Add(float64(len(msgs)))
	w.logger.Info("dashboard published", "snapshot", d.SnapshotKey, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func dashboardMessages(d domain.Dashboard) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(d.Regions.Aggregates)+len(d.Growth)+1)
	for _, agg := range d.Regions.Aggregates {
		msg, err := serializeToMessage(d, RecordRegion, "region:"+agg.RegionCode, agg)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for _, y := range d.Growth {
		msg, err := serializeToMessage(d, RecordYear, "year:"+strconv.Itoa(y.Year), y)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	msg, err := serializeToMessage(d, RecordSummary, RecordSummary, d.Summary)
	if err != nil {
		return nil, err
	}
	return append(msgs, msg), nil
}

// serializeToMessage marshals one dashboard record into a Kafka message.
func serializeToMessage(d domain.Dashboard, recordType, key string, v any) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", recordType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordType)},
			{Key: "snapshot_key", Value: []byte(d.SnapshotKey)},
			{Key: "generated_at", Value: []byte(d.GeneratedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
