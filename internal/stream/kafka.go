package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// KafkaConfig configures the Kafka source.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// Features is the set of fields extracted from each payload. When empty,
	// every numeric field except "timestamp" is taken.
	Features []string
}

// KafkaSource consumes JSON-encoded records from a Kafka topic and adapts
// them to the engine's Stream contract. Offset management, reconnection and
// backoff are owned by the underlying reader; at-least-once delivery is
// acceptable to the engine, which counts duplicates as additional samples.
type KafkaSource struct {
	reader   *kafka.Reader
	features []string
	logger   *zap.Logger
}

// NewKafkaSource creates a Kafka source.
func NewKafkaSource(cfg KafkaConfig, logger *zap.Logger) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka source: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka source: no topic configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
	})

	return &KafkaSource{reader: reader, features: cfg.Features, logger: logger}, nil
}

// Receive implements drift.Stream. Malformed payloads are logged and skipped
// rather than terminating the stream.
func (s *KafkaSource) Receive(ctx context.Context) (drift.Record, error) {
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			return drift.Record{}, err
		}

		rec, err := decodeRecord(msg.Value, s.features)
		if err != nil {
			s.logger.Warn("dropping malformed payload",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}
		return rec, nil
	}
}

// Close implements drift.Stream.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// decodeRecord extracts the tracked features from a JSON payload. Extra
// fields (labels, identifiers) are ignored; a missing or non-numeric tracked
// feature is an error.
func decodeRecord(payload []byte, features []string) (drift.Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return drift.Record{}, fmt.Errorf("decode record: %w", err)
	}

	rec := drift.Record{
		Features:  make(map[string]float64),
		Timestamp: time.Now(),
	}
	if ts, ok := raw["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
	}

	if len(features) == 0 {
		for name, v := range raw {
			if name == "timestamp" {
				continue
			}
			if f, ok := v.(float64); ok {
				rec.Features[name] = f
			}
		}
		if len(rec.Features) == 0 {
			return drift.Record{}, fmt.Errorf("payload has no numeric fields")
		}
		return rec, nil
	}

	for _, feature := range features {
		v, ok := raw[feature]
		if !ok {
			return drift.Record{}, fmt.Errorf("payload missing feature %q", feature)
		}
		f, ok := v.(float64)
		if !ok {
			return drift.Record{}, fmt.Errorf("feature %q is not numeric", feature)
		}
		rec.Features[feature] = f
	}
	return rec, nil
}

// KafkaPublisher writes records to a topic as JSON payloads. Used by the
// simulate command to feed demo data into the pipeline.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish encodes and writes one record.
func (p *KafkaPublisher) Publish(ctx context.Context, rec drift.Record) error {
	payload := make(map[string]any, len(rec.Features)+1)
	for name, v := range rec.Features {
		payload[name] = v
	}
	payload["timestamp"] = rec.Timestamp.Format(time.RFC3339)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Value: body})
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
