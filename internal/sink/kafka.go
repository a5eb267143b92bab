package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/adstream-io/adstream/internal/config"
)

const (
	defaultKafkaTopic        = "adstream.records"
	defaultKafkaBatchTimeout = time.Second
)

// KafkaConfig holds Kafka producer configuration.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// LoadKafkaConfig loads Kafka configuration from environment variables with
// fallback to defaults.
func LoadKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:      config.ParseCommaSeparatedList(config.GetEnvStr("KAFKA_BROKERS", "localhost:9092")),
		Topic:        config.GetEnvStr("KAFKA_TOPIC", defaultKafkaTopic),
		BatchTimeout: config.GetEnvDuration("KAFKA_BATCH_TIMEOUT", defaultKafkaBatchTimeout),
	}
}

// KafkaSink publishes records to a Kafka topic, keyed by stream name so all
// rows of one stream land in the same partition in order.
type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaSink creates a Kafka-backed sink.
func NewKafkaSink(cfg *KafkaConfig, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}
}

// Emit publishes one record. The writer batches internally; delivery is
// at-least-once.
func (s *KafkaSink) Emit(ctx context.Context, record Record) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record for stream %s: %w", record.Stream, err)
	}

	message := kafka.Message{
		Key:   []byte(record.Stream + "/" + record.ProfileID),
		Value: value,
	}

	if err := s.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("publishing record for stream %s: %w", record.Stream, err)
	}

	return nil
}

// Close flushes pending batches and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
