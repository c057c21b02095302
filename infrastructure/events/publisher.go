// Package events publishes finished consensus results to Kafka so
// downstream consumers can react to transcriptions without polling.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/ahrav/go-chorus/internal/domain"
	"github.com/ahrav/go-chorus/internal/ports"
)

var _ ports.ResultPublisher = (*KafkaPublisher)(nil)

// eventType is the header value identifying consensus result messages.
const eventType = "consensus.result"

// Config holds Kafka publisher configuration.
type Config struct {
	// Brokers lists the Kafka bootstrap addresses.
	Brokers []string `yaml:"brokers" json:"brokers"`

	// Topic is the destination topic for consensus results.
	Topic string `yaml:"topic" json:"topic"`

	// Enabled turns publishing on. When false, or when no brokers are
	// configured, the publisher degrades to log-only mode.
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// DefaultConfig returns a Config with publishing disabled, suitable for
// local runs without a broker.
func DefaultConfig() Config {
	return Config{
		Topic:   "consensus.results",
		Enabled: false,
	}
}

// KafkaPublisher implements the ResultPublisher interface over a Kafka
// topic. A disabled publisher still logs every result, so the pipeline
// behaves identically with and without a broker attached.
type KafkaPublisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher for the given configuration.
// Publishing is disabled when the config says so or no brokers are
// listed; construction never fails.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) *KafkaPublisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info().Str("topic", cfg.Topic).Msg("Kafka disabled, using log-only mode")
		return &KafkaPublisher{
			topic:   cfg.Topic,
			enabled: false,
			logger:  logger,
		}
	}

	// Longer dial timeouts cover DNS resolution inside Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka publisher initialized")

	return &KafkaPublisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		logger:  logger,
	}
}

// Publish implements the ResultPublisher interface. The result is
// serialized as JSON, keyed for partitioning, and tagged with event-type
// and result-id headers.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, result *domain.ConsensusResult) error {
	msg, err := buildMessage(key, result)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal consensus result")
		return ports.NewPublisherError(p.topic, "marshal", err)
	}

	p.logger.Debug().
		Str("topic", p.topic).
		Str("key", key).
		RawJSON("payload", msg.Value).
		Msg("Publishing consensus result")

	if !p.enabled || p.writer == nil {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().
			Err(err).
			Str("topic", p.topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		return ports.NewPublisherError(p.topic, "write", err)
	}
	return nil
}

// Close implements the ResultPublisher interface.
func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error().Err(err).Msg("Error closing Kafka writer")
		return ports.NewPublisherError(p.topic, "close", err)
	}
	return nil
}

// buildMessage serializes a result into the Kafka message shape used on
// the topic.
func buildMessage(key string, result *domain.ConsensusResult) (kafka.Message, error) {
	if result == nil {
		return kafka.Message{}, errors.New("result cannot be nil")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "resultId", Value: []byte(result.ID)},
		},
	}, nil
}
