package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/erain9/lobsim/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Consumer tails execution reports from Kafka using a consumer group.
type Consumer struct {
	reader *kafka.Reader
	logger zerolog.Logger
}

// NewConsumer creates a consumer for the given broker, topic and group.
func NewConsumer(brokerAddr, topic, groupID string, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{brokerAddr},
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		logger: logger,
	}
}

// Run reads execution reports until the context is cancelled, passing
// each one to the handler.
func (c *Consumer) Run(ctx context.Context, handler func(msg *messaging.DoneMessage) error) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var done messaging.DoneMessage
		if err := json.Unmarshal(m.Value, &done); err != nil {
			c.logger.Warn().Err(err).Int64("offset", m.Offset).Msg("Skipping malformed execution report")
			continue
		}

		if err := handler(&done); err != nil {
			return err
		}
	}
}

// Close closes the underlying reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// SetupConsumer starts a consumer that logs every execution report.
// Returns nil when the broker is unreachable; the server runs without
// Kafka support in that case.
func SetupConsumer(ctx context.Context, brokerAddr, topic string, logger zerolog.Logger) *Consumer {
	consumer := NewConsumer(brokerAddr, topic, "lobsim-report-tailer", logger)

	go func() {
		logger.Info().Str("topic", topic).Msg("Starting Kafka consumer")
		err := consumer.Run(ctx, func(msg *messaging.DoneMessage) error {
			logger.Info().
				Uint64("order_id", msg.OrderID).
				Str("client", msg.Client).
				Str("side", msg.Side).
				Str("status", msg.Status).
				Str("price", msg.Price).
				Int64("executed_volume", msg.ExecutedVolume).
				Int64("remaining_volume", msg.RemainingVolume).
				Int64("cancelled_volume", msg.CancelledVolume).
				Int("trades", len(msg.Trades)).
				Bool("stored", msg.Stored).
				Msg("Received execution report")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	return consumer
}
