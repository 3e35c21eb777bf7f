// Package queue publishes and consumes execution reports over Kafka
// using sarama. Senders are pooled; see sender_pool.go.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/erain9/lobsim/pkg/messaging"
)

var (
	brokerList = "localhost:9092"
	topic      = "lobsim-reports"
)

const maxRetry = 5

// newSyncProducer is swappable in tests
var newSyncProducer = sarama.NewSyncProducer

// SetBrokerList overrides the Kafka broker list for new senders
func SetBrokerList(brokers string) {
	brokerList = brokers
}

// SetTopic overrides the Kafka topic for new senders
func SetTopic(t string) {
	topic = t
}

// QueueMessageSender implements the MessageSender interface
// for sending messages to Kafka
type QueueMessageSender struct {
	producer sarama.SyncProducer
}

var _ messaging.MessageSender = (*QueueMessageSender)(nil)

// NewQueueMessageSender creates a sender with its own Kafka producer
func NewQueueMessageSender() (*QueueMessageSender, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = maxRetry
	config.Producer.Return.Successes = true

	producer, err := newSyncProducer([]string{brokerList}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMessageSender{producer: producer}, nil
}

// SendDoneMessage sends the DoneMessage to the Kafka queue
func (q *QueueMessageSender) SendDoneMessage(ctx context.Context, done *messaging.DoneMessage) error {
	data, err := json.Marshal(done)
	if err != nil {
		return fmt.Errorf("failed to marshal done message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(done.OrderID, 10)),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the underlying producer
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}

// QueueMessageConsumer consumes execution reports from Kafka
type QueueMessageConsumer struct {
	consumer sarama.Consumer
	done     chan struct{}
}

// NewQueueMessageConsumer creates a consumer connected to the configured broker
func NewQueueMessageConsumer() (*QueueMessageConsumer, error) {
	consumer, err := sarama.NewConsumer([]string{brokerList}, sarama.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &QueueMessageConsumer{
		consumer: consumer,
		done:     make(chan struct{}),
	}, nil
}

// ConsumeDoneMessages reads execution reports from the beginning of the
// topic and passes each one to the handler. Blocks until Close is called.
func (c *QueueMessageConsumer) ConsumeDoneMessages(handler func(msg *messaging.DoneMessage) error) error {
	partitionConsumer, err := c.consumer.ConsumePartition(topic, 0, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	for {
		select {
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}
			var done messaging.DoneMessage
			if err := json.Unmarshal(msg.Value, &done); err != nil {
				// Skip malformed payloads rather than stall the partition
				continue
			}
			if err := handler(&done); err != nil {
				return err
			}
		case consumerErr, ok := <-partitionConsumer.Errors():
			if !ok {
				return nil
			}
			return consumerErr.Err
		case <-c.done:
			return nil
		}
	}
}

// Close stops consumption and closes the underlying consumer
func (c *QueueMessageConsumer) Close() error {
	close(c.done)
	return c.consumer.Close()
}
