package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/erain9/lobsim/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockConsumer) ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error) {
	return &mockPartitionConsumer{
		messages: m.messages,
		errors:   m.errors,
	}, nil
}

func (m *mockConsumer) Topics() ([]string, error) {
	return []string{}, nil
}

func (m *mockConsumer) Partitions(topic string) ([]int32, error) {
	return []int32{}, nil
}

func (m *mockConsumer) HighWaterMarks() map[string]map[int32]int64 {
	return nil
}

func (m *mockConsumer) Close() error {
	close(m.messages)
	close(m.errors)
	return nil
}

func (m *mockConsumer) Pause(topicPartitions map[string][]int32) {}

func (m *mockConsumer) Resume(topicPartitions map[string][]int32) {}

func (m *mockConsumer) PauseAll() {}

func (m *mockConsumer) ResumeAll() {}

type mockPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockPartitionConsumer) AsyncClose() {}

func (m *mockPartitionConsumer) Close() error {
	return nil
}

func (m *mockPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage {
	return m.messages
}

func (m *mockPartitionConsumer) Errors() <-chan *sarama.ConsumerError {
	return m.errors
}

func (m *mockPartitionConsumer) HighWaterMarkOffset() int64 {
	return 0
}

func (m *mockPartitionConsumer) IsPaused() bool {
	return false
}

func (m *mockPartitionConsumer) Pause() {}

func (m *mockPartitionConsumer) Resume() {}

func testDoneMessage() *messaging.DoneMessage {
	return &messaging.DoneMessage{
		OrderID:         42,
		Client:          "TraderA",
		Side:            "BUY",
		Status:          "PARTIALLY_FILLED",
		Price:           "100.500",
		ExecutedVolume:  30,
		RemainingVolume: 20,
		Trades: []messaging.Trade{
			{
				Price:        "100.500",
				Volume:       30,
				MakerOrderID: 41,
				TakerOrderID: 42,
				MakerClient:  "MMaker1",
				TakerClient:  "TraderA",
			},
		},
		Stored: true,
	}
}

func TestQueueMessageSender_SendDoneMessage(t *testing.T) {
	doneMessage := testDoneMessage()

	producer := &recordingProducer{}

	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return producer, nil
	}

	sender, err := NewQueueMessageSender()
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendDoneMessage(context.Background(), doneMessage)
	require.NoError(t, err)

	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]

	require.Equal(t, topic, msg.Topic)

	key, err := msg.Key.Encode()
	require.NoError(t, err)
	require.Equal(t, "42", string(key))

	var decoded messaging.DoneMessage
	err = json.Unmarshal(msg.Value.(sarama.ByteEncoder), &decoded)
	require.NoError(t, err)

	require.Equal(t, doneMessage.OrderID, decoded.OrderID)
	require.Equal(t, doneMessage.Client, decoded.Client)
	require.Equal(t, doneMessage.Side, decoded.Side)
	require.Equal(t, doneMessage.Status, decoded.Status)
	require.Equal(t, doneMessage.Price, decoded.Price)
	require.Equal(t, doneMessage.ExecutedVolume, decoded.ExecutedVolume)
	require.Equal(t, doneMessage.RemainingVolume, decoded.RemainingVolume)
	require.Equal(t, doneMessage.Stored, decoded.Stored)
	require.Equal(t, len(doneMessage.Trades), len(decoded.Trades))
}

func TestQueueMessageConsumer_ConsumeDoneMessages(t *testing.T) {
	expectedMessage := testDoneMessage()

	mockCons := &mockConsumer{
		messages: make(chan *sarama.ConsumerMessage, 1),
		errors:   make(chan *sarama.ConsumerError, 1),
	}

	consumer := &QueueMessageConsumer{
		consumer: mockCons,
		done:     make(chan struct{}),
	}

	receivedMessage := make(chan *messaging.DoneMessage, 1)

	go func() {
		err := consumer.ConsumeDoneMessages(func(msg *messaging.DoneMessage) error {
			receivedMessage <- msg
			return nil
		})
		assert.NoError(t, err)
	}()

	data, err := json.Marshal(expectedMessage)
	require.NoError(t, err)
	mockCons.messages <- &sarama.ConsumerMessage{Value: data}

	select {
	case msg := <-receivedMessage:
		assert.Equal(t, expectedMessage.OrderID, msg.OrderID)
		assert.Equal(t, expectedMessage.Client, msg.Client)
		assert.Equal(t, expectedMessage.Status, msg.Status)
		assert.Equal(t, expectedMessage.ExecutedVolume, msg.ExecutedVolume)
		assert.Equal(t, expectedMessage.RemainingVolume, msg.RemainingVolume)
		assert.Equal(t, len(expectedMessage.Trades), len(msg.Trades))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	err = consumer.Close()
	require.NoError(t, err)
}
