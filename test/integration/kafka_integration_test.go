package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/lobsim/pkg/backend/memory"
	"github.com/erain9/lobsim/pkg/core"
	"github.com/erain9/lobsim/pkg/messaging"
	"github.com/erain9/lobsim/pkg/messaging/kafka"
	"github.com/erain9/lobsim/pkg/testutil"
)

const kafkaAddr = "localhost:9092"

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
}

func TestExecutionReportsReachKafka(t *testing.T) {
	testutil.SkipIfKafkaUnavailable(t, kafkaAddr)
	ctx := context.Background()

	// Unique topic per run so earlier runs cannot bleed in.
	topic := fmt.Sprintf("lobsim-test-%d", time.Now().UnixNano())

	sender, err := kafka.NewKafkaMessageSender(kafkaAddr, topic)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sender.Close() })

	book := core.NewOrderBook(memory.NewBackend(), core.WithMessageSender(sender))

	maker, err := book.PlaceOrder(ctx, "MMaker1", core.Sell, fpdecimal.FromFloat(101.0), 10)
	require.NoError(t, err)
	taker, err := book.PlaceOrder(ctx, "TraderA", core.Buy, fpdecimal.FromFloat(101.0), 4)
	require.NoError(t, err)

	received := make(chan *messaging.DoneMessage, 8)
	consumer := kafka.NewConsumer(kafkaAddr, topic, fmt.Sprintf("%s-group", topic), testLogger())
	t.Cleanup(func() { _ = consumer.Close() })

	runCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	go func() {
		_ = consumer.Run(runCtx, func(msg *messaging.DoneMessage) error {
			received <- msg
			return nil
		})
	}()

	byOrder := map[uint64]*messaging.DoneMessage{}
	for len(byOrder) < 2 {
		select {
		case msg := <-received:
			byOrder[msg.OrderID] = msg
		case <-runCtx.Done():
			t.Fatalf("timed out waiting for reports, got %d of 2", len(byOrder))
		}
	}

	makerMsg := byOrder[maker.OrderID]
	require.NotNil(t, makerMsg)
	assert.Equal(t, "ACTIVE", makerMsg.Status)
	assert.True(t, makerMsg.Stored)

	takerMsg := byOrder[taker.OrderID]
	require.NotNil(t, takerMsg)
	assert.Equal(t, "FILLED", takerMsg.Status)
	assert.Equal(t, int64(4), takerMsg.ExecutedVolume)
	require.Len(t, takerMsg.Trades, 1)
	assert.Equal(t, "101.000", takerMsg.Trades[0].Price)
}
