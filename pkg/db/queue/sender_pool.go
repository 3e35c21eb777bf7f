package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/erain9/lobsim/pkg/messaging"
)

var (
	senderPool   chan messaging.MessageSender
	poolInitOnce sync.Once
	maxPoolSize  = 32
)

// initSenderPool initializes the sender pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan messaging.MessageSender, maxPoolSize)
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueMessageSender()
			if err != nil {
				fmt.Printf("Error creating sender: %v\n", err)
				continue
			}
			senderPool <- sender
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() messaging.MessageSender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		fmt.Printf("Warning: sender pool is empty\n")
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.MessageSender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
	default:
		fmt.Printf("Warning: sender pool is full\n")
		_ = sender.Close()
	}
}

// SendMessage sends a message using a pooled sender
func SendMessage(ctx context.Context, msg *messaging.DoneMessage) error {
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}

	err := sender.SendDoneMessage(ctx, msg)
	if err != nil {
		fmt.Printf("Error sending message: %v\n", err)
		// A failed sender may hold a broken connection; drop it
		_ = sender.Close()
		return err
	}

	ReturnSender(sender)
	return nil
}

// PooledSender adapts the sender pool to the MessageSender interface so
// an order book can publish through pooled producers.
type PooledSender struct{}

var _ messaging.MessageSender = (*PooledSender)(nil)

// SendDoneMessage publishes through a pooled sender
func (p *PooledSender) SendDoneMessage(ctx context.Context, msg *messaging.DoneMessage) error {
	return SendMessage(ctx, msg)
}

// Close is a no-op; pooled senders are shared
func (p *PooledSender) Close() error {
	return nil
}
