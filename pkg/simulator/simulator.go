// Package simulator drives random order flow through an order book,
// imitating a handful of independent traders. It talks to the same
// PlaceOrder/CancelOrder API as any other caller.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/erain9/lobsim/pkg/core"
)

// Simulator places and cancels random orders on a book until stopped.
type Simulator struct {
	cfg      *Config
	logger   *slog.Logger
	book     *core.OrderBook
	strategy Strategy
	rng      *rand.Rand

	// Order ids this simulator has placed and may later cancel.
	activeMu     sync.Mutex
	activeOrders []uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSimulator creates a simulator for the given book.
func NewSimulator(cfg *Config, logger *slog.Logger, book *core.OrderBook, strategy Strategy, rng *rand.Rand) *Simulator {
	return &Simulator{
		cfg:      cfg,
		logger:   logger.With("component", "Simulator"),
		book:     book,
		strategy: strategy,
		rng:      rng,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the order generation loop.
func (s *Simulator) Start(ctx context.Context) error {
	s.logger.Info("Starting order flow simulator",
		"min_sleep", s.cfg.MinSleep,
		"max_sleep", s.cfg.MaxSleep,
		"clients", s.cfg.Clients)

	s.wg.Add(1)
	go s.run(ctx)

	return nil
}

// Stop gracefully shuts down the simulator.
func (s *Simulator) Stop(ctx context.Context) error {
	s.logger.Info("Stopping order flow simulator")

	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Simulator stopped successfully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for simulator to stop: %w", ctx.Err())
	}
}

// run is the main generation loop.
func (s *Simulator) run(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.nextPause())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping simulator loop")
			return
		case <-s.stopCh:
			s.logger.Info("Stop signal received, stopping simulator loop")
			return
		case <-timer.C:
			s.step(ctx)
			timer.Reset(s.nextPause())
		}
	}
}

// step performs one simulated action: usually placing an order,
// occasionally cancelling a previously placed one.
func (s *Simulator) step(ctx context.Context) {
	if s.strategy.ShouldCancel() {
		if s.cancelRandom(ctx) {
			return
		}
		// Nothing to cancel; fall through to placing an order.
	}

	intent := s.strategy.NextOrder(s.anchorPrice())

	result, err := s.book.PlaceOrder(ctx, intent.Client, intent.Side, intent.Price, intent.Volume)
	if err != nil {
		s.logger.Error("Failed to place order",
			"client", intent.Client,
			"side", intent.Side.String(),
			"price", intent.Price.String(),
			"error", err)
		return
	}

	if result.Status == core.StatusActive || result.Status == core.StatusPartiallyFilled {
		s.track(result.OrderID)
	}

	s.logger.Debug("Placed order",
		"order_id", result.OrderID,
		"client", intent.Client,
		"side", intent.Side.String(),
		"price", intent.Price.String(),
		"volume", intent.Volume,
		"status", string(result.Status),
		"trades", len(result.Trades))
}

// anchorPrice is the book mid-price, or the configured base price while
// the book has no resting orders.
func (s *Simulator) anchorPrice() float64 {
	bid, hasBid := s.book.BestBid()
	ask, hasAsk := s.book.BestAsk()

	switch {
	case hasBid && hasAsk:
		return (bid.Float64() + ask.Float64()) / 2
	case hasBid:
		return bid.Float64()
	case hasAsk:
		return ask.Float64()
	default:
		return s.cfg.BasePrice
	}
}

// cancelRandom cancels a random tracked order. Returns false when no
// tracked order is still resting.
func (s *Simulator) cancelRandom(ctx context.Context) bool {
	orderID, ok := s.pickActive()
	if !ok {
		return false
	}

	result, err := s.book.CancelOrder(ctx, orderID)
	if err != nil {
		// The order was filled since we placed it; that is expected.
		s.logger.Debug("Tracked order no longer cancellable",
			"order_id", orderID,
			"error", err)
		return false
	}

	s.logger.Debug("Cancelled order",
		"order_id", orderID,
		"cancelled_volume", result.CancelledVolume)
	return true
}

func (s *Simulator) track(orderID uint64) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.activeOrders = append(s.activeOrders, orderID)
}

// pickActive removes and returns a random tracked order id.
func (s *Simulator) pickActive() (uint64, bool) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()

	// Drop ids that are no longer resting before choosing.
	live := s.activeOrders[:0]
	for _, id := range s.activeOrders {
		if s.book.GetOrder(id) != nil {
			live = append(live, id)
		}
	}
	s.activeOrders = live

	if len(s.activeOrders) == 0 {
		return 0, false
	}

	i := s.rng.Intn(len(s.activeOrders))
	orderID := s.activeOrders[i]
	s.activeOrders = append(s.activeOrders[:i], s.activeOrders[i+1:]...)
	return orderID, true
}

func (s *Simulator) nextPause() time.Duration {
	spread := s.cfg.MaxSleep - s.cfg.MinSleep
	if spread <= 0 {
		return s.cfg.MinSleep
	}
	return s.cfg.MinSleep + time.Duration(s.rng.Int63n(int64(spread)))
}
