package core

import (
	"context"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
)

func BenchmarkCrossingOrderMatching(b *testing.B) {
	ctx := context.Background()
	book := newTestBook()

	// Ask side with 100 levels and plenty of volume per level.
	for i := 0; i < 100; i++ {
		level := fpdecimal.FromFloat(100.0 + float64(i)*0.1)
		_, _ = book.PlaceOrder(ctx, "maker", Sell, level, 1_000_000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Small enough not to deplete the best level inside one run.
		_, _ = book.PlaceOrder(ctx, "taker", Buy, fpdecimal.FromFloat(100.0), 3)
	}
}

func BenchmarkRestingOrderInsertion(b *testing.B) {
	ctx := context.Background()
	book := newTestBook()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Bids below any ask never cross, so every order rests.
		level := fpdecimal.FromFloat(90.0 - float64(i%50)*0.1)
		_, _ = book.PlaceOrder(ctx, "maker", Buy, level, 10)
	}
}

func BenchmarkCancelOrder(b *testing.B) {
	ctx := context.Background()
	book := newTestBook()

	ids := make([]uint64, b.N)
	for i := 0; i < b.N; i++ {
		result, err := book.PlaceOrder(ctx, "maker", Buy, fpdecimal.FromFloat(90.0), 10)
		if err != nil {
			b.Fatalf("place failed: %v", err)
		}
		ids[i] = result.OrderID
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = book.CancelOrder(ctx, ids[i])
	}
}
