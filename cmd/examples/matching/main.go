package main

import (
	"context"
	"fmt"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/lobsim/pkg/backend/memory"
	"github.com/erain9/lobsim/pkg/core"
)

// Walks through the matching rules: time priority within a level, price
// improvement for aggressive takers, and cancellation of the remainder.
func main() {
	ctx := context.Background()
	book := core.NewOrderBook(memory.NewBackend())

	// Two sellers at the same price. The first one must trade first.
	first, _ := book.PlaceOrder(ctx, "MMaker1", core.Sell, fpdecimal.FromFloat(100.0), 10)
	second, _ := book.PlaceOrder(ctx, "MMaker2", core.Sell, fpdecimal.FromFloat(100.0), 10)
	fmt.Printf("Resting sells: order %d then order %d at 100.000\n", first.OrderID, second.OrderID)

	// A buy willing to pay 105 still trades at 100: the resting price wins.
	taker, err := book.PlaceOrder(ctx, "TraderA", core.Buy, fpdecimal.FromFloat(105.0), 15)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Buy 15 @ 105.000 -> status %s\n", taker.Status)
	for _, trade := range taker.Trades {
		fmt.Printf("  filled %d at %s against order %d\n",
			trade.Volume, trade.Price.String(), trade.MakerOrderID)
	}

	// The second seller keeps its unfilled remainder on the book.
	remaining := book.GetOrder(second.OrderID)
	fmt.Printf("Order %d has %d lots left\n", remaining.ID(), remaining.Remaining())

	cancelled, err := book.CancelOrder(ctx, second.OrderID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Cancelled order %d, removed %d lots\n", cancelled.OrderID, cancelled.CancelledVolume)

	if _, err := book.CancelOrder(ctx, second.OrderID); err != nil {
		fmt.Printf("Second cancel fails: %v\n", err)
	}
}
