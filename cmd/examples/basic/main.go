package main

import (
	"context"
	"fmt"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/lobsim/pkg/backend/memory"
	"github.com/erain9/lobsim/pkg/core"
)

func main() {
	ctx := context.Background()
	book := core.NewOrderBook(memory.NewBackend())

	// Rest a sell order, then cross it with a smaller buy.
	sell, err := book.PlaceOrder(ctx, "MMaker1", core.Sell, fpdecimal.FromFloat(10.0), 10)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Placed sell order %d, status %s\n", sell.OrderID, sell.Status)

	buy, err := book.PlaceOrder(ctx, "TraderA", core.Buy, fpdecimal.FromFloat(10.0), 5)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Placed buy order %d, status %s\n", buy.OrderID, buy.Status)

	for _, trade := range buy.Trades {
		fmt.Printf("Trade: %d lots at %s (maker %d, taker %d)\n",
			trade.Volume, trade.Price.String(), trade.MakerOrderID, trade.TakerOrderID)
	}

	depth, err := book.Snapshot(core.DefaultSnapshotDepth)
	if err != nil {
		panic(err)
	}
	fmt.Println("Remaining asks:")
	for _, level := range depth.Asks {
		fmt.Printf("  %s x %d\n", level.Price.String(), level.Volume)
	}
}
