package main

import (
	"context"
	"fmt"
	"log"

	"github.com/nikolaydubina/fpdecimal"
	"go.uber.org/zap"

	redisbackend "github.com/erain9/lobsim/pkg/backend/redis"
	"github.com/erain9/lobsim/pkg/core"
)

func main() {
	ctx := context.Background()

	redisbackend.SetDefaultRedisOptions(&redisbackend.RedisOptions{
		Addr: "localhost:6379",
		DB:   0,
	})
	client := redisbackend.GetRedisClient()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis not available: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	backend := redisbackend.NewRedisBackend(client, "lobsim-example", logger)
	defer backend.Close()

	// Clear keys from earlier runs so the walkthrough is repeatable.
	if err := backend.Flush(); err != nil {
		log.Fatalf("Failed to flush example keys: %v", err)
	}

	book := core.NewOrderBook(backend)

	sell, err := book.PlaceOrder(ctx, "MMaker1", core.Sell, fpdecimal.FromFloat(25.0), 10)
	if err != nil {
		log.Fatalf("Failed to place sell order: %v", err)
	}
	fmt.Printf("Placed sell order %d\n", sell.OrderID)

	buy, err := book.PlaceOrder(ctx, "TraderA", core.Buy, fpdecimal.FromFloat(25.0), 4)
	if err != nil {
		log.Fatalf("Failed to place buy order: %v", err)
	}
	fmt.Printf("Buy order %d executed %d lots\n", buy.OrderID, buy.ExecutedVolume())

	// State lives in Redis: a fresh backend over the same keys sees it.
	reopened := redisbackend.NewRedisBackend(redisbackend.GetRedisClient(), "lobsim-example", logger)
	restored := core.NewOrderBook(reopened)

	depth, err := restored.Snapshot(core.DefaultSnapshotDepth)
	if err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}
	for _, level := range depth.Asks {
		fmt.Printf("Ask %s x %d (read through a fresh connection)\n", level.Price.String(), level.Volume)
	}
}
