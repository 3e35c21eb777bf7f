package integration

import (
	"context"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	redisbackend "github.com/erain9/lobsim/pkg/backend/redis"
	"github.com/erain9/lobsim/pkg/core"
	"github.com/erain9/lobsim/pkg/testutil"
)

const redisAddr = "localhost:6379"

func TestBookSurvivesReconnect(t *testing.T) {
	testutil.SkipIfRedisUnavailable(t, redisAddr)
	ctx := context.Background()

	client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	backend := redisbackend.NewRedisBackend(client, "lobsimintegration", zap.NewNop())
	require.NoError(t, backend.Flush())
	t.Cleanup(func() {
		_ = backend.Flush()
		_ = client.Close()
	})

	book := core.NewOrderBook(backend)
	first, err := book.PlaceOrder(ctx, "MMaker1", core.Sell, fpdecimal.FromFloat(101.0), 10)
	require.NoError(t, err)
	_, err = book.PlaceOrder(ctx, "MMaker2", core.Sell, fpdecimal.FromFloat(101.0), 5)
	require.NoError(t, err)

	// A fresh client over the same keys sees the same book, and time
	// priority within the level survives the reconnect.
	client2 := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	backend2 := redisbackend.NewRedisBackend(client2, "lobsimintegration", zap.NewNop())
	t.Cleanup(func() { _ = client2.Close() })

	level := backend2.BestLevel(core.Sell)
	require.NotNil(t, level)
	assert.Equal(t, int64(15), level.ActiveVolume())
	front := level.Front()
	require.NotNil(t, front)
	assert.Equal(t, first.OrderID, front.ID())
}

func TestMatchingAgainstRedisBook(t *testing.T) {
	testutil.SkipIfRedisUnavailable(t, redisAddr)
	ctx := context.Background()

	client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	backend := redisbackend.NewRedisBackend(client, "lobsimintegration", zap.NewNop())
	require.NoError(t, backend.Flush())
	t.Cleanup(func() {
		_ = backend.Flush()
		_ = client.Close()
	})

	book := core.NewOrderBook(backend)
	for i, price := range []float64{101, 102, 103} {
		_, err := book.PlaceOrder(ctx, "MMaker1", core.Sell, fpdecimal.FromFloat(price), int64(10*(i+1)))
		require.NoError(t, err)
	}

	result, err := book.PlaceOrder(ctx, "TraderA", core.Buy, fpdecimal.FromFloat(102.0), 25)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFilled, result.Status)
	require.Len(t, result.Trades, 2)
	assert.Equal(t, "101.000", result.Trades[0].Price.String())
	assert.Equal(t, int64(10), result.Trades[0].Volume)
	assert.Equal(t, "102.000", result.Trades[1].Price.String())
	assert.Equal(t, int64(15), result.Trades[1].Volume)

	depth, err := book.Snapshot(core.DefaultSnapshotDepth)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 2)
	assert.Equal(t, int64(5), depth.Asks[0].Volume)
}
