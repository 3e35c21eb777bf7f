package redis

import (
	"context"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erain9/lobsim/pkg/core"
)

// setupTestBackend connects to a local Redis instance and flushes any
// keys left by earlier runs. Tests are skipped when Redis is unreachable.
func setupTestBackend(t *testing.T) *RedisBackend {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		t.Skipf("Skipping Redis tests: cannot connect to Redis (%v)", err)
	}

	backend := NewRedisBackend(client, "lobsimtest", zap.NewNop())
	require.NoError(t, backend.Flush())
	t.Cleanup(func() {
		_ = backend.Flush()
		_ = client.Close()
	})
	return backend
}

func testOrder(t *testing.T, id uint64, side core.Side, price float64, volume int64, seq uint64) *core.Order {
	t.Helper()
	order, err := core.NewOrder(id, "TraderA", side, fpdecimal.FromFloat(price), volume, seq)
	require.NoError(t, err)
	return order
}

func TestRedisBackend_StoreGetUpdateDeleteOrder(t *testing.T) {
	backend := setupTestBackend(t)
	order := testOrder(t, 1, core.Buy, 100.0, 10, 1)

	require.NoError(t, backend.StoreOrder(order))
	assert.ErrorIs(t, backend.StoreOrder(order), core.ErrOrderExists)

	stored := backend.GetOrder(1)
	require.NotNil(t, stored)
	assert.Equal(t, order.ID(), stored.ID())
	assert.Equal(t, order.Client(), stored.Client())
	assert.True(t, order.Price().Equal(stored.Price()))
	assert.Equal(t, order.Remaining(), stored.Remaining())

	order.Fill(4)
	require.NoError(t, backend.UpdateOrder(order))
	updated := backend.GetOrder(1)
	require.NotNil(t, updated)
	assert.Equal(t, int64(6), updated.Remaining())
	assert.Equal(t, core.StatusPartiallyFilled, updated.Status())

	backend.DeleteOrder(1)
	assert.Nil(t, backend.GetOrder(1))
	assert.ErrorIs(t, backend.UpdateOrder(order), core.ErrOrderNotFound)
}

func TestRedisBackend_AppendAndRemoveFromSide(t *testing.T) {
	backend := setupTestBackend(t)
	order := testOrder(t, 1, core.Sell, 101.5, 10, 1)

	require.NoError(t, backend.StoreOrder(order))
	backend.AppendToSide(core.Sell, order)

	level := backend.BestLevel(core.Sell)
	require.NotNil(t, level)
	assert.True(t, level.Price().Equal(fpdecimal.FromFloat(101.5)))
	assert.Equal(t, int64(10), level.ActiveVolume())
	front := level.Front()
	require.NotNil(t, front)
	assert.Equal(t, uint64(1), front.ID())

	assert.True(t, backend.RemoveFromSide(order))
	assert.Nil(t, backend.BestLevel(core.Sell))
	assert.False(t, backend.RemoveFromSide(order))
}

func TestRedisBackend_FIFOWithinLevel(t *testing.T) {
	backend := setupTestBackend(t)
	first := testOrder(t, 1, core.Buy, 100.0, 10, 1)
	second := testOrder(t, 2, core.Buy, 100.0, 5, 2)

	for _, o := range []*core.Order{first, second} {
		require.NoError(t, backend.StoreOrder(o))
		backend.AppendToSide(core.Buy, o)
	}

	level := backend.BestLevel(core.Buy)
	require.NotNil(t, level)
	assert.Equal(t, int64(15), level.ActiveVolume())
	// Arrival sequence decides priority, not insertion into Redis.
	assert.Equal(t, uint64(1), level.Front().ID())

	require.True(t, backend.RemoveFromSide(first))
	level = backend.BestLevel(core.Buy)
	require.NotNil(t, level)
	assert.Equal(t, uint64(2), level.Front().ID())
	assert.Equal(t, int64(5), level.ActiveVolume())
}

func TestRedisBackend_Depth(t *testing.T) {
	backend := setupTestBackend(t)
	prices := []float64{100, 99, 98}
	for i, price := range prices {
		order := testOrder(t, uint64(i+1), core.Buy, price, 10, uint64(i+1))
		require.NoError(t, backend.StoreOrder(order))
		backend.AppendToSide(core.Buy, order)
	}
	ask := testOrder(t, 10, core.Sell, 101.0, 7, 10)
	require.NoError(t, backend.StoreOrder(ask))
	backend.AppendToSide(core.Sell, ask)

	bids := backend.Depth(core.Buy, 2)
	require.Len(t, bids, 2)
	assert.Equal(t, "100.000", bids[0].Price.String())
	assert.Equal(t, "99.000", bids[1].Price.String())
	assert.Equal(t, int64(10), bids[0].Volume)

	asks := backend.Depth(core.Sell, 5)
	require.Len(t, asks, 1)
	assert.Equal(t, "101.000", asks[0].Price.String())
	assert.Equal(t, int64(7), asks[0].Volume)
}

func TestRedisBackend_Len(t *testing.T) {
	backend := setupTestBackend(t)
	assert.Equal(t, 0, backend.Len())

	require.NoError(t, backend.StoreOrder(testOrder(t, 1, core.Buy, 100.0, 10, 1)))
	require.NoError(t, backend.StoreOrder(testOrder(t, 2, core.Sell, 101.0, 10, 2)))
	assert.Equal(t, 2, backend.Len())

	backend.DeleteOrder(1)
	assert.Equal(t, 1, backend.Len())
}

func TestWithContext(t *testing.T) {
	// No Redis calls here; only the clone semantics are under test.
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	backend := NewRedisBackend(client, "lobsimtest", zap.NewNop())
	ctx := context.WithValue(context.Background(), contextTestKey{}, "v")
	clone := backend.WithContext(ctx)

	assert.NotSame(t, backend, clone)
	assert.Same(t, backend.client, clone.client)
	assert.Equal(t, backend.bidsKey, clone.bidsKey)
	assert.Equal(t, backend.asksKey, clone.asksKey)
	assert.Equal(t, backend.ordersKey, clone.ordersKey)
	assert.Equal(t, ctx, clone.ctx)

	fallback := backend.WithContext(nil)
	assert.NotNil(t, fallback.ctx)
}

type contextTestKey struct{}

func TestOrderBookWithRedisBackend(t *testing.T) {
	backend := setupTestBackend(t)
	book := core.NewOrderBook(backend)
	ctx := context.Background()

	_, err := book.PlaceOrder(ctx, "MMaker1", core.Sell, fpdecimal.FromFloat(101.0), 10)
	require.NoError(t, err)

	result, err := book.PlaceOrder(ctx, "TraderA", core.Buy, fpdecimal.FromFloat(101.0), 4)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFilled, result.Status)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "101.000", result.Trades[0].Price.String())
	assert.Equal(t, int64(4), result.Trades[0].Volume)

	depth, err := book.Snapshot(core.DefaultSnapshotDepth)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.Equal(t, int64(6), depth.Asks[0].Volume)
}
