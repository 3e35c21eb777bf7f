// Package redis provides a Redis-backed implementation of the order book
// backend. Orders are stored as JSON values, each side keeps a sorted set
// of price levels scored by price, and each level keeps a sorted set of
// order ids scored by arrival sequence so that time priority survives a
// process restart.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/erain9/lobsim/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisBackend implements core.OrderBookBackend with Redis storage
type RedisBackend struct {
	sync.RWMutex
	client    *redis.Client
	ctx       context.Context
	keyPrefix string
	bidsKey   string
	asksKey   string
	ordersKey string
	logger    *zap.Logger
}

var _ core.OrderBookBackend = (*RedisBackend)(nil)

// NewRedisBackend creates a new instance of RedisBackend
func NewRedisBackend(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisBackend {
	return &RedisBackend{
		client:    client,
		ctx:       context.Background(),
		keyPrefix: keyPrefix,
		bidsKey:   fmt.Sprintf("%s:bids", keyPrefix),
		asksKey:   fmt.Sprintf("%s:asks", keyPrefix),
		ordersKey: fmt.Sprintf("%s:orders", keyPrefix),
		logger:    logger,
	}
}

// GetOrder retrieves an order from Redis by its ID
func (b *RedisBackend) GetOrder(orderID uint64) *core.Order {
	b.RLock()
	defer b.RUnlock()

	key := b.getOrderKey(orderID)
	data, err := b.client.Get(b.ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			b.logger.Error("failed to get order",
				zap.Uint64("orderID", orderID),
				zap.Error(err))
		}
		return nil
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		b.logger.Error("failed to unmarshal order",
			zap.Uint64("orderID", orderID),
			zap.Error(err))
		return nil
	}

	return &order
}

// StoreOrder stores an order in Redis
func (b *RedisBackend) StoreOrder(order *core.Order) error {
	b.Lock()
	defer b.Unlock()

	key := b.getOrderKey(order.ID())
	exists, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return core.ErrOrderExists
	}

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	pipe := b.client.Pipeline()
	pipe.Set(b.ctx, key, data, 0)
	pipe.SAdd(b.ctx, b.ordersKey, order.ID())
	_, err = pipe.Exec(b.ctx)
	return err
}

// UpdateOrder updates an existing order in Redis
func (b *RedisBackend) UpdateOrder(order *core.Order) error {
	b.Lock()
	defer b.Unlock()

	key := b.getOrderKey(order.ID())
	exists, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return core.ErrOrderNotFound
	}

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return b.client.Set(b.ctx, key, data, 0).Err()
}

// DeleteOrder deletes an order from Redis
func (b *RedisBackend) DeleteOrder(orderID uint64) {
	b.Lock()
	defer b.Unlock()

	pipe := b.client.Pipeline()
	pipe.Del(b.ctx, b.getOrderKey(orderID))
	pipe.SRem(b.ctx, b.ordersKey, orderID)
	if _, err := pipe.Exec(b.ctx); err != nil {
		b.logger.Error("failed to delete order",
			zap.Uint64("orderID", orderID),
			zap.Error(err))
	}
}

// AppendToSide adds an order to the back of its price level queue,
// registering the level on the side index when it is new.
func (b *RedisBackend) AppendToSide(side core.Side, order *core.Order) {
	b.Lock()
	defer b.Unlock()

	sideKey := b.getSideKey(side)
	levelKey := b.getLevelKey(side, order.Price())
	volumeKey := b.getVolumeKey(side, order.Price())

	pipe := b.client.Pipeline()

	// Register the price level on the side index
	pipe.ZAdd(b.ctx, sideKey, redis.Z{
		Score:  order.Price().Float64(),
		Member: order.Price().String(),
	})

	// Enqueue the order, scored by arrival sequence for FIFO
	pipe.ZAdd(b.ctx, levelKey, redis.Z{
		Score:  float64(order.Sequence()),
		Member: strconv.FormatUint(order.ID(), 10),
	})

	pipe.IncrBy(b.ctx, volumeKey, order.Remaining())

	if _, err := pipe.Exec(b.ctx); err != nil {
		b.logger.Error("failed to append order to side",
			zap.Uint64("orderID", order.ID()),
			zap.String("side", side.String()),
			zap.Error(err))
	}
}

// RemoveFromSide removes an order from its price level, subtracting its
// remaining volume, and drops the level when it empties.
func (b *RedisBackend) RemoveFromSide(order *core.Order) bool {
	b.Lock()
	defer b.Unlock()

	side := order.Side()
	sideKey := b.getSideKey(side)
	levelKey := b.getLevelKey(side, order.Price())
	volumeKey := b.getVolumeKey(side, order.Price())

	pipe := b.client.Pipeline()
	removed := pipe.ZRem(b.ctx, levelKey, strconv.FormatUint(order.ID(), 10))
	pipe.DecrBy(b.ctx, volumeKey, order.Remaining())
	remaining := pipe.ZCard(b.ctx, levelKey)

	if _, err := pipe.Exec(b.ctx); err != nil {
		b.logger.Error("failed to remove order from side",
			zap.Uint64("orderID", order.ID()),
			zap.String("side", side.String()),
			zap.Error(err))
		return false
	}

	if removed.Val() == 0 {
		return false
	}

	if remaining.Val() == 0 {
		pipe := b.client.Pipeline()
		pipe.ZRem(b.ctx, sideKey, order.Price().String())
		pipe.Del(b.ctx, levelKey, volumeKey)
		if _, err := pipe.Exec(b.ctx); err != nil {
			b.logger.Error("failed to clean up empty price level",
				zap.Uint64("orderID", order.ID()),
				zap.Error(err))
		}
	}

	return true
}

// BestLevel returns the top price level of a side: highest bid or lowest
// ask. Returns nil when the side is empty.
func (b *RedisBackend) BestLevel(side core.Side) core.LevelQueue {
	b.RLock()
	defer b.RUnlock()

	sideKey := b.getSideKey(side)

	var members []string
	var err error
	if side == core.Buy {
		members, err = b.client.ZRevRange(b.ctx, sideKey, 0, 0).Result()
	} else {
		members, err = b.client.ZRange(b.ctx, sideKey, 0, 0).Result()
	}
	if err != nil {
		b.logger.Error("failed to fetch best level",
			zap.String("side", side.String()),
			zap.Error(err))
		return nil
	}
	if len(members) == 0 {
		return nil
	}

	price, err := fpdecimal.FromString(members[0])
	if err != nil {
		b.logger.Error("corrupt price member in side index",
			zap.String("member", members[0]),
			zap.Error(err))
		return nil
	}

	return &redisLevel{backend: b, side: side, price: price}
}

// Depth returns up to the requested number of aggregated levels for a
// side, best price first.
func (b *RedisBackend) Depth(side core.Side, levels int) []core.DepthLevel {
	b.RLock()
	defer b.RUnlock()

	sideKey := b.getSideKey(side)

	var members []string
	var err error
	if side == core.Buy {
		members, err = b.client.ZRevRange(b.ctx, sideKey, 0, int64(levels)-1).Result()
	} else {
		members, err = b.client.ZRange(b.ctx, sideKey, 0, int64(levels)-1).Result()
	}
	if err != nil {
		b.logger.Error("failed to fetch depth",
			zap.String("side", side.String()),
			zap.Error(err))
		return nil
	}

	out := make([]core.DepthLevel, 0, len(members))
	for _, member := range members {
		price, err := fpdecimal.FromString(member)
		if err != nil {
			continue
		}
		out = append(out, core.DepthLevel{
			Price:  price,
			Volume: b.levelVolume(side, price),
		})
	}
	return out
}

// Len returns the number of resting orders.
func (b *RedisBackend) Len() int {
	b.RLock()
	defer b.RUnlock()

	n, err := b.client.SCard(b.ctx, b.ordersKey).Result()
	if err != nil {
		b.logger.Error("failed to count orders", zap.Error(err))
		return 0
	}
	return int(n)
}

// Flush removes all order book state under this backend's key prefix.
// Intended for tests.
func (b *RedisBackend) Flush() error {
	b.Lock()
	defer b.Unlock()

	var cursor uint64
	for {
		keys, next, err := b.client.Scan(b.ctx, cursor, b.keyPrefix+":*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := b.client.Del(b.ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis client and cleans up resources
func (b *RedisBackend) Close() error {
	b.Lock()
	defer b.Unlock()
	return b.client.Close()
}

// WithContext returns a new RedisBackend with the given context. The
// clone shares the client and key space but gets a fresh lock; the
// original's mutex is never copied.
func (b *RedisBackend) WithContext(ctx context.Context) *RedisBackend {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RedisBackend{
		client:    b.client,
		ctx:       ctx,
		keyPrefix: b.keyPrefix,
		bidsKey:   b.bidsKey,
		asksKey:   b.asksKey,
		ordersKey: b.ordersKey,
		logger:    b.logger,
	}
}

// redisLevel is a lazily-resolved view of a price level queue.
type redisLevel struct {
	backend *RedisBackend
	side    core.Side
	price   fpdecimal.Decimal
}

var _ core.LevelQueue = (*redisLevel)(nil)

func (l *redisLevel) Price() fpdecimal.Decimal { return l.price }

// ActiveVolume returns the total remaining volume at this level.
func (l *redisLevel) ActiveVolume() int64 {
	l.backend.RLock()
	defer l.backend.RUnlock()
	return l.backend.levelVolume(l.side, l.price)
}

// Front returns the oldest order at this level, nil when empty.
func (l *redisLevel) Front() *core.Order {
	l.backend.RLock()
	levelKey := l.backend.getLevelKey(l.side, l.price)
	members, err := l.backend.client.ZRange(l.backend.ctx, levelKey, 0, 0).Result()
	l.backend.RUnlock()

	if err != nil {
		l.backend.logger.Error("failed to fetch level front",
			zap.String("side", l.side.String()),
			zap.String("price", l.price.String()),
			zap.Error(err))
		return nil
	}
	if len(members) == 0 {
		return nil
	}

	orderID, err := strconv.ParseUint(members[0], 10, 64)
	if err != nil {
		l.backend.logger.Error("corrupt order id in level queue",
			zap.String("member", members[0]),
			zap.Error(err))
		return nil
	}
	return l.backend.GetOrder(orderID)
}

// Reduce subtracts executed volume from the level total.
func (l *redisLevel) Reduce(volume int64) {
	l.backend.Lock()
	defer l.backend.Unlock()

	volumeKey := l.backend.getVolumeKey(l.side, l.price)
	if err := l.backend.client.DecrBy(l.backend.ctx, volumeKey, volume).Err(); err != nil {
		l.backend.logger.Error("failed to reduce level volume",
			zap.String("price", l.price.String()),
			zap.Error(err))
	}
}

// Helper methods for key generation. Callers hold the lock.

func (b *RedisBackend) levelVolume(side core.Side, price fpdecimal.Decimal) int64 {
	v, err := b.client.Get(b.ctx, b.getVolumeKey(side, price)).Int64()
	if err != nil {
		if err != redis.Nil {
			b.logger.Error("failed to get level volume",
				zap.String("price", price.String()),
				zap.Error(err))
		}
		return 0
	}
	return v
}

func (b *RedisBackend) getSideKey(side core.Side) string {
	if side == core.Buy {
		return b.bidsKey
	}
	return b.asksKey
}

func (b *RedisBackend) getLevelKey(side core.Side, price fpdecimal.Decimal) string {
	return fmt.Sprintf("%s:%s", b.getSideKey(side), price.String())
}

func (b *RedisBackend) getVolumeKey(side core.Side, price fpdecimal.Decimal) string {
	return fmt.Sprintf("%s:volume:%s", b.getSideKey(side), price.String())
}

func (b *RedisBackend) getOrderKey(orderID uint64) string {
	return fmt.Sprintf("%s:order:%d", b.keyPrefix, orderID)
}
