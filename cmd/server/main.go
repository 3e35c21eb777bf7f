package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/erain9/lobsim/config"
	"github.com/erain9/lobsim/pkg/api"
	"github.com/erain9/lobsim/pkg/backend/memory"
	redisbackend "github.com/erain9/lobsim/pkg/backend/redis"
	"github.com/erain9/lobsim/pkg/core"
	"github.com/erain9/lobsim/pkg/db/queue"
	"github.com/erain9/lobsim/pkg/logging"
	"github.com/erain9/lobsim/pkg/messaging/kafka"
	"github.com/erain9/lobsim/pkg/otel"
	"github.com/erain9/lobsim/pkg/simulator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogFormat == "pretty",
		Output: os.Stdout,
	})

	ctx := context.Background()

	if cfg.Otel.Enabled {
		cleanup, err := otel.Init(otel.Config{
			ServiceName:      otel.ServiceOrderBook,
			ServiceVersion:   "1.0.0",
			Endpoint:         cfg.Otel.Endpoint,
			CollectorEnabled: true,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize OpenTelemetry")
		}
		defer cleanup()

		if err := otel.StartRuntimeMetrics(); err != nil {
			log.Warn().Err(err).Msg("Failed to start runtime metrics")
		}
	}

	backend, closeBackend, err := setupBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup backend")
	}
	defer closeBackend()

	opts := []core.Option{}
	if cfg.Book.HistoryLimit > 0 {
		opts = append(opts, core.WithPriceHistoryLimit(cfg.Book.HistoryLimit))
	}
	if cfg.Kafka.Enabled {
		opts = append(opts, core.WithMessageSender(&queue.PooledSender{}))

		// Tail the report topic so executions show up in the server log.
		consumer := kafka.SetupConsumer(ctx, cfg.Kafka.BrokerAddr, cfg.Kafka.Topic, log.Logger)
		if consumer != nil {
			defer consumer.Close()
		}
	}

	book := core.NewOrderBook(backend, opts...)

	server := api.NewServer(book)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("Starting HTTP server")
		if err := server.Listen(cfg.Server.HTTPAddr); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	var sim *simulator.Simulator
	if cfg.Simulator.Enabled {
		sim, err = setupSimulator(ctx, book)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start simulator")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if sim != nil {
		if err := sim.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Simulator shutdown error")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Server shutdown complete")
}

// setupBackend builds the order book storage selected by the config and
// returns a close function for any held connections.
func setupBackend(cfg *config.Config) (core.OrderBookBackend, func(), error) {
	switch cfg.Book.Backend {
	case config.BackendRedis:
		redisbackend.SetDefaultRedisOptions(&redisbackend.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		client := redisbackend.GetRedisClient()

		zapLogger, err := zap.NewProduction()
		if err != nil {
			return nil, nil, err
		}

		backend := redisbackend.NewRedisBackend(client, cfg.Redis.KeyPrefix, zapLogger)
		closeFn := func() {
			_ = backend.Close()
			_ = zapLogger.Sync()
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis backend")
		return backend, closeFn, nil
	default:
		log.Info().Msg("Using in-memory backend")
		return memory.NewBackend(), func() {}, nil
	}
}

// setupSimulator starts the background order generator against the book.
// It goes through the same PlaceOrder and CancelOrder entry points as
// any API caller.
func setupSimulator(ctx context.Context, book *core.OrderBook) (*simulator.Simulator, error) {
	simCfg, err := simulator.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	strategy := simulator.NewRandomWalkQuoting(simCfg, rng)

	sim := simulator.NewSimulator(simCfg, logger, book, strategy, rng)
	if err := sim.Start(ctx); err != nil {
		return nil, err
	}
	log.Info().Msg("Order simulator started")
	return sim, nil
}
