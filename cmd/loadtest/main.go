package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/time/rate"

	"github.com/erain9/lobsim/pkg/api"
)

const (
	numWorkers      = 50
	ordersPerWorker = 1000
	maxReqPerSecond = 2000
)

func main() {
	serverAddr := flag.String("addr", "http://localhost:8080", "HTTP server base URL")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	client := &http.Client{Timeout: 10 * time.Second}
	limiter := rate.NewLimiter(rate.Limit(maxReqPerSecond), maxReqPerSecond)

	// Latencies recorded in microseconds, up to 10s.
	hist := hdrhistogram.New(1, 10_000_000, 3)
	var histMu sync.Mutex
	var failed int64

	var wg sync.WaitGroup
	start := time.Now()
	log.Printf("Starting %d workers, %d orders per worker...", numWorkers, ordersPerWorker)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for j := 0; j < ordersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				elapsed, err := placeRandomOrder(ctx, client, *serverAddr, workerID, rng)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}

				histMu.Lock()
				_ = hist.RecordValue(elapsed.Microseconds())
				histMu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)

	total := int64(numWorkers * ordersPerWorker)
	log.Printf("Load test completed in %v", duration)
	log.Printf("Total orders attempted: %d", total)
	log.Printf("Failed requests: %d", atomic.LoadInt64(&failed))
	log.Printf("Throughput: %.0f orders/sec", float64(total-failed)/duration.Seconds())
	log.Printf("Latency p50: %v", time.Duration(hist.ValueAtQuantile(50))*time.Microsecond)
	log.Printf("Latency p95: %v", time.Duration(hist.ValueAtQuantile(95))*time.Microsecond)
	log.Printf("Latency p99: %v", time.Duration(hist.ValueAtQuantile(99))*time.Microsecond)
	log.Printf("Latency max: %v", time.Duration(hist.Max())*time.Microsecond)
}

// placeRandomOrder sends one order around a fixed price band so a healthy
// share of requests cross and exercise the matching path.
func placeRandomOrder(ctx context.Context, client *http.Client, addr string, workerID int, rng *rand.Rand) (time.Duration, error) {
	side := "BUY"
	if rng.Float64() < 0.5 {
		side = "SELL"
	}

	order := api.PlaceOrderRequest{
		Client: fmt.Sprintf("load-%d", workerID),
		Side:   side,
		Price:  100.0 + float64(rng.Intn(200)-100)/100.0,
		Volume: int64(1 + rng.Intn(10)),
	}
	body, err := json.Marshal(order)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/order", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return time.Since(start), nil
}
