package simulator

import (
	"math/rand"
	"testing"

	"github.com/erain9/lobsim/pkg/core"
)

func testConfig() *Config {
	return &Config{
		MinSleep:          1,
		MaxSleep:          2,
		BasePrice:         100.0,
		PriceOffset:       1.5,
		MinVolume:         5,
		MaxVolume:         50,
		CancelProbability: 0.05,
		Clients:           []string{"TraderA", "TraderB", "TraderC", "TraderD", "MMaker1"},
	}
}

func TestRandomWalkQuoting(t *testing.T) {
	cfg := testConfig()
	strategy := NewRandomWalkQuoting(cfg, rand.New(rand.NewSource(7)))

	t.Run("Orders stay inside the quoting band", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			intent := strategy.NextOrder(cfg.BasePrice)

			price := intent.Price.Float64()
			if price < cfg.BasePrice-cfg.PriceOffset-0.01 || price > cfg.BasePrice+cfg.PriceOffset+0.01 {
				t.Fatalf("price %f outside band around %f", price, cfg.BasePrice)
			}
			if intent.Volume < cfg.MinVolume || intent.Volume > cfg.MaxVolume {
				t.Fatalf("volume %d outside [%d, %d]", intent.Volume, cfg.MinVolume, cfg.MaxVolume)
			}
			if intent.Client == "" {
				t.Fatal("expected a client name")
			}
			if intent.Side != core.Buy && intent.Side != core.Sell {
				t.Fatalf("unexpected side %v", intent.Side)
			}
		}
	})

	t.Run("Both sides are generated", func(t *testing.T) {
		var buys, sells int
		for i := 0; i < 1000; i++ {
			if strategy.NextOrder(cfg.BasePrice).Side == core.Buy {
				buys++
			} else {
				sells++
			}
		}
		if buys == 0 || sells == 0 {
			t.Errorf("expected both sides, got %d buys and %d sells", buys, sells)
		}
	})

	t.Run("Cancel probability edges", func(t *testing.T) {
		never := NewRandomWalkQuoting(&Config{
			BasePrice: 100, PriceOffset: 1, MinVolume: 1, MaxVolume: 2,
			CancelProbability: 0, Clients: []string{"A"},
		}, rand.New(rand.NewSource(1)))
		for i := 0; i < 100; i++ {
			if never.ShouldCancel() {
				t.Fatal("ShouldCancel returned true with probability 0")
			}
		}

		always := NewRandomWalkQuoting(&Config{
			BasePrice: 100, PriceOffset: 1, MinVolume: 1, MaxVolume: 2,
			CancelProbability: 1, Clients: []string{"A"},
		}, rand.New(rand.NewSource(1)))
		for i := 0; i < 100; i++ {
			if !always.ShouldCancel() {
				t.Fatal("ShouldCancel returned false with probability 1")
			}
		}
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero min sleep", func(c *Config) { c.MinSleep = 0 }},
		{"max sleep below min", func(c *Config) { c.MaxSleep = c.MinSleep - 1 }},
		{"zero base price", func(c *Config) { c.BasePrice = 0 }},
		{"offset above base", func(c *Config) { c.PriceOffset = c.BasePrice + 1 }},
		{"zero min volume", func(c *Config) { c.MinVolume = 0 }},
		{"max volume below min", func(c *Config) { c.MaxVolume = c.MinVolume - 1 }},
		{"cancel probability above one", func(c *Config) { c.CancelProbability = 1.5 }},
		{"no clients", func(c *Config) { c.Clients = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := validateConfig(testConfig()); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
