package simulator

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the order flow simulator
type Config struct {
	// Pause bounds between actions
	MinSleep time.Duration
	MaxSleep time.Duration

	// Price model: orders quote around the book mid-price, falling back
	// to BasePrice while the book is empty, within +/- PriceOffset
	BasePrice   float64
	PriceOffset float64

	// Volume bounds, inclusive
	MinVolume int64
	MaxVolume int64

	// Probability of cancelling a tracked order instead of placing one
	CancelProbability float64

	// Client names attached to generated orders
	Clients []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("SIM_MIN_SLEEP_MS", 500)
	v.SetDefault("SIM_MAX_SLEEP_MS", 3000)
	v.SetDefault("SIM_BASE_PRICE", 100.0)
	v.SetDefault("SIM_PRICE_OFFSET", 1.5)
	v.SetDefault("SIM_MIN_VOLUME", 5)
	v.SetDefault("SIM_MAX_VOLUME", 50)
	v.SetDefault("SIM_CANCEL_PROBABILITY", 0.05)
	v.SetDefault("SIM_CLIENTS", "TraderA,TraderB,TraderC,TraderD,MMaker1")

	v.AutomaticEnv()

	cfg := &Config{
		MinSleep:          time.Duration(v.GetInt("SIM_MIN_SLEEP_MS")) * time.Millisecond,
		MaxSleep:          time.Duration(v.GetInt("SIM_MAX_SLEEP_MS")) * time.Millisecond,
		BasePrice:         v.GetFloat64("SIM_BASE_PRICE"),
		PriceOffset:       v.GetFloat64("SIM_PRICE_OFFSET"),
		MinVolume:         v.GetInt64("SIM_MIN_VOLUME"),
		MaxVolume:         v.GetInt64("SIM_MAX_VOLUME"),
		CancelProbability: v.GetFloat64("SIM_CANCEL_PROBABILITY"),
		Clients:           strings.Split(v.GetString("SIM_CLIENTS"), ","),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.MinSleep <= 0 {
		return fmt.Errorf("SIM_MIN_SLEEP_MS must be positive")
	}
	if cfg.MaxSleep < cfg.MinSleep {
		return fmt.Errorf("SIM_MAX_SLEEP_MS must be >= SIM_MIN_SLEEP_MS")
	}
	if cfg.BasePrice <= 0 {
		return fmt.Errorf("SIM_BASE_PRICE must be positive")
	}
	if cfg.PriceOffset <= 0 || cfg.PriceOffset >= cfg.BasePrice {
		return fmt.Errorf("SIM_PRICE_OFFSET must be positive and below SIM_BASE_PRICE")
	}
	if cfg.MinVolume <= 0 {
		return fmt.Errorf("SIM_MIN_VOLUME must be positive")
	}
	if cfg.MaxVolume < cfg.MinVolume {
		return fmt.Errorf("SIM_MAX_VOLUME must be >= SIM_MIN_VOLUME")
	}
	if cfg.CancelProbability < 0 || cfg.CancelProbability > 1 {
		return fmt.Errorf("SIM_CANCEL_PROBABILITY must be in [0, 1]")
	}
	if len(cfg.Clients) == 0 || cfg.Clients[0] == "" {
		return fmt.Errorf("SIM_CLIENTS must not be empty")
	}
	return nil
}
