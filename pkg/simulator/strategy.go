package simulator

import (
	"math"
	"math/rand"

	"github.com/erain9/lobsim/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

// OrderIntent is one order the strategy wants placed
type OrderIntent struct {
	Client string
	Side   core.Side
	Price  fpdecimal.Decimal
	Volume int64
}

// Strategy decides what the simulator does on each tick
type Strategy interface {
	// NextOrder produces an order quoted around the anchor price
	NextOrder(anchorPrice float64) OrderIntent
	// ShouldCancel reports whether this tick cancels instead of placing
	ShouldCancel() bool
}

// RandomWalkQuoting generates uniformly random orders around an anchor
// price, the way uninformed flow would look.
type RandomWalkQuoting struct {
	cfg *Config
	rng *rand.Rand
}

// NewRandomWalkQuoting creates a strategy with the given random source
func NewRandomWalkQuoting(cfg *Config, rng *rand.Rand) *RandomWalkQuoting {
	return &RandomWalkQuoting{
		cfg: cfg,
		rng: rng,
	}
}

// NextOrder implements Strategy
func (s *RandomWalkQuoting) NextOrder(anchorPrice float64) OrderIntent {
	side := core.Sell
	if s.rng.Intn(2) == 1 {
		side = core.Buy
	}

	offset := (s.rng.Float64()*2 - 1) * s.cfg.PriceOffset
	// Two decimal places keeps the level count realistic
	price := math.Round((anchorPrice+offset)*100) / 100

	volume := s.cfg.MinVolume + s.rng.Int63n(s.cfg.MaxVolume-s.cfg.MinVolume+1)

	return OrderIntent{
		Client: s.cfg.Clients[s.rng.Intn(len(s.cfg.Clients))],
		Side:   side,
		Price:  fpdecimal.FromFloat(price),
		Volume: volume,
	}
}

// ShouldCancel implements Strategy
func (s *RandomWalkQuoting) ShouldCancel() bool {
	return s.rng.Float64() < s.cfg.CancelProbability
}
