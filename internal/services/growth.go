package services

import (
	"math"
	"math/rand"
	"time"
)

// GrowthStrategy produces the next period of a simulated portfolio series.
// Implementations must never return a negative value.
type GrowthStrategy interface {
	NextPeriod(prior int64) (value int64, driftPct float64)
}

// randomWalkStrategy applies a uniform per-period drift with a slight upward
// bias, floored at zero. Drift is reported as a percentage rounded to two
// decimal places.
type randomWalkStrategy struct {
	rng      *rand.Rand
	minDrift float64
	maxDrift float64
}

// NewRandomWalkStrategy creates the default growth strategy with drift drawn
// uniformly from [-2%, +5%] each period.
func NewRandomWalkStrategy() GrowthStrategy {
	return &randomWalkStrategy{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		minDrift: -0.02,
		maxDrift: 0.05,
	}
}

func (s *randomWalkStrategy) NextPeriod(prior int64) (int64, float64) {
	drift := s.minDrift + s.rng.Float64()*(s.maxDrift-s.minDrift)
	value := math.Round(float64(prior) * (1 + drift))
	if value < 0 {
		value = 0
	}
	return int64(value), math.Round(drift*10000) / 100
}
