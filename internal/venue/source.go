// Package venue simulates execution venues for the swap pipeline: per-venue
// price quoting with bounded variance and a liquidity-depth impact model,
// best-quote aggregation across venues, and probabilistic settlement.
package venue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/solroute/swapd/internal/domain"
)

// Source produces a simulated price quote for a single venue.
type Source interface {
	Venue() domain.Venue
	// Quote returns the output amount obtainable for the given input amount.
	// Quoting never fails on its own; the only error is context cancellation
	// during the simulated network round-trip.
	Quote(ctx context.Context, inputToken, outputToken string, amount float64) (domain.Quote, error)
}

// SourceParams configures one simulated venue.
type SourceParams struct {
	Venue       domain.Venue
	BasePrice   float64
	VarianceMin float64 // lower bound of the uniform variance factor
	VarianceMax float64 // upper bound of the uniform variance factor
	Fee         float64 // proportional fee rate, informational only
	// ImpactDivisor and ImpactRate define the linear depth-impact penalty:
	// impact = max(0, amount/ImpactDivisor * ImpactRate). A deeper pool has
	// a smaller ImpactRate.
	ImpactDivisor float64
	ImpactRate    float64
	Latency       time.Duration // simulated network round-trip
}

// SimulatedSource is a Source driven by an injected seedable random source,
// so tests can force deterministic quotes.
type SimulatedSource struct {
	params SourceParams

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSource creates a venue source with the given parameters and
// random source.
func NewSimulatedSource(params SourceParams, rng *rand.Rand) *SimulatedSource {
	return &SimulatedSource{params: params, rng: rng}
}

// Venue returns the venue this source quotes for.
func (s *SimulatedSource) Venue() domain.Venue {
	return s.params.Venue
}

// Quote simulates one quote request: a fixed network delay, then
// price = basePrice * variance * (1 - impact).
func (s *SimulatedSource) Quote(ctx context.Context, inputToken, outputToken string, amount float64) (domain.Quote, error) {
	if err := sleep(ctx, s.params.Latency); err != nil {
		return domain.Quote{}, fmt.Errorf("venue %s: quote %s->%s: %w",
			s.params.Venue, inputToken, outputToken, err)
	}

	s.mu.Lock()
	variance := s.params.VarianceMin + s.rng.Float64()*(s.params.VarianceMax-s.params.VarianceMin)
	s.mu.Unlock()

	impact := 0.0
	if s.params.ImpactDivisor > 0 {
		impact = amount / s.params.ImpactDivisor * s.params.ImpactRate
	}
	if impact < 0 {
		impact = 0
	}

	return domain.Quote{
		Venue: s.params.Venue,
		Price: s.params.BasePrice * variance * (1 - impact),
		Fee:   s.params.Fee,
	}, nil
}

// sleep waits for d, honouring context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
