package venue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solroute/swapd/internal/domain"
)

// SettlerParams configures the settlement simulation.
type SettlerParams struct {
	BasePrice   float64
	MinLatency  time.Duration // lower bound of confirmation time
	MaxLatency  time.Duration // upper bound of confirmation time
	FailureRate float64       // probability of a slippage rejection, in [0,1]
}

// Settler simulates transaction submission against a chosen venue: a
// confirmation delay in a fixed range, a probabilistic slippage rejection,
// and an executed price independently perturbed from the base price.
type Settler struct {
	params SettlerParams
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSettler creates a Settler with the given parameters and random source.
func NewSettler(params SettlerParams, rng *rand.Rand, logger *slog.Logger) *Settler {
	return &Settler{
		params: params,
		rng:    rng,
		logger: logger.With(slog.String("component", "settler")),
	}
}

// Settle submits the trade to the given venue. It returns domain.ErrSlippage
// when the simulated fill moves beyond tolerance; this is a terminal business
// failure, not a retryable infrastructure error.
func (s *Settler) Settle(ctx context.Context, v domain.Venue, amount float64) (domain.Receipt, error) {
	s.logger.InfoContext(ctx, "executing swap",
		slog.String("venue", string(v)),
		slog.Float64("amount", amount),
	)

	s.mu.Lock()
	delay := s.params.MinLatency
	if spread := s.params.MaxLatency - s.params.MinLatency; spread > 0 {
		delay += time.Duration(s.rng.Float64() * float64(spread))
	}
	failed := s.rng.Float64() < s.params.FailureRate
	perturb := 0.99 + s.rng.Float64()*0.02
	s.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return domain.Receipt{}, fmt.Errorf("settler: settle on %s: %w", v, err)
	}

	if failed {
		return domain.Receipt{}, domain.ErrSlippage
	}

	return domain.Receipt{
		TxHash:        newTxHash(),
		ExecutedPrice: s.params.BasePrice * perturb,
	}, nil
}

// newTxHash generates an opaque transaction identifier.
func newTxHash() string {
	return "5x" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
