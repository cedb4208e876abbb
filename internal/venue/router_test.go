package venue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solroute/swapd/internal/domain"
)

// stubSource returns a fixed quote after an optional delay.
type stubSource struct {
	venue domain.Venue
	price float64
	delay time.Duration
}

func (s stubSource) Venue() domain.Venue { return s.venue }

func (s stubSource) Quote(ctx context.Context, _, _ string, _ float64) (domain.Quote, error) {
	if err := sleep(ctx, s.delay); err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{Venue: s.venue, Price: s.price}, nil
}

func TestGetBestQuotePicksGreaterPrice(t *testing.T) {
	r := NewRouter([]Source{
		stubSource{venue: domain.VenueRaydium, price: 149.5},
		stubSource{venue: domain.VenueMeteora, price: 151.0},
	}, discardLogger())

	q, err := r.GetBestQuote(context.Background(), "SOL", "USDC", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.VenueMeteora, q.Venue)
	assert.Equal(t, 151.0, q.Price)
}

func TestGetBestQuoteTieBreaksToFirstListed(t *testing.T) {
	r := NewRouter([]Source{
		stubSource{venue: domain.VenueRaydium, price: 150.0},
		stubSource{venue: domain.VenueMeteora, price: 150.0},
	}, discardLogger())

	for range 20 {
		q, err := r.GetBestQuote(context.Background(), "SOL", "USDC", 1)
		require.NoError(t, err)
		assert.Equal(t, domain.VenueRaydium, q.Venue)
	}
}

func TestGetBestQuoteQueriesVenuesConcurrently(t *testing.T) {
	const delay = 60 * time.Millisecond
	r := NewRouter([]Source{
		stubSource{venue: domain.VenueRaydium, price: 150, delay: delay},
		stubSource{venue: domain.VenueMeteora, price: 151, delay: delay},
	}, discardLogger())

	start := time.Now()
	_, err := r.GetBestQuote(context.Background(), "SOL", "USDC", 1)
	require.NoError(t, err)

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, delay)
	assert.Less(t, elapsed, 2*delay, "venue calls must be in flight simultaneously")
}

func TestGetBestQuotePropagatesCancellation(t *testing.T) {
	r := NewRouter([]Source{
		stubSource{venue: domain.VenueRaydium, price: 150, delay: time.Minute},
		stubSource{venue: domain.VenueMeteora, price: 151},
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.GetBestQuote(ctx, "SOL", "USDC", 1)
	require.Error(t, err)
}
