package venue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solroute/swapd/internal/domain"
)

func TestSettleSuccess(t *testing.T) {
	s := NewSettler(SettlerParams{
		BasePrice:   150,
		FailureRate: 0,
	}, testRand(1), discardLogger())

	for range 50 {
		receipt, err := s.Settle(context.Background(), domain.VenueRaydium, 1)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(receipt.TxHash, "5x"), receipt.TxHash)
		assert.GreaterOrEqual(t, receipt.ExecutedPrice, 150*0.99)
		assert.LessOrEqual(t, receipt.ExecutedPrice, 150*1.01)
	}
}

func TestSettleSlippageRejection(t *testing.T) {
	s := NewSettler(SettlerParams{
		BasePrice:   150,
		FailureRate: 1,
	}, testRand(1), discardLogger())

	_, err := s.Settle(context.Background(), domain.VenueMeteora, 1)
	require.ErrorIs(t, err, domain.ErrSlippage)
}

func TestSettleUniqueTxHashes(t *testing.T) {
	s := NewSettler(SettlerParams{BasePrice: 150}, testRand(3), discardLogger())

	seen := make(map[string]bool)
	for range 20 {
		receipt, err := s.Settle(context.Background(), domain.VenueRaydium, 1)
		require.NoError(t, err)
		require.False(t, seen[receipt.TxHash], "duplicate tx hash %s", receipt.TxHash)
		seen[receipt.TxHash] = true
	}
}

func TestSettleHonoursContext(t *testing.T) {
	s := NewSettler(SettlerParams{
		BasePrice:  150,
		MinLatency: time.Minute,
		MaxLatency: time.Minute,
	}, testRand(1), discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Settle(ctx, domain.VenueRaydium, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
