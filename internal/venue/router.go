package venue

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/solroute/swapd/internal/domain"
)

// Router aggregates quotes across venues and is the sole place venue
// selection occurs.
type Router struct {
	sources []Source
	logger  *slog.Logger
}

// NewRouter creates a Router over the given sources. Source order matters:
// on an exact price tie the earlier-listed venue wins.
func NewRouter(sources []Source, logger *slog.Logger) *Router {
	return &Router{
		sources: sources,
		logger:  logger.With(slog.String("component", "router")),
	}
}

// GetBestQuote queries every venue concurrently, waits for all of them, and
// returns the quote with the greatest price. Total latency is that of the
// slowest venue, not the sum.
func (r *Router) GetBestQuote(ctx context.Context, inputToken, outputToken string, amount float64) (domain.Quote, error) {
	r.logger.InfoContext(ctx, "fetching quotes",
		slog.String("input_token", inputToken),
		slog.String("output_token", outputToken),
		slog.Float64("amount", amount),
	)

	quotes := make([]domain.Quote, len(r.sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range r.sources {
		g.Go(func() error {
			q, err := src.Quote(ctx, inputToken, outputToken, amount)
			if err != nil {
				return err
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Quote{}, fmt.Errorf("router: get quotes: %w", err)
	}

	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.Price > best.Price {
			best = q
		}
	}

	r.logger.InfoContext(ctx, "best quote selected",
		slog.String("venue", string(best.Venue)),
		slog.Float64("price", best.Price),
		slog.Float64("fee", best.Fee),
	)
	return best, nil
}
