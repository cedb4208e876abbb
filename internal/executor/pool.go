// Package executor drives queued orders through the execution pipeline: it
// claims jobs from the queue with bounded concurrency and throughput, walks
// each order through the state machine by calling the router and the
// settlement simulator, and persists and publishes every transition.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solroute/swapd/internal/domain"
	"github.com/solroute/swapd/internal/queue"
)

// rateKey is the limiter key shared by all workers in the pool.
const rateKey = "orders:execute"

// QuoteRouter selects the best venue quote for a trade.
type QuoteRouter interface {
	GetBestQuote(ctx context.Context, inputToken, outputToken string, amount float64) (domain.Quote, error)
}

// Settler submits a trade to the chosen venue for settlement.
type Settler interface {
	Settle(ctx context.Context, v domain.Venue, amount float64) (domain.Receipt, error)
}

// Config bounds the pool's concurrency and throughput.
type Config struct {
	Concurrency int
	RateLimit   int           // max orders admitted per window
	RateWindow  time.Duration // rolling window for RateLimit
	Retry       queue.RetryPolicy
}

// Pool is the execution worker pool.
type Pool struct {
	queue   *queue.Queue
	store   domain.OrderStore
	limiter domain.RateLimiter
	router  QuoteRouter
	settler Settler
	pub     domain.EventPublisher
	cfg     Config
	logger  *slog.Logger

	retries sync.WaitGroup
}

// NewPool creates a Pool with all collaborators injected.
func NewPool(
	q *queue.Queue,
	store domain.OrderStore,
	limiter domain.RateLimiter,
	router QuoteRouter,
	settler Settler,
	pub domain.EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Pool{
		queue:   q,
		store:   store,
		limiter: limiter,
		router:  router,
		settler: settler,
		pub:     pub,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "executor")),
	}
}

// Run starts the workers and blocks until the context is cancelled or the
// queue is closed. Pending retry timers are waited out before returning.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "worker pool started",
		slog.Int("concurrency", p.cfg.Concurrency),
		slog.Int("rate_limit", p.cfg.RateLimit),
		slog.Duration("rate_window", p.cfg.RateWindow),
	)
	defer p.logger.Info("worker pool stopped")

	g, ctx := errgroup.WithContext(ctx)
	for range p.cfg.Concurrency {
		g.Go(func() error {
			return p.worker(ctx)
		})
	}
	err := g.Wait()
	p.retries.Wait()
	return err
}

// worker is one claim loop. The rate slot is taken between the queue claim
// and the status claim: jobs over the throughput limit wait rather than
// being rejected, and the order stays cancellable until the status
// transition lands.
func (p *Pool) worker(ctx context.Context) error {
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Queue closed; clean shutdown.
			return nil
		}

		if p.cfg.RateLimit > 0 {
			if err := p.limiter.Wait(ctx, rateKey, p.cfg.RateLimit, p.cfg.RateWindow); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("executor: rate limiter: %w", err)
			}
		}

		if err := p.process(ctx, job); err != nil {
			p.recover(ctx, job, err)
		}
	}
}

// process drives one claimed job through the state machine. It returns an
// error only for infrastructure failures; business failures terminate the
// order inside and return nil.
func (p *Pool) process(ctx context.Context, job domain.Job) error {
	log := p.logger.With(slog.String("order_id", job.OrderID))

	// Claim: atomic against the persisted status. Losing the race means the
	// order was cancelled between enqueue and claim; abort without touching
	// it further.
	err := p.store.Transition(ctx, job.OrderID, domain.OrderStatusPending, domain.RoutingUpdate{})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Info("claim lost, order no longer pending")
			return nil
		}
		return fmt.Errorf("executor: claim order %s: %w", job.OrderID, err)
	}
	p.pub.Publish(domain.EventFor(job.OrderID, domain.RoutingUpdate{}))
	log.InfoContext(ctx, "order claimed", slog.String("status", string(domain.OrderStatusRouting)))

	quote, err := p.router.GetBestQuote(ctx, job.InputToken, job.OutputToken, job.Amount)
	if err != nil {
		return fmt.Errorf("executor: route order %s: %w", job.OrderID, err)
	}

	if job.Type.RequiresLimitPrice() && quote.Price < job.LimitPrice {
		reason := fmt.Sprintf("%s price not met: expected at least %v, but best quote is %.2f",
			job.Type.Label(), job.LimitPrice, quote.Price)
		log.InfoContext(ctx, "threshold not met",
			slog.Float64("limit_price", job.LimitPrice),
			slog.Float64("quote_price", quote.Price),
		)
		return p.apply(ctx, job.OrderID, domain.FailedUpdate{Reason: reason})
	}

	if err := p.apply(ctx, job.OrderID, domain.BuildingUpdate{Venue: quote.Venue}); err != nil {
		return err
	}
	if err := p.apply(ctx, job.OrderID, domain.SubmittedUpdate{}); err != nil {
		return err
	}

	receipt, err := p.settler.Settle(ctx, quote.Venue, job.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrSlippage) {
			// Terminal business failure; never retried.
			log.InfoContext(ctx, "settlement rejected", slog.String("reason", err.Error()))
			return p.apply(ctx, job.OrderID, domain.FailedUpdate{Reason: err.Error()})
		}
		return fmt.Errorf("executor: settle order %s: %w", job.OrderID, err)
	}

	log.InfoContext(ctx, "order confirmed",
		slog.String("tx_hash", receipt.TxHash),
		slog.Float64("execution_price", receipt.ExecutedPrice),
	)
	return p.apply(ctx, job.OrderID, domain.ConfirmedUpdate{
		TxHash:         receipt.TxHash,
		ExecutionPrice: receipt.ExecutedPrice,
	})
}

// apply persists an update and publishes its event, in that order, so
// observers never see a state the record store does not.
func (p *Pool) apply(ctx context.Context, orderID string, u domain.Update) error {
	if err := p.store.Update(ctx, orderID, u); err != nil {
		return fmt.Errorf("executor: persist %s for order %s: %w", u.Status(), orderID, err)
	}
	p.pub.Publish(domain.EventFor(orderID, u))
	return nil
}

// recover handles an infrastructure failure: with budget remaining, the
// order returns to PENDING and its job is re-enqueued after exponential
// backoff; with the budget exhausted, the failure surfaces as a terminal
// FAILED carrying the underlying error.
func (p *Pool) recover(ctx context.Context, job domain.Job, cause error) {
	if ctx.Err() != nil {
		// Shutting down; leave the order as-is rather than racing teardown.
		return
	}

	log := p.logger.With(
		slog.String("order_id", job.OrderID),
		slog.Int("attempt", job.Attempt),
		slog.String("error", cause.Error()),
	)

	if p.cfg.Retry.Exhausted(job.Attempt) {
		log.Error("retries exhausted, failing order")
		if err := p.apply(ctx, job.OrderID, domain.FailedUpdate{Reason: cause.Error()}); err != nil {
			log.Error("failed to record terminal failure", slog.String("apply_error", err.Error()))
		}
		return
	}

	delay := p.cfg.Retry.Delay(job.Attempt)
	log.Warn("infrastructure failure, retrying", slog.Duration("delay", delay))

	// Restore PENDING so the retry claims atomically and the order stays
	// cancellable while it waits.
	if err := p.apply(ctx, job.OrderID, domain.PendingUpdate{}); err != nil {
		log.Error("failed to requeue order", slog.String("apply_error", err.Error()))
		return
	}

	next := job
	next.Attempt++
	p.retries.Add(1)
	go func() {
		defer p.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := p.queue.Enqueue(next); err != nil {
			log.Error("re-enqueue failed", slog.String("enqueue_error", err.Error()))
		}
	}()
}
