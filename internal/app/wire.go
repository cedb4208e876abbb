package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/solroute/swapd/internal/bus"
	"github.com/solroute/swapd/internal/cache/redis"
	"github.com/solroute/swapd/internal/config"
	"github.com/solroute/swapd/internal/domain"
	"github.com/solroute/swapd/internal/executor"
	"github.com/solroute/swapd/internal/queue"
	"github.com/solroute/swapd/internal/service"
	"github.com/solroute/swapd/internal/store/memory"
	"github.com/solroute/swapd/internal/store/postgres"
	"github.com/solroute/swapd/internal/venue"
)

// Dependencies bundles every component the application needs to run. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	OrderStore  domain.OrderStore
	RateLimiter domain.RateLimiter
	Bus         *bus.Bus
	Publisher   domain.EventPublisher
	Queue       *queue.Queue
	Router      *venue.Router
	Settler     *venue.Settler
	Pool        *executor.Pool
	Orders      *service.OrderService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Order store ---
	switch strings.ToLower(cfg.Storage.Backend) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.OrderStore = postgres.NewOrderStore(pgClient.Pool())

	case "memory":
		deps.OrderStore = memory.NewOrderStore()

	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unsupported storage backend %q", cfg.Storage.Backend)
	}

	// --- Event bus ---
	deps.Bus = bus.New(logger)
	deps.Publisher = deps.Bus

	// --- Redis (distributed rate limiting and update mirroring) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Publisher = redis.NewUpdateMirror(redisClient, deps.Bus, logger)
	} else {
		deps.RateLimiter = executor.NewLocalLimiter()
	}

	// --- Queue ---
	deps.Queue = queue.New(cfg.Queue.Capacity, logger)
	closers = append(closers, deps.Queue.Close)

	// --- Venue router and settler ---
	deps.Router = venue.NewRouter([]venue.Source{
		venue.NewSimulatedSource(sourceParams(domain.VenueRaydium, cfg.Venues.Raydium), newRand()),
		venue.NewSimulatedSource(sourceParams(domain.VenueMeteora, cfg.Venues.Meteora), newRand()),
	}, logger)

	deps.Settler = venue.NewSettler(venue.SettlerParams{
		BasePrice:   cfg.Settlement.BasePrice,
		MinLatency:  cfg.Settlement.MinLatency.Duration,
		MaxLatency:  cfg.Settlement.MaxLatency.Duration,
		FailureRate: cfg.Settlement.FailureRate,
	}, newRand(), logger)

	// --- Worker pool ---
	deps.Pool = executor.NewPool(
		deps.Queue,
		deps.OrderStore,
		deps.RateLimiter,
		deps.Router,
		deps.Settler,
		deps.Publisher,
		executor.Config{
			Concurrency: cfg.Worker.Concurrency,
			RateLimit:   cfg.Worker.RateLimit,
			RateWindow:  cfg.Worker.RateWindow.Duration,
			Retry: queue.RetryPolicy{
				MaxAttempts: cfg.Worker.RetryAttempts,
				BaseDelay:   cfg.Worker.RetryBaseDelay.Duration,
				Multiplier:  cfg.Worker.RetryMultiplier,
				MaxDelay:    cfg.Worker.RetryMaxDelay.Duration,
			},
		},
		logger,
	)

	// --- Order service ---
	deps.Orders = service.NewOrderService(deps.OrderStore, deps.Queue, deps.Publisher, logger)

	return deps, cleanup, nil
}

func sourceParams(v domain.Venue, cfg config.VenueConfig) venue.SourceParams {
	return venue.SourceParams{
		Venue:         v,
		BasePrice:     cfg.BasePrice,
		VarianceMin:   cfg.VarianceMin,
		VarianceMax:   cfg.VarianceMax,
		Fee:           cfg.Fee,
		ImpactDivisor: cfg.ImpactDivisor,
		ImpactRate:    cfg.ImpactRate,
		Latency:       cfg.Latency.Duration,
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
