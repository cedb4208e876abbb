package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solroute/swapd/internal/domain"
)

// updateChannel is the pub/sub channel order updates are mirrored onto for
// consumers outside this process.
const updateChannel = "ch:order"

// publishTimeout bounds each mirrored publish so a slow Redis never stalls
// the pipeline.
const publishTimeout = 2 * time.Second

// UpdateMirror republishes every in-process order event onto a Redis pub/sub
// channel. It wraps an inner publisher (the in-process bus) so a single
// Publish call feeds both local subscribers and external consumers.
type UpdateMirror struct {
	rdb    *redis.Client
	inner  domain.EventPublisher
	logger *slog.Logger
}

// NewUpdateMirror creates an UpdateMirror around the inner publisher.
func NewUpdateMirror(c *Client, inner domain.EventPublisher, logger *slog.Logger) *UpdateMirror {
	return &UpdateMirror{
		rdb:    c.Underlying(),
		inner:  inner,
		logger: logger.With(slog.String("component", "update_mirror")),
	}
}

// Publish forwards the event to the in-process bus, then mirrors it to
// Redis. Mirror failures are logged and never block a transition.
func (m *UpdateMirror) Publish(evt domain.OrderEvent) {
	m.inner.Publish(evt)

	payload, err := json.Marshal(evt)
	if err != nil {
		m.logger.Error("marshal event failed",
			slog.String("order_id", evt.OrderID),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := m.rdb.Publish(ctx, updateChannel, payload).Err(); err != nil {
		m.logger.Warn("mirror publish failed",
			slog.String("order_id", evt.OrderID),
			slog.String("status", string(evt.Status)),
			slog.String("error", err.Error()),
		)
	}
}

var _ domain.EventPublisher = (*UpdateMirror)(nil)
