package bus

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solroute/swapd/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.New(slog.DiscardHandler))
}

func TestPublishDeliversOnlyMatchingOrder(t *testing.T) {
	b := newTestBus()

	ch, unsub := b.Subscribe("o1")
	defer unsub()

	b.Publish(domain.OrderEvent{OrderID: "o2", Status: domain.OrderStatusRouting})
	b.Publish(domain.OrderEvent{OrderID: "o1", Status: domain.OrderStatusRouting})

	evt := <-ch
	assert.Equal(t, "o1", evt.OrderID)
	assert.Empty(t, ch)
}

func TestPublishPreservesOrder(t *testing.T) {
	b := newTestBus()

	ch, unsub := b.Subscribe("o1")
	defer unsub()

	statuses := []domain.OrderStatus{
		domain.OrderStatusRouting,
		domain.OrderStatusBuilding,
		domain.OrderStatusSubmitted,
		domain.OrderStatusConfirmed,
	}
	for _, s := range statuses {
		b.Publish(domain.OrderEvent{OrderID: "o1", Status: s})
	}

	for _, want := range statuses {
		assert.Equal(t, want, (<-ch).Status)
	}
}

func TestMultipleSubscribersEachReceiveEveryEvent(t *testing.T) {
	b := newTestBus()

	chans := make([]<-chan domain.OrderEvent, 3)
	for i := range chans {
		ch, unsub := b.Subscribe("o1")
		defer unsub()
		chans[i] = ch
	}
	require.Equal(t, 3, b.SubscriberCount("o1"))

	b.Publish(domain.OrderEvent{OrderID: "o1", Status: domain.OrderStatusRouting})
	b.Publish(domain.OrderEvent{OrderID: "o1", Status: domain.OrderStatusBuilding})

	for _, ch := range chans {
		assert.Equal(t, domain.OrderStatusRouting, (<-ch).Status)
		assert.Equal(t, domain.OrderStatusBuilding, (<-ch).Status)
	}
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	b := newTestBus()

	ch, unsub := b.Subscribe("o1")
	unsub()
	unsub() // safe to call twice

	require.Equal(t, 0, b.SubscriberCount("o1"))
	b.Publish(domain.OrderEvent{OrderID: "o1", Status: domain.OrderStatusRouting})

	_, open := <-ch
	assert.False(t, open, "channel must be closed after unsubscribe")
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	b := newTestBus()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish(domain.OrderEvent{OrderID: "o1", Status: domain.OrderStatusRouting})
			}
		}
	}()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, unsub := b.Subscribe("o1")
			defer unsub()
			<-ch
		}()
	}

	wg.Wait()
	close(stop)
}
