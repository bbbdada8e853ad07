package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/domain"
)

func newTestBus(queue int) *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), queue)
}

func newEvent(t domain.EventType) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now()}
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus(0)

	var got atomic.Int32
	bus.Subscribe(domain.EventCycleStarted, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventCycleStarted {
			got.Add(1)
		}
	})

	bus.Publish(context.Background(), newEvent(domain.EventCycleStarted))
	bus.Publish(context.Background(), newEvent(domain.EventCyclePaused))
	bus.Close() // drain
	if got.Load() != 1 {
		t.Fatalf("expected 1, got %d", got.Load())
	}
}

func TestSubscribeAllKeepsOrder(t *testing.T) {
	bus := newTestBus(0)

	var mu sync.Mutex
	var seen []domain.EventType
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	want := []domain.EventType{
		domain.EventCycleStarted, domain.EventLogAppended, domain.EventCycleTick,
		domain.EventDisplayOpened, domain.EventCyclePaused, domain.EventCycleStopped,
	}
	for _, typ := range want {
		bus.Publish(context.Background(), newEvent(typ))
	}
	bus.Close()

	assert.Equal(t, want, seen)
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus(0)

	var got atomic.Int32
	unsub := bus.Subscribe(domain.EventLogAppended, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	unsub()
	unsub() // idempotent

	bus.Publish(context.Background(), newEvent(domain.EventLogAppended))
	bus.Close()
	assert.Equal(t, int32(0), got.Load())
}

func TestFullQueueDrops(t *testing.T) {
	bus := newTestBus(1)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	ctx := context.Background()
	bus.Publish(ctx, newEvent(domain.EventCycleTick))
	// The handler is blocked on the first event and the queue is empty.
	<-started
	bus.Publish(ctx, newEvent(domain.EventCycleTick)) // fills the queue
	bus.Publish(ctx, newEvent(domain.EventCycleTick)) // dropped

	assert.Equal(t, uint64(1), bus.Dropped())
	close(release)
	bus.Close()
}

func TestPanicRecovered(t *testing.T) {
	bus := newTestBus(0)

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventCycleStarted {
			panic("boom")
		}
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventCycleStarted))
	bus.Publish(context.Background(), newEvent(domain.EventCycleStopped))
	bus.Close()
	assert.Equal(t, int32(1), got.Load(), "subscriber keeps running after a panic")
}

func TestHandlerContextOutlivesPublisher(t *testing.T) {
	bus := newTestBus(0)

	errs := make(chan error, 1)
	bus.SubscribeAll(func(ctx context.Context, _ domain.Event) {
		errs <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, newEvent(domain.EventLogCleared))
	bus.Close()

	require.Len(t, errs, 1)
	assert.NoError(t, <-errs)
}

func TestPublishAfterClose(t *testing.T) {
	bus := newTestBus(0)
	bus.Close()
	bus.Close()

	bus.Publish(context.Background(), newEvent(domain.EventCycleStarted))
	unsub := bus.SubscribeAll(func(context.Context, domain.Event) {})
	unsub()
}
