package display

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"clickloop/internal/domain"
)

// Frame hands URLs to gateway clients, which render them in an embedded frame.
type Frame struct {
	bus    domain.EventBus
	logger *slog.Logger

	mu   sync.Mutex
	open map[domain.DisplayHandle]string
}

// NewFrame creates a frame display publishing on bus.
func NewFrame(bus domain.EventBus, logger *slog.Logger) *Frame {
	return &Frame{bus: bus, logger: logger, open: make(map[domain.DisplayHandle]string)}
}

func (f *Frame) Name() string { return "frame" }

func (f *Frame) Open(ctx context.Context, url string) (domain.DisplayHandle, error) {
	h := domain.DisplayHandle(ulid.Make().String())
	f.mu.Lock()
	f.open[h] = url
	f.mu.Unlock()

	f.bus.Publish(ctx, domain.NewEvent(domain.EventDisplayOpened, domain.DisplayEventPayload{Handle: h, URL: url}))
	return h, nil
}

func (f *Frame) Close(ctx context.Context, h domain.DisplayHandle) error {
	f.mu.Lock()
	url, ok := f.open[h]
	delete(f.open, h)
	f.mu.Unlock()
	if !ok {
		return nil
	}

	f.bus.Publish(ctx, domain.NewEvent(domain.EventDisplayClosed, domain.DisplayEventPayload{Handle: h, URL: url}))
	return nil
}

// Current returns an open frame, if any. The scheduler keeps at most one open.
func (f *Frame) Current() (domain.DisplayHandle, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, url := range f.open {
		return h, url, true
	}
	return "", "", false
}
