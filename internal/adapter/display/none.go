package display

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"clickloop/internal/domain"
)

// None shows nothing. It records handles and logs what would have opened.
type None struct {
	logger *slog.Logger

	mu     sync.Mutex
	open   map[domain.DisplayHandle]string
	opened []string
}

// NewNone creates a display that only logs.
func NewNone(logger *slog.Logger) *None {
	return &None{logger: logger, open: make(map[domain.DisplayHandle]string)}
}

func (n *None) Name() string { return "none" }

func (n *None) Open(_ context.Context, url string) (domain.DisplayHandle, error) {
	h := domain.DisplayHandle(ulid.Make().String())
	n.mu.Lock()
	n.open[h] = url
	n.opened = append(n.opened, url)
	n.mu.Unlock()
	n.logger.Info("display open", "url", url, "handle", h)
	return h, nil
}

func (n *None) Close(_ context.Context, h domain.DisplayHandle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.open[h]; ok {
		delete(n.open, h)
		n.logger.Debug("display close", "handle", h)
	}
	return nil
}

// OpenCount returns the number of handles not yet closed.
func (n *None) OpenCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.open)
}

// History returns every URL opened, oldest first.
func (n *None) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.opened...)
}
