// Package display implements domain.DisplaySurface backends.
package display

import (
	"fmt"
	"log/slog"
	"time"

	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
)

// Deps carries the collaborators some backends need.
type Deps struct {
	Settings domain.SettingsStore // chromedp reads the user agent per open
	Bus      domain.EventBus      // required by frame
}

// New builds the backend selected by cfg.Backend.
func New(cfg config.DisplayConfig, deps Deps, logger *slog.Logger) (domain.DisplaySurface, error) {
	switch cfg.Backend {
	case "chromedp", "":
		return NewChromeDP(ChromeDPConfig{
			RemoteURL:    cfg.RemoteURL,
			Headless:     cfg.Headless,
			Timeout:      cfg.Timeout,
			WindowWidth:  cfg.WindowWidth,
			WindowHeight: cfg.WindowHeight,
		}, deps.Settings, logger), nil
	case "frame":
		if deps.Bus == nil {
			return nil, fmt.Errorf("display: frame backend requires an event bus")
		}
		return NewFrame(deps.Bus, logger), nil
	case "none":
		return NewNone(logger), nil
	default:
		return nil, fmt.Errorf("display: unknown backend %q", cfg.Backend)
	}
}

func openErr(url string, err error) error {
	return domain.NewDomainError("Display.Open", domain.ErrDisplayOpen, fmt.Sprintf("%s: %v", url, err))
}

func defaultTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
