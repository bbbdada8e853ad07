package display

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"clickloop/internal/domain"
)

// ChromeDPConfig holds configuration for the chromedp display.
type ChromeDPConfig struct {
	// RemoteURL is the CDP endpoint of an already running browser.
	// If empty, a local Chrome instance is launched on first use.
	RemoteURL    string
	Headless     bool
	Timeout      time.Duration
	WindowWidth  int
	WindowHeight int
}

type cdpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeDP opens every link in its own browser tab.
type ChromeDP struct {
	cfg      ChromeDPConfig
	settings domain.SettingsStore
	logger   *slog.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	tabs          map[domain.DisplayHandle]*cdpTab
}

// NewChromeDP creates the display. The browser starts lazily on the first Open.
// settings may be nil, in which case no user agent override is applied.
func NewChromeDP(cfg ChromeDPConfig, settings domain.SettingsStore, logger *slog.Logger) *ChromeDP {
	cfg.Timeout = defaultTimeout(cfg.Timeout)
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1280, 800
	}
	return &ChromeDP{
		cfg:      cfg,
		settings: settings,
		logger:   logger,
		tabs:     make(map[domain.DisplayHandle]*cdpTab),
	}
}

func (d *ChromeDP) Name() string { return "chromedp" }

// ensureBrowser starts or attaches to the browser. Caller must hold mu.
func (d *ChromeDP) ensureBrowser() error {
	if d.browserCtx != nil {
		return nil
	}

	var allocCtx context.Context
	if d.cfg.RemoteURL != "" {
		allocCtx, d.allocCancel = chromedp.NewRemoteAllocator(context.Background(), d.cfg.RemoteURL)
		d.logger.Info("chromedp connecting to remote browser", "url", d.cfg.RemoteURL)
	} else {
		opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
		copy(opts, chromedp.DefaultExecAllocatorOptions[:])
		opts = append(opts,
			chromedp.Flag("headless", d.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(d.cfg.WindowWidth, d.cfg.WindowHeight),
		)
		allocCtx, d.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		d.logger.Info("chromedp launching local browser", "headless", d.cfg.Headless)
	}

	d.browserCtx, d.browserCancel = chromedp.NewContext(allocCtx)
	browserCtx := d.browserCtx
	err := runBounded(d.cfg.Timeout, d.shutdownLocked, func() error {
		return chromedp.Run(browserCtx)
	})
	if err != nil {
		d.shutdownLocked()
		return fmt.Errorf("start browser: %w", err)
	}
	return nil
}

// runBounded waits at most timeout for fn. On timeout abort is called so fn
// can unwind. chromedp binds a browser or tab to the context of its first
// Run, so that context cannot carry the deadline itself.
func runBounded(timeout time.Duration, abort func(), fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		abort()
		return fmt.Errorf("timed out after %v", timeout)
	}
}

// Open creates a new tab showing url.
func (d *ChromeDP) Open(ctx context.Context, url string) (domain.DisplayHandle, error) {
	userAgent := ""
	if d.settings != nil {
		if s, err := d.settings.LoadSettings(ctx); err == nil {
			userAgent = s.UserAgent
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureBrowser(); err != nil {
		return "", openErr(url, err)
	}

	// CreateTarget guarantees a fresh tab; NewContext alone may reuse a blank one.
	var id target.ID
	if err := chromedp.Run(d.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
		var err error
		id, err = target.CreateTarget("about:blank").WithNewWindow(true).Do(cctx)
		return err
	})); err != nil {
		return "", openErr(url, fmt.Errorf("create tab: %w", err))
	}

	tabCtx, tabCancel := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(id))
	err := runBounded(d.cfg.Timeout, tabCancel, func() error { return chromedp.Run(tabCtx) })
	if err != nil {
		tabCancel()
		return "", openErr(url, fmt.Errorf("attach tab: %w", err))
	}
	h := domain.DisplayHandle(id)
	d.tabs[h] = &cdpTab{ctx: tabCtx, cancel: tabCancel}

	tctx, cancel := context.WithTimeout(tabCtx, d.cfg.Timeout)
	defer cancel()

	actions := make([]chromedp.Action, 0, 2)
	if userAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(userAgent))
	}
	actions = append(actions, chromedp.Navigate(url))
	if err := chromedp.Run(tctx, actions...); err != nil {
		// The tab stays open so the scheduler can close it by handle.
		d.logger.Warn("chromedp navigate failed", "url", url, "error", err)
		return h, nil
	}

	d.logger.Debug("chromedp tab opened", "handle", h, "url", url)
	return h, nil
}

// Close closes the tab behind h. Unknown handles are ignored.
func (d *ChromeDP) Close(_ context.Context, h domain.DisplayHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tab, ok := d.tabs[h]
	if !ok {
		return nil
	}
	delete(d.tabs, h)

	// Canceling a tab context created WithTargetID closes the target.
	tab.cancel()
	d.logger.Debug("chromedp tab closed", "handle", h)
	return nil
}

// Shutdown closes every tab and the browser.
func (d *ChromeDP) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdownLocked()
	return nil
}

func (d *ChromeDP) shutdownLocked() {
	for h, tab := range d.tabs {
		tab.cancel()
		delete(d.tabs, h)
	}
	if d.browserCancel != nil {
		d.browserCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	d.browserCtx, d.browserCancel, d.allocCancel = nil, nil, nil
}
