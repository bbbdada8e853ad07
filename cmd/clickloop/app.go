package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"clickloop/internal/adapter/display"
	"clickloop/internal/adapter/gateway"
	"clickloop/internal/adapter/llm"
	"clickloop/internal/adapter/store"
	"clickloop/internal/adapter/suggest"
	"clickloop/internal/adapter/title"
	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
	"clickloop/internal/infra/logger"
	"clickloop/internal/infra/middleware"
	"clickloop/internal/infra/tracer"
	"clickloop/internal/usecase/cycle"
	"clickloop/internal/usecase/eventbus"
	"clickloop/internal/usecase/linkset"
	"clickloop/internal/usecase/scheduling"
)

// appOptions adjusts the wiring for a particular command.
type appOptions struct {
	quietLogs    bool // keep log output off the terminal (dashboard)
	noDisplay    bool // management commands never open pages
	forceGateway bool
}

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	store    *store.Store
	bus      *eventbus.Bus
	display  domain.DisplaySurface
	cycle    *cycle.Scheduler
	links    *linkset.Manager
	schedule *scheduling.Scheduler // nil unless autostart is enabled
	gateway  *gateway.Server       // nil unless the gateway is enabled

	closers []func()
}

// newApp loads config and builds the core components. Call Close when done.
func newApp(ctx context.Context, opts appOptions) (a *app, err error) {
	a = &app{cfgPath: configPath()}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	// 1. Config
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return a, fmt.Errorf("config: %w", err)
	}
	if opts.quietLogs && (cfg.Logger.Output == "" || cfg.Logger.Output == "stderr" || cfg.Logger.Output == "stdout") {
		cfg.Logger.Output = "discard"
	}
	if opts.noDisplay {
		cfg.Display.Backend = "none"
	}
	if opts.forceGateway {
		cfg.Gateway.Enabled = true
	}
	a.cfg = cfg

	// 2. Logger
	log, logClose, err := logger.New(cfg.Logger)
	if err != nil {
		return a, fmt.Errorf("logger: %w", err)
	}
	a.logger = log
	a.closers = append(a.closers, func() { _ = logClose() })

	// 3. Tracer
	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return a, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	})

	// 4. Store
	st, err := store.Open(store.Options{
		Backend:    cfg.Store.Backend,
		DataDir:    cfg.Store.DataDir,
		SQLitePath: cfg.Store.SQLitePath,
	})
	if err != nil {
		return a, fmt.Errorf("store: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, func() {
		if err := st.Close(); err != nil {
			log.Warn("store close failed", "error", err)
		}
	})

	// 5. Event bus
	a.bus = eventbus.New(logger.Component(log, "eventbus"), 0)
	a.closers = append(a.closers, a.bus.Close)

	// 6. Display surface
	disp, err := display.New(cfg.Display, display.Deps{Settings: st, Bus: a.bus}, logger.Component(log, "display"))
	if err != nil {
		return a, fmt.Errorf("display: %w", err)
	}
	a.display = disp
	if sd, ok := disp.(interface{ Shutdown() error }); ok {
		a.closers = append(a.closers, func() { _ = sd.Shutdown() })
	}

	// 7. Cycle scheduler
	stores := cycle.Stores{Links: st, Settings: st, Logs: st}
	a.cycle = cycle.NewScheduler(stores, disp, a.bus, cycle.Config{
		StartupDelay: cfg.Cycle.StartupDelay,
		MinInterval:  cfg.Cycle.MinInterval,
	}, logger.Component(log, "cycle"))
	a.closers = append(a.closers, func() {
		if a.cycle.IsActive() {
			a.cycle.Stop(context.Background(), domain.StopManual)
		}
	})

	// 8. Link manager with title lookup and optional suggestions
	var suggester domain.ContentSuggester
	if cfg.Suggest.Enabled {
		provider := llm.New(cfg.LLM, logger.Component(log, "llm"))
		s, err := suggest.New(provider, suggest.Config{
			MaxSuggestions: cfg.Suggest.MaxSuggestions,
			Timeout:        cfg.Suggest.Timeout,
			Model:          cfg.LLM.Provider.Model,
		}, logger.Component(log, "suggest"))
		if err != nil {
			return a, fmt.Errorf("suggest: %w", err)
		}
		suggester = s
	}
	a.links = linkset.NewManager(linkset.Stores{Links: st, Settings: st, Logs: st},
		a.cycle, title.New(cfg.Title, logger.Component(log, "title")), suggester, a.bus,
		logger.Component(log, "linkset"))

	return a, nil
}

// startAutostart registers the unattended start/stop schedule when enabled.
func (a *app) startAutostart(ctx context.Context) error {
	if !a.cfg.Autostart.Enabled {
		return nil
	}
	s := scheduling.NewScheduler(logger.Component(a.logger, "autostart"))
	scheduling.RegisterCycleActions(s, a.cycle, a.bus)
	if err := scheduling.ConfigureAutostart(s, scheduling.AutostartConfig{
		Start: a.cfg.Autostart.Start,
		Stop:  a.cfg.Autostart.Stop,
	}); err != nil {
		return fmt.Errorf("autostart: %w", err)
	}
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("autostart: %w", err)
	}
	a.schedule = s
	a.closers = append(a.closers, func() { _ = s.Stop() })
	return nil
}

// newGateway builds the gateway and registers its handlers. Start is left to the caller.
func (a *app) newGateway() *gateway.Server {
	if !a.cfg.Gateway.Enabled {
		return nil
	}
	gw := a.cfg.Gateway
	opts := gateway.Options{
		Addr: gw.Addr,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerMin: gw.RateLimit.RequestsPerMin,
			Burst:          gw.RateLimit.Burst,
			TrustedProxies: gw.RateLimit.TrustedProxies,
		},
	}
	if od, ok := a.display.(gateway.OpenDisplay); ok {
		opts.Display = od
	}
	srv := gateway.NewServer(a.bus, gateway.NewAuthenticator(gw.Auth.Tokens), opts, logger.Component(a.logger, "gateway"))

	deps := gateway.HandlerDeps{
		Cycle:       a.cycle,
		Links:       a.links,
		Logs:        a.store,
		Schedule:    a.schedule,
		DisplayName: a.display.Name(),
		Logger:      logger.Component(a.logger, "gateway"),
	}
	gateway.RegisterDefaultHandlers(srv, deps)
	gateway.RegisterRESTHandlers(srv, deps)
	if len(gw.Auth.Tokens) == 0 {
		a.logger.Warn("gateway has no auth tokens; every client is accepted", "addr", gw.Addr)
	}

	a.gateway = srv
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("gateway shutdown error", "error", err)
		}
	})
	return srv
}

// Close releases components in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// readConfigYAML returns the raw config file for display, or "" when absent.
func (a *app) readConfigYAML() string {
	data, err := os.ReadFile(a.cfgPath)
	if err != nil {
		return ""
	}
	return string(data)
}
